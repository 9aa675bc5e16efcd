package service

import (
	"errors"

	"github.com/Dan9191/repayment-predictor/internal/models"
)

var (
	// ErrServiceNotReady is returned until a ledger and model have been installed
	ErrServiceNotReady = errors.New("model or data not loaded, the server is not ready")
	// ErrBorrowerNotFound is returned for borrowers absent from the ledger and the investor mapping
	ErrBorrowerNotFound = errors.New("borrower not found")
	// ErrSchemaMismatch signals feature schema skew between serving and the trained artifacts
	ErrSchemaMismatch = models.ErrSchemaMismatch
)
