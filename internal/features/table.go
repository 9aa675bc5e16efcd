package features

import (
	"time"

	"github.com/Dan9191/repayment-predictor/internal/models"
)

// Row is one borrower's line in a feature table
type Row struct {
	BorrowerID int64
	Features   models.FeatureVector
	Summary    models.Summary
}

// ExtractAll builds a feature table covering every borrower in payments,
// in the order borrowers first appear in the ledger.
func ExtractAll(payments []models.PaymentRecord, now time.Time) []Row {
	byBorrower := make(map[int64][]models.PaymentRecord)
	var order []int64
	for _, p := range payments {
		if _, seen := byBorrower[p.BorrowerID]; !seen {
			order = append(order, p.BorrowerID)
		}
		byBorrower[p.BorrowerID] = append(byBorrower[p.BorrowerID], p)
	}

	rows := make([]Row, 0, len(order))
	for _, id := range order {
		fv, summary := Extract(id, byBorrower[id], now)
		rows = append(rows, Row{BorrowerID: id, Features: fv, Summary: summary})
	}
	return rows
}
