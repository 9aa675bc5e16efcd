package service

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Dan9191/repayment-predictor/internal/features"
	"github.com/Dan9191/repayment-predictor/internal/ledger"
	"github.com/Dan9191/repayment-predictor/internal/metrics"
	"github.com/Dan9191/repayment-predictor/internal/models"
	"github.com/Dan9191/repayment-predictor/internal/predictor"
	"github.com/sirupsen/logrus"
)

// Snapshot is an immutable set of loaded ledger and model artifacts
type Snapshot struct {
	Ledger    *ledger.Ledger
	Predictor *predictor.Predictor
	LoadedAt  time.Time
}

// Service handles repayment predictions. It starts not ready and becomes
// ready once a loader installs the first snapshot.
type Service struct {
	snapshot   atomic.Pointer[Snapshot]
	thresholds predictor.Thresholds
	log        *logrus.Logger
	now        func() time.Time
}

// Option customizes a Service
type Option func(*Service)

// WithClock sets the clock used for recency features
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService initializes a new service
func NewService(thresholds predictor.Thresholds, log *logrus.Logger, opts ...Option) *Service {
	s := &Service{thresholds: thresholds, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Install publishes a new snapshot. Requests already running keep the
// snapshot they started with.
func (s *Service) Install(snap *Snapshot) error {
	if snap == nil || snap.Ledger == nil || snap.Predictor == nil {
		return errors.New("snapshot requires a ledger and a predictor")
	}
	s.snapshot.Store(snap)
	s.log.WithFields(logrus.Fields{
		"payments":  snap.Ledger.Size(),
		"borrowers": snap.Ledger.Borrowers(),
	}).Info("Prediction snapshot installed")
	return nil
}

// Ready reports whether a snapshot has been installed
func (s *Service) Ready() bool {
	return s.snapshot.Load() != nil
}

// Snapshot returns the current snapshot or nil when not ready
func (s *Service) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// GetPrediction computes the repayment prediction for a borrower
func (s *Service) GetPrediction(borrowerID int64) (*models.PredictionResult, error) {
	start := time.Now()
	result, err := s.predict(borrowerID)
	if err != nil {
		reason := errorReason(err)
		metrics.ObservePredictionError(reason)
		if reason == metrics.ReasonSchemaMismatch || reason == metrics.ReasonInternal {
			s.log.WithError(err).WithField("borrower_id", borrowerID).Error("Prediction failed")
		}
		return nil, err
	}
	metrics.ObservePrediction(string(result.RiskLevel), time.Since(start))

	s.log.WithFields(logrus.Fields{
		"borrower_id": borrowerID,
		"prediction":  result.PredictedRepaymentPercentage,
		"risk_level":  result.RiskLevel,
	}).Debug("Prediction computed")
	return result, nil
}

func (s *Service) predict(borrowerID int64) (*models.PredictionResult, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, ErrServiceNotReady
	}
	if !snap.Ledger.HasPayments(borrowerID) && !snap.Ledger.HasInvestor(borrowerID) {
		return nil, fmt.Errorf("%w: borrower with ID %d", ErrBorrowerNotFound, borrowerID)
	}

	fv, summary := features.Extract(borrowerID, snap.Ledger.PaymentsFor(borrowerID), s.now())

	pct, err := snap.Predictor.Predict(fv, summary)
	if err != nil {
		return nil, fmt.Errorf("failed to predict for borrower %d: %w", borrowerID, err)
	}

	return &models.PredictionResult{
		Summary:                      summary,
		PredictedRepaymentPercentage: pct,
		RiskLevel:                    predictor.Classify(pct, s.thresholds),
	}, nil
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrServiceNotReady):
		return metrics.ReasonNotReady
	case errors.Is(err, ErrBorrowerNotFound):
		return metrics.ReasonNotFound
	case errors.Is(err, ErrSchemaMismatch):
		return metrics.ReasonSchemaMismatch
	}
	return metrics.ReasonInternal
}
