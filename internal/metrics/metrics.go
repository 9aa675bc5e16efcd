// Package metrics exposes Prometheus collectors for predictions and reloads
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repayment_predictions_total",
			Help: "Total number of predictions served by risk level",
		},
		[]string{"risk_level"},
	)

	PredictionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repayment_prediction_errors_total",
			Help: "Total number of failed predictions by reason",
		},
		[]string{"reason"},
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "repayment_prediction_duration_seconds",
			Help:    "Duration of prediction computation in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	LedgerReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repayment_ledger_reloads_total",
			Help: "Total number of ledger and artifact reloads by result",
		},
		[]string{"result"},
	)

	LedgerPayments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "repayment_ledger_payments",
			Help: "Number of payment records in the installed ledger",
		},
	)

	LedgerBorrowers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "repayment_ledger_borrowers",
			Help: "Number of borrowers with payment history in the installed ledger",
		},
	)
)

// Reasons a prediction can fail, used as the reason label
const (
	ReasonNotReady       = "not_ready"
	ReasonNotFound       = "borrower_not_found"
	ReasonSchemaMismatch = "schema_mismatch"
	ReasonInternal       = "internal"
)

// ObservePrediction records a served prediction and its latency
func ObservePrediction(riskLevel string, d time.Duration) {
	PredictionDuration.Observe(d.Seconds())
	PredictionsTotal.WithLabelValues(riskLevel).Inc()
}

// ObservePredictionError records a failed prediction
func ObservePredictionError(reason string) {
	PredictionErrorsTotal.WithLabelValues(reason).Inc()
}

// ObserveReload records a reload attempt and the size of the installed ledger
func ObserveReload(err error, payments, borrowers int) {
	if err != nil {
		LedgerReloadsTotal.WithLabelValues("failure").Inc()
		return
	}
	LedgerReloadsTotal.WithLabelValues("success").Inc()
	LedgerPayments.Set(float64(payments))
	LedgerBorrowers.Set(float64(borrowers))
}
