// Package predictor turns a feature vector into a bounded repayment
// percentage and classifies it into a risk tier.
package predictor

import (
	"errors"
	"fmt"
	"math"

	"github.com/Dan9191/repayment-predictor/internal/models"
)

// ColdStartPrediction is assigned to borrowers without any payment history
const ColdStartPrediction = 75.0

// Scaler applies the feature transform fitted at training time
type Scaler interface {
	Transform(values []float64) ([]float64, error)
}

// Model is a fitted regression model
type Model interface {
	Predict(values []float64) (float64, error)
}

// Predictor combines a scaler and a model trained on the same feature schema
type Predictor struct {
	scaler Scaler
	model  Model
	schema []string
}

// New returns a Predictor. schema is the feature order the artifacts were
// trained with; it must match models.FeatureNames.
func New(scaler Scaler, model Model, schema []string) (*Predictor, error) {
	if scaler == nil || model == nil {
		return nil, errors.New("scaler and model are required")
	}
	if err := models.ValidateSchema(schema); err != nil {
		return nil, err
	}
	return &Predictor{scaler: scaler, model: model, schema: schema}, nil
}

// Predict returns the repayment percentage in [0, 100], rounded to two
// decimals. Borrowers with no payments get ColdStartPrediction without
// consulting the model.
func (p *Predictor) Predict(fv models.FeatureVector, summary models.Summary) (float64, error) {
	if summary.TotalPayments == 0 {
		return ColdStartPrediction, nil
	}

	values, err := fv.Ordered(p.schema)
	if err != nil {
		return 0, err
	}
	scaled, err := p.scaler.Transform(values)
	if err != nil {
		return 0, fmt.Errorf("failed to scale features: %w", err)
	}
	raw, err := p.model.Predict(scaled)
	if err != nil {
		return 0, fmt.Errorf("failed to run model: %w", err)
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, fmt.Errorf("model returned non-finite prediction %v", raw)
	}
	return Clamp(raw), nil
}

// Clamp bounds a raw model output to [0, 100] and rounds it to two decimals
func Clamp(raw float64) float64 {
	bounded := math.Max(0, math.Min(100, raw))
	return math.Round(bounded*100) / 100
}
