package predictor

import (
	"fmt"
	"math"

	"github.com/Dan9191/repayment-predictor/internal/models"
)

// Default repayment-percentage cutoffs
const (
	DefaultHighThreshold   = 70.0
	DefaultMediumThreshold = 90.0
)

// Thresholds are the percentage cutoffs below which a prediction is High or
// Medium risk. High must be strictly below Medium.
type Thresholds struct {
	High   float64
	Medium float64
}

// NewThresholds validates and returns risk thresholds
func NewThresholds(high, medium float64) (Thresholds, error) {
	if math.IsNaN(high) || math.IsInf(high, 0) || math.IsNaN(medium) || math.IsInf(medium, 0) {
		return Thresholds{}, fmt.Errorf("risk thresholds must be finite, got high=%v medium=%v", high, medium)
	}
	if high >= medium {
		return Thresholds{}, fmt.Errorf("high risk threshold %.2f must be below medium risk threshold %.2f", high, medium)
	}
	return Thresholds{High: high, Medium: medium}, nil
}

// DefaultThresholds returns the 70/90 cutoffs
func DefaultThresholds() Thresholds {
	return Thresholds{High: DefaultHighThreshold, Medium: DefaultMediumThreshold}
}

// Classify maps a predicted repayment percentage to a risk tier. A lower
// percentage means a higher risk.
func Classify(percentage float64, t Thresholds) models.RiskLevel {
	switch {
	case percentage < t.High:
		return models.RiskHigh
	case percentage < t.Medium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
