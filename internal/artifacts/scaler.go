package artifacts

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Dan9191/repayment-predictor/internal/models"
)

// StandardScaler is a fitted standardization transform: (x - mean) / scale.
// The JSON layout mirrors the fitted attributes of a standard scaler.
type StandardScaler struct {
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
}

// LoadScaler reads a scaler artifact from path
func LoadScaler(path string) (*StandardScaler, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scaler: %w", err)
	}
	defer f.Close()
	return ParseScaler(f)
}

// ParseScaler decodes and validates a scaler artifact
func ParseScaler(r io.Reader) (*StandardScaler, error) {
	var s StandardScaler
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode scaler: %w", err)
	}
	if err := models.ValidateSchema(s.FeatureNames); err != nil {
		return nil, err
	}
	n := len(s.FeatureNames)
	if len(s.Mean) != n || len(s.Scale) != n {
		return nil, fmt.Errorf("scaler has %d features but %d means and %d scales", n, len(s.Mean), len(s.Scale))
	}
	for i, v := range s.Scale {
		// constant features are fitted with a unit scale
		if v == 0 {
			s.Scale[i] = 1
		}
	}
	return &s, nil
}

// Transform standardizes values laid out in FeatureNames order
func (s *StandardScaler) Transform(values []float64) ([]float64, error) {
	if len(values) != len(s.Mean) {
		return nil, fmt.Errorf("%w: scaler expects %d values, got %d", models.ErrSchemaMismatch, len(s.Mean), len(values))
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}
