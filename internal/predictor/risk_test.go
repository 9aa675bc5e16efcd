package predictor

import (
	"math"
	"testing"

	"github.com/Dan9191/repayment-predictor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Boundaries(t *testing.T) {
	thresholds, err := NewThresholds(70.0, 90.0)
	require.NoError(t, err)

	tests := []struct {
		percentage float64
		want       models.RiskLevel
	}{
		{0, models.RiskHigh},
		{69.99, models.RiskHigh},
		{70.0, models.RiskMedium},
		{89.99, models.RiskMedium},
		{90.0, models.RiskLow},
		{100, models.RiskLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.percentage, thresholds), "percentage %.2f", tt.percentage)
	}
}

func TestClassify_ColdStartDefaultIsMediumRisk(t *testing.T) {
	assert.Equal(t, models.RiskMedium, Classify(ColdStartPrediction, DefaultThresholds()))
}

func TestNewThresholds_RejectsNonMonotonic(t *testing.T) {
	tests := []struct {
		name         string
		high, medium float64
	}{
		{name: "equal", high: 80, medium: 80},
		{name: "inverted", high: 90, medium: 70},
		{name: "nan", high: math.NaN(), medium: 90},
		{name: "inf", high: 70, medium: math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewThresholds(tt.high, tt.medium)
			assert.Error(t, err)
		})
	}
}
