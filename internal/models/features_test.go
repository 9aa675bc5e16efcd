package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureVector_Ordered(t *testing.T) {
	fv := FeatureVector{OnTimeRatio: 0.5, TimeSinceLastDue: 12}

	values, err := fv.Ordered(FeatureNames)
	require.NoError(t, err)
	require.Len(t, values, len(FeatureNames))
	assert.Equal(t, 0.5, values[0])
	assert.Equal(t, 12.0, values[11])
}

func TestFeatureVector_OrderedRejectsMismatch(t *testing.T) {
	swapped := append([]string(nil), FeatureNames...)
	swapped[0], swapped[1] = swapped[1], swapped[0]

	tests := []struct {
		name   string
		schema []string
	}{
		{name: "reordered", schema: swapped},
		{name: "missing field", schema: FeatureNames[:11]},
		{name: "extra field", schema: append(append([]string(nil), FeatureNames...), "borrower_id")},
		{name: "renamed field", schema: append(append([]string(nil), FeatureNames[:11]...), "last_due")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FeatureVector{}.Ordered(tt.schema)
			assert.ErrorIs(t, err, ErrSchemaMismatch)
		})
	}
}

func TestFeatureVector_Sanitized(t *testing.T) {
	fv := FeatureVector{StdDevDelay: math.NaN(), MaxDelay: math.Inf(1), DueRatio: 0.25}.Sanitized()

	assert.Equal(t, 0.0, fv.StdDevDelay)
	assert.Equal(t, 0.0, fv.MaxDelay)
	assert.Equal(t, 0.25, fv.DueRatio)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("missed")
	require.NoError(t, err)
	assert.Equal(t, StatusMissed, s)

	_, err = ParseStatus("late")
	assert.Error(t, err)
}
