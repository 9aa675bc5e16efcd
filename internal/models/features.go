package models

import (
	"errors"
	"fmt"
	"math"
)

// ErrSchemaMismatch is returned when a feature schema differs from FeatureNames
var ErrSchemaMismatch = errors.New("feature schema mismatch")

// NoEventSentinel marks a recency gap for an event that never happened
const NoEventSentinel = 9999

// FeatureNames is the canonical feature order shared by training and serving
var FeatureNames = []string{
	"on_time_ratio",
	"missed_ratio",
	"due_ratio",
	"average_delay",
	"max_delay",
	"std_dev_delay",
	"max_missed_streak",
	"recent_missed_count",
	"recent_due_count",
	"recent_on_time_count",
	"time_since_last_missed",
	"time_since_last_due",
}

// FeatureVector holds the model inputs derived from a borrower's history
type FeatureVector struct {
	OnTimeRatio         float64 `json:"on_time_ratio"`
	MissedRatio         float64 `json:"missed_ratio"`
	DueRatio            float64 `json:"due_ratio"`
	AverageDelay        float64 `json:"average_delay"`
	MaxDelay            float64 `json:"max_delay"`
	StdDevDelay         float64 `json:"std_dev_delay"`
	MaxMissedStreak     float64 `json:"max_missed_streak"`
	RecentMissedCount   float64 `json:"recent_missed_count"`
	RecentDueCount      float64 `json:"recent_due_count"`
	RecentOnTimeCount   float64 `json:"recent_on_time_count"`
	TimeSinceLastMissed float64 `json:"time_since_last_missed"`
	TimeSinceLastDue    float64 `json:"time_since_last_due"`
}

// ColdStartFeatures returns the vector used for a borrower with no history
func ColdStartFeatures() FeatureVector {
	return FeatureVector{
		TimeSinceLastMissed: NoEventSentinel,
		TimeSinceLastDue:    NoEventSentinel,
	}
}

// Values returns the features in FeatureNames order
func (f FeatureVector) Values() []float64 {
	return []float64{
		f.OnTimeRatio,
		f.MissedRatio,
		f.DueRatio,
		f.AverageDelay,
		f.MaxDelay,
		f.StdDevDelay,
		f.MaxMissedStreak,
		f.RecentMissedCount,
		f.RecentDueCount,
		f.RecentOnTimeCount,
		f.TimeSinceLastMissed,
		f.TimeSinceLastDue,
	}
}

// Ordered returns the features laid out for schema. The schema must be
// exactly FeatureNames; fields are never dropped or reordered to fit.
func (f FeatureVector) Ordered(schema []string) ([]float64, error) {
	if err := ValidateSchema(schema); err != nil {
		return nil, err
	}
	return f.Values(), nil
}

// Sanitized replaces NaN and infinite values with zero
func (f FeatureVector) Sanitized() FeatureVector {
	fields := []*float64{
		&f.OnTimeRatio, &f.MissedRatio, &f.DueRatio,
		&f.AverageDelay, &f.MaxDelay, &f.StdDevDelay,
		&f.MaxMissedStreak, &f.RecentMissedCount, &f.RecentDueCount,
		&f.RecentOnTimeCount, &f.TimeSinceLastMissed, &f.TimeSinceLastDue,
	}
	for _, v := range fields {
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			*v = 0
		}
	}
	return f
}

// ValidateSchema checks that schema matches FeatureNames name for name
func ValidateSchema(schema []string) error {
	if len(schema) != len(FeatureNames) {
		return fmt.Errorf("%w: expected %d features, got %d", ErrSchemaMismatch, len(FeatureNames), len(schema))
	}
	for i, name := range FeatureNames {
		if schema[i] != name {
			return fmt.Errorf("%w: position %d is %q, expected %q", ErrSchemaMismatch, i, schema[i], name)
		}
	}
	return nil
}
