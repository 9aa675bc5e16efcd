// Package features derives model inputs and a repayment summary from a
// borrower's payment history. Everything here is pure: no I/O, no clock.
package features

import (
	"math"
	"slices"
	"time"

	"github.com/Dan9191/repayment-predictor/internal/models"
	"gonum.org/v1/gonum/stat"
)

// RecentWindow is the number of latest payments counted as recent behavior
const RecentWindow = 5

// Extract computes the feature vector and summary for borrowerID from the
// payments it finds in the ledger. now anchors the recency gaps.
func Extract(borrowerID int64, payments []models.PaymentRecord, now time.Time) (models.FeatureVector, models.Summary) {
	history := History(borrowerID, payments)
	if len(history) == 0 {
		return models.ColdStartFeatures(), models.Summary{}
	}

	var onTime, missed, due int
	var delays []float64
	var streak, maxStreak int
	var lastMissed, lastDue *time.Time

	for i := range history {
		p := &history[i]
		switch p.Status {
		case models.StatusOnTime:
			onTime++
		case models.StatusMissed:
			missed++
			if p.PaymentDate != nil {
				delays = append(delays, float64(daysBetween(p.DueDate, *p.PaymentDate)))
			}
			lastMissed = &p.DueDate
		case models.StatusDue:
			due++
			lastDue = &p.DueDate
		}

		if p.Status == models.StatusMissed {
			streak++
			maxStreak = max(maxStreak, streak)
		} else {
			streak = 0
		}
	}

	total := float64(len(history))
	avgDelay, maxDelay, stdDelay := delayStats(delays)

	var recentOnTime, recentMissed, recentDue int
	for _, p := range history[max(0, len(history)-RecentWindow):] {
		switch p.Status {
		case models.StatusOnTime:
			recentOnTime++
		case models.StatusMissed:
			recentMissed++
		case models.StatusDue:
			recentDue++
		}
	}

	fv := models.FeatureVector{
		OnTimeRatio:         float64(onTime) / total,
		MissedRatio:         float64(missed) / total,
		DueRatio:            float64(due) / total,
		AverageDelay:        avgDelay,
		MaxDelay:            maxDelay,
		StdDevDelay:         stdDelay,
		MaxMissedStreak:     float64(maxStreak),
		RecentMissedCount:   float64(recentMissed),
		RecentDueCount:      float64(recentDue),
		RecentOnTimeCount:   float64(recentOnTime),
		TimeSinceLastMissed: sinceLast(lastMissed, now),
		TimeSinceLastDue:    sinceLast(lastDue, now),
	}.Sanitized()

	summary := models.Summary{
		TotalPayments:    len(history),
		OnTime:           onTime,
		Missed:           missed,
		Due:              due,
		AverageDelayDays: round2(fv.AverageDelay),
		MaxDelayDays:     int(fv.MaxDelay),
	}
	return fv, summary
}

// History returns the payments of borrowerID sorted by due date. Records
// sharing a due date keep their ledger order.
func History(borrowerID int64, payments []models.PaymentRecord) []models.PaymentRecord {
	var history []models.PaymentRecord
	for _, p := range payments {
		if p.BorrowerID == borrowerID {
			history = append(history, p)
		}
	}
	slices.SortStableFunc(history, func(a, b models.PaymentRecord) int {
		return a.DueDate.Compare(b.DueDate)
	})
	return history
}

// delayStats returns mean, max and sample standard deviation of the delays.
// The standard deviation of fewer than two samples is reported as 0; mean and
// max of a single sample follow the training-time extractor and keep it.
func delayStats(delays []float64) (mean, maxDelay, stdDev float64) {
	if len(delays) == 0 {
		return 0, 0, 0
	}
	mean = stat.Mean(delays, nil)
	maxDelay = slices.Max(delays)
	if len(delays) > 1 {
		stdDev = stat.StdDev(delays, nil)
	}
	return mean, maxDelay, stdDev
}

func sinceLast(last *time.Time, now time.Time) float64 {
	if last == nil {
		return models.NoEventSentinel
	}
	return float64(daysBetween(*last, wallClock(now, last.Location())))
}

// wallClock re-expresses the wall-clock reading of now in loc, so calendar
// dates stored in loc are compared against the caller's local day.
func wallClock(now time.Time, loc *time.Location) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(),
		now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), loc)
}

// daysBetween counts whole days from a to b, rounding toward the past
func daysBetween(a, b time.Time) int {
	return int(math.Floor(b.Sub(a).Hours() / 24))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
