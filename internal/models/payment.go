package models

import (
	"fmt"
	"time"
)

// Status is the outcome of a scheduled loan payment
type Status string

const (
	StatusOnTime Status = "on_time"
	StatusMissed Status = "missed"
	StatusDue    Status = "due"
)

// ParseStatus converts a raw ledger value into a Status
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOnTime, StatusMissed, StatusDue:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown payment status %q", s)
}

// PaymentRecord represents a single scheduled payment of a borrower.
// PaymentDate is nil when no payment was made.
type PaymentRecord struct {
	BorrowerID  int64      `json:"borrower_id"`
	DueDate     time.Time  `json:"due_date"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`
	Status      Status     `json:"status"`
}
