// Package ledger holds the immutable payment ledger the predictor reads
package ledger

import (
	"context"
	"slices"

	"github.com/Dan9191/repayment-predictor/internal/models"
)

// Source loads a complete ledger snapshot
type Source interface {
	Load(ctx context.Context) (*Ledger, error)
}

// Ledger is a read-only view of all payment records and the
// investor-borrower mapping. It is never modified after New returns: New
// copies its input and accessors hand out copies.
type Ledger struct {
	payments   []models.PaymentRecord
	byBorrower map[int64][]models.PaymentRecord
	investors  map[int64][]string
}

// New indexes payments and links into a Ledger. Payments keep their order.
func New(payments []models.PaymentRecord, links []models.InvestorBorrower) *Ledger {
	l := &Ledger{
		payments:   slices.Clone(payments),
		byBorrower: make(map[int64][]models.PaymentRecord),
		investors:  make(map[int64][]string),
	}
	for _, p := range l.payments {
		l.byBorrower[p.BorrowerID] = append(l.byBorrower[p.BorrowerID], p)
	}
	for _, link := range links {
		l.investors[link.BorrowerID] = append(l.investors[link.BorrowerID], link.InvestorID)
	}
	return l
}

// Payments returns every record in ledger order
func (l *Ledger) Payments() []models.PaymentRecord {
	return slices.Clone(l.payments)
}

// PaymentsFor returns the records of one borrower in ledger order
func (l *Ledger) PaymentsFor(borrowerID int64) []models.PaymentRecord {
	return slices.Clone(l.byBorrower[borrowerID])
}

// HasPayments reports whether the borrower appears in the payment history
func (l *Ledger) HasPayments(borrowerID int64) bool {
	return len(l.byBorrower[borrowerID]) > 0
}

// HasInvestor reports whether any investor is linked to the borrower
func (l *Ledger) HasInvestor(borrowerID int64) bool {
	return len(l.investors[borrowerID]) > 0
}

// Investors returns the investors linked to the borrower
func (l *Ledger) Investors(borrowerID int64) []string {
	return slices.Clone(l.investors[borrowerID])
}

// Size returns the number of payment records
func (l *Ledger) Size() int {
	return len(l.payments)
}

// Borrowers returns the number of distinct borrowers with payments
func (l *Ledger) Borrowers() int {
	return len(l.byBorrower)
}
