package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dan9191/repayment-predictor/internal/ledger"
	"github.com/Dan9191/repayment-predictor/internal/models"
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Load reads the full payment history and investor mapping into a ledger
func (r *Repository) Load(ctx context.Context) (*ledger.Ledger, error) {
	payments, err := r.ListPayments(ctx)
	if err != nil {
		return nil, err
	}
	links, err := r.ListInvestorBorrowers(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.New(payments, links), nil
}

// ListPayments retrieves every payment record in insertion order
func (r *Repository) ListPayments(ctx context.Context) ([]models.PaymentRecord, error) {
	query := `
		SELECT borrower_id, due_date, payment_date, status
		FROM lending.payment_history
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []models.PaymentRecord
	for rows.Next() {
		var (
			p       models.PaymentRecord
			paidAt  sql.NullTime
			rawStat string
		)
		if err := rows.Scan(&p.BorrowerID, &p.DueDate, &paidAt, &rawStat); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if p.Status, err = models.ParseStatus(rawStat); err != nil {
			return nil, fmt.Errorf("borrower %d: %w", p.BorrowerID, err)
		}
		if paidAt.Valid {
			p.PaymentDate = &paidAt.Time
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payments: %w", err)
	}
	return payments, nil
}

// ListInvestorBorrowers retrieves the investor-borrower mapping
func (r *Repository) ListInvestorBorrowers(ctx context.Context) ([]models.InvestorBorrower, error) {
	query := `
		SELECT investor_id, borrower_id
		FROM lending.investor_borrower`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query investor mapping: %w", err)
	}
	defer rows.Close()

	var links []models.InvestorBorrower
	for rows.Next() {
		var link models.InvestorBorrower
		if err := rows.Scan(&link.InvestorID, &link.BorrowerID); err != nil {
			return nil, fmt.Errorf("failed to scan investor mapping: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read investor mapping: %w", err)
	}
	return links, nil
}
