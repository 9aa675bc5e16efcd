package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/repayment-predictor/internal/models"
)

// DateLayout is the calendar date format used in ledger files
const DateLayout = "2006-01-02"

// CSVSource reads the payment history and investor mapping from CSV files
type CSVSource struct {
	PaymentsPath  string
	InvestorsPath string
}

// NewCSVSource initializes a CSV ledger source
func NewCSVSource(paymentsPath, investorsPath string) *CSVSource {
	return &CSVSource{PaymentsPath: paymentsPath, InvestorsPath: investorsPath}
}

// Load reads both files into a new Ledger
func (s *CSVSource) Load(ctx context.Context) (*Ledger, error) {
	payments, err := readFile(s.PaymentsPath, ReadPayments)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	links, err := readFile(s.InvestorsPath, ReadInvestorBorrowers)
	if err != nil {
		return nil, err
	}
	return New(payments, links), nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	out, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return out, nil
}

// ReadPayments parses a payment history CSV with at least the columns
// borrower_id, due_date, payment_date and status. Extra columns are ignored.
func ReadPayments(r io.Reader) ([]models.PaymentRecord, error) {
	rows, cols, err := readRows(r, "borrower_id", "due_date", "payment_date", "status")
	if err != nil {
		return nil, err
	}

	payments := make([]models.PaymentRecord, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		borrowerID, err := parseID(row[cols["borrower_id"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		due, err := ParseDate(row[cols["due_date"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid due_date: %w", line, err)
		}
		status, err := models.ParseStatus(strings.TrimSpace(row[cols["status"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		p := models.PaymentRecord{BorrowerID: borrowerID, DueDate: due, Status: status}
		if raw := strings.TrimSpace(row[cols["payment_date"]]); raw != "" {
			paid, err := ParseDate(raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid payment_date: %w", line, err)
			}
			p.PaymentDate = &paid
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// ReadInvestorBorrowers parses an investor_id, borrower_id mapping CSV
func ReadInvestorBorrowers(r io.Reader) ([]models.InvestorBorrower, error) {
	rows, cols, err := readRows(r, "investor_id", "borrower_id")
	if err != nil {
		return nil, err
	}

	links := make([]models.InvestorBorrower, 0, len(rows))
	for i, row := range rows {
		borrowerID, err := parseID(row[cols["borrower_id"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		links = append(links, models.InvestorBorrower{
			InvestorID: strings.TrimSpace(row[cols["investor_id"]]),
			BorrowerID: borrowerID,
		})
	}
	return links, nil
}

// ParseDate accepts a calendar date, optionally followed by a time of day
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid borrower_id %q", s)
	}
	return id, nil
}

func readRows(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("missing header")
	}
	if err != nil {
		return nil, nil, err
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", name)
		}
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(row) < len(header) {
			return nil, nil, fmt.Errorf("line %d: expected %d fields, got %d", len(rows)+2, len(header), len(row))
		}
		rows = append(rows, row)
	}
	return rows, cols, nil
}
