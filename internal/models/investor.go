package models

// InvestorBorrower links an investor to a borrower they funded
type InvestorBorrower struct {
	InvestorID string `json:"investor_id"`
	BorrowerID int64  `json:"borrower_id"`
}
