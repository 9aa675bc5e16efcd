package models

// RiskLevel is the discrete risk tier derived from a predicted percentage
type RiskLevel string

const (
	RiskHigh   RiskLevel = "High Risk"
	RiskMedium RiskLevel = "Medium Risk"
	RiskLow    RiskLevel = "Low Risk"
)

// Summary represents the repayment record of a borrower
type Summary struct {
	TotalPayments    int     `json:"total_payments"`
	OnTime           int     `json:"on_time"`
	Missed           int     `json:"missed"`
	Due              int     `json:"due"`
	AverageDelayDays float64 `json:"average_delay_days"`
	MaxDelayDays     int     `json:"max_delay_days"`
}

// PredictionResult is returned to the investor for a single borrower
type PredictionResult struct {
	Summary                      Summary   `json:"borrower_repayment_summary"`
	PredictedRepaymentPercentage float64   `json:"predicted_repayment_percentage"`
	RiskLevel                    RiskLevel `json:"risk_level"`
}
