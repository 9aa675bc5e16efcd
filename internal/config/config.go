package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Dan9191/repayment-predictor/internal/predictor"
	"github.com/joho/godotenv"
)

// Ledger sources
const (
	LedgerSourcePostgres = "postgres"
	LedgerSourceCSV      = "csv"
)

// Config holds application configuration
type Config struct {
	Port     string
	LogLevel string

	LedgerSource         string
	DBConn               string
	PaymentHistoryPath   string
	InvestorBorrowerPath string

	ModelPath  string
	ScalerPath string
	Thresholds predictor.Thresholds

	ReloadSchedule string
	JWTSecret      string
	AdminKeyHash   string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
	AlertEmail   string
}

// NewConfig loads configuration from environment variables. A .env file in
// the working directory is read first if present.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "INFO"),
		LedgerSource:         getEnv("LEDGER_SOURCE", LedgerSourceCSV),
		DBConn:               getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=lending sslmode=disable"),
		PaymentHistoryPath:   getEnv("PAYMENT_HISTORY_PATH", "data/raw/payment_history.csv"),
		InvestorBorrowerPath: getEnv("INVESTOR_BORROWER_PATH", "data/raw/investor_borrower.csv"),
		ModelPath:            getEnv("MODEL_PATH", "saved_models/repayment_model.pmml"),
		ScalerPath:           getEnv("SCALER_PATH", "saved_models/scaler.json"),
		ReloadSchedule:       getEnv("RELOAD_SCHEDULE", "@every 15m"),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		AdminKeyHash:         getEnv("ADMIN_KEY_HASH", ""),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnv("SMTP_PORT", "587"),
		SMTPUsername:         getEnv("SMTP_USERNAME", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		SenderEmail:          getEnv("SENDER_EMAIL", ""),
		AlertEmail:           getEnv("ALERT_EMAIL", ""),
	}

	high, err := getEnvFloat("RISK_THRESHOLD_HIGH", predictor.DefaultHighThreshold)
	if err != nil {
		return nil, err
	}
	medium, err := getEnvFloat("RISK_THRESHOLD_MEDIUM", predictor.DefaultMediumThreshold)
	if err != nil {
		return nil, err
	}
	if cfg.Thresholds, err = predictor.NewThresholds(high, medium); err != nil {
		return nil, fmt.Errorf("invalid risk thresholds: %w", err)
	}

	switch cfg.LedgerSource {
	case LedgerSourcePostgres:
		if cfg.DBConn == "" {
			return nil, fmt.Errorf("DB_CONN is required")
		}
	case LedgerSourceCSV:
		if cfg.PaymentHistoryPath == "" || cfg.InvestorBorrowerPath == "" {
			return nil, fmt.Errorf("PAYMENT_HISTORY_PATH and INVESTOR_BORROWER_PATH are required")
		}
	default:
		return nil, fmt.Errorf("unknown LEDGER_SOURCE %q", cfg.LedgerSource)
	}
	if cfg.ModelPath == "" || cfg.ScalerPath == "" {
		return nil, fmt.Errorf("MODEL_PATH and SCALER_PATH are required")
	}

	return cfg, nil
}

// AlertsEnabled reports whether reload failures should be mailed
func (c *Config) AlertsEnabled() bool {
	return c.SMTPHost != "" && c.SenderEmail != "" && c.AlertEmail != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return v, nil
}
