package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/Dan9191/repayment-predictor/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendReloadFailure notifies operators that the ledger or model artifacts
// could not be reloaded
func (s *Sender) SendReloadFailure(cause error, at time.Time, serving bool) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.AlertEmail}
	e.Subject = "Repayment predictor reload failed"

	body := fmt.Sprintf(
		"The repayment predictor could not reload its ledger and model artifacts at %s.\n\n"+
			"Error: %v\n\n", at.Format("2006-01-02 15:04:05"), cause,
	)
	if serving {
		body += "The service keeps serving predictions from the previously loaded data.\n"
	} else {
		body += "No data has been loaded yet: every prediction request is rejected as not ready.\n"
	}
	body += "\nRepayment Predictor"
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send reload alert to %s: %v", s.cfg.AlertEmail, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.AlertEmail, e.Subject)
	return nil
}
