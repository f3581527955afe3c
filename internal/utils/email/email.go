package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/lucasvidela94/wallet-service/internal/config"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendPasswordReset sends a password reset token to the account holder
func (s *Sender) SendPasswordReset(to, username, token string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Password Reset Request"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"A password reset was requested for your wallet account.\n"+
			"Use the following code within 24 hours to choose a new password:\n\n"+
			"    %s\n\n"+
			"If you did not request this, you can safely ignore this message.\n",
		username, token,
	)
	body += "\nBest regards,\nWallet Service"
	e.Text = []byte(body)

	return s.send(e)
}

// SendInstallmentReminder notifies the holder of an upcoming or overdue
// installment
func (s *Sender) SendInstallmentReminder(to, username string, dueAt time.Time, amount decimal.Decimal, isOverdue bool) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	if isOverdue {
		e.Subject = "Overdue Installment Notification"
	} else {
		e.Subject = "Upcoming Installment Reminder"
	}

	body := fmt.Sprintf("Dear %s,\n\n", username)
	if isOverdue {
		body += fmt.Sprintf(
			"Your installment of %s was due on %s and is now overdue.\n"+
				"Please make the payment as soon as possible.\n",
			amount.StringFixed(2), dueAt.Format("2006-01-02"),
		)
	} else {
		body += fmt.Sprintf(
			"This is a reminder that your installment of %s is due on %s.\n"+
				"Please ensure sufficient funds are available in your account.\n",
			amount.StringFixed(2), dueAt.Format("2006-01-02"),
		)
	}
	body += "\nBest regards,\nWallet Service"
	e.Text = []byte(body)

	return s.send(e)
}

func (s *Sender) send(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %v: %v", e.To, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %v: %s", e.To, e.Subject)
	return nil
}
