// Package email delivers transactional mail over SMTP.
package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
)

// Config carries the SMTP transport settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends welcome and password-reset mail. Delivery is synchronous;
// callers decide whether a failure is fatal (password reset) or merely
// logged (welcome).
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	log    zerolog.Logger
}

func NewMailer(cfg Config, log zerolog.Logger) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		log:    log,
	}
}

func (m *Mailer) SendWelcome(ctx context.Context, user *domain.User, url string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome aboard! Your account is ready.\nManage it here: %s\n",
		firstName(user.Name), url,
	)
	return m.send(ctx, user.Email, "Welcome to Summit Trails!", body)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, user *domain.User, resetURL string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nForgot your password? Submit a PATCH request with your new password to:\n%s\n\nThe link is valid for 10 minutes. If you did not request a reset, ignore this email.\n",
		firstName(user.Name), resetURL,
	)
	return m.send(ctx, user.Email, "Your password reset token (valid for 10 minutes)", body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.log.Error().Err(err).Str("to", to).Str("subject", subject).Msg("mail delivery failed")
		return fmt.Errorf("send mail: %w", err)
	}
	m.log.Info().Str("to", to).Str("subject", subject).Msg("mail sent")
	return nil
}

func firstName(full string) string {
	for i, r := range full {
		if r == ' ' {
			return full[:i]
		}
	}
	return full
}
