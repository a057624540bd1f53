// Package email delivers transactional mail for the portal. The only
// outbound mail today is the password reset link.
package email

import (
	"context"

	"factory_portal_backend/platform/config"
	"factory_portal_backend/platform/logger"
)

// Sender delivers transactional emails.
type Sender interface {
	SendPasswordResetEmail(ctx context.Context, toEmail, resetURL string) error
}

// NewSender builds the configured sender. When email is disabled the noop
// sender logs instead of delivering, which keeps local setups working
// without an SMTP server.
func NewSender(cfg config.EmailConfig, log *logger.Logger) Sender {
	if !cfg.GetEmailEnabled() {
		log.Warn("email sending disabled; password reset links will only be logged")
		return &noopSender{log: log}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}

type noopSender struct {
	log *logger.Logger
}

func (n *noopSender) SendPasswordResetEmail(ctx context.Context, toEmail, resetURL string) error {
	n.log.Info("password reset email suppressed", "to", toEmail, "url", resetURL)
	return nil
}
