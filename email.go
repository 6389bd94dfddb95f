package kraackauth

import "log/slog"

// EmailSender lets applications plug in their own delivery (Resend, SES,
// SMTP, ...).  The flows only hand over the token value or link; rendering
// is the sender's problem.
type EmailSender interface {
	SendVerificationEmail(to string, verificationLink string) error
	SendPasswordResetEmail(to string, resetLink string) error
	SendTwoFactorCodeEmail(to string, code string) error
}

// ConsoleEmailSender is a development implementation that logs emails
// instead of sending them.
type ConsoleEmailSender struct{}

func (c *ConsoleEmailSender) SendVerificationEmail(to string, verificationLink string) error {
	slog.Info("email: verify your email address", "to", to, "link", verificationLink)
	return nil
}

func (c *ConsoleEmailSender) SendPasswordResetEmail(to string, resetLink string) error {
	slog.Info("email: reset your password", "to", to, "link", resetLink)
	return nil
}

func (c *ConsoleEmailSender) SendTwoFactorCodeEmail(to string, code string) error {
	slog.Info("email: your two-factor code", "to", to, "code", code)
	return nil
}
