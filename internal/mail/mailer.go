package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/moodnote/auth-service/internal/auth"
	"github.com/moodnote/auth-service/internal/config"
)

// Mailer sends account mail over SMTP. It satisfies auth.Notifier; the
// orchestrator treats sends as fire-and-forget, so a delivery failure
// is only ever logged.
type Mailer struct {
	config *config.MailConfig
	log    *zap.Logger
}

func NewMailer(config *config.MailConfig, log *zap.Logger) *Mailer {
	return &Mailer{
		config: config,
		log:    log,
	}
}

func (m *Mailer) Send(_ context.Context, kind auth.NotificationKind, address string, data map[string]string) error {
	subject, body, err := m.compose(kind, data)
	if err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + m.config.From,
		"To: " + address,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	var a smtp.Auth
	if m.config.Username != "" {
		a = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}
	return smtp.SendMail(addr, a, m.config.From, []string{address}, []byte(msg))
}

func (m *Mailer) compose(kind auth.NotificationKind, data map[string]string) (subject, body string, err error) {
	name := data["name"]

	switch kind {
	case auth.NotifyVerification:
		url := fmt.Sprintf("%s/verify-email?token=%s", m.config.FrontendURL, data["token"])
		subject = "Verify your email"
		body = fmt.Sprintf(
			"Hi %s,\n\nThanks for registering. Verify your email address by opening the link below:\n\n%s\n\nThe link expires in 24 hours. If you didn't create an account, ignore this mail.\n",
			name, url)
	case auth.NotifyPasswordReset:
		subject = "Password reset code"
		body = fmt.Sprintf(
			"Hi %s,\n\nWe received a request to reset your password. Your one-time code:\n\n    %s\n\nThe code expires in 1 hour. If you didn't request a reset, ignore this mail.\n",
			name, data["code"])
	case auth.NotifyPasswordChanged:
		subject = "Your password was changed"
		body = fmt.Sprintf(
			"Hi %s,\n\nYour password has been changed. If this wasn't you, contact support immediately.\n",
			name)
	default:
		return "", "", fmt.Errorf("unknown notification kind %q", kind)
	}
	return subject, body, nil
}

// LogNotifier stands in for SMTP in development and tests: it logs the
// notification instead of delivering it.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, kind auth.NotificationKind, address string, data map[string]string) error {
	n.log.Info("notification (mail disabled)",
		zap.String("kind", string(kind)),
		zap.String("to", address),
		zap.Any("data", data))
	return nil
}
