package auth

import "context"

type NotificationKind string

const (
	NotifyVerification    NotificationKind = "verification"
	NotifyPasswordReset   NotificationKind = "reset"
	NotifyPasswordChanged NotificationKind = "passwordChanged"
)

// Notifier delivers account mail. Implementations are fire-and-forget
// from the orchestrator's point of view: a send failure is logged and
// never fails the surrounding auth flow.
type Notifier interface {
	Send(ctx context.Context, kind NotificationKind, address string, data map[string]string) error
}
