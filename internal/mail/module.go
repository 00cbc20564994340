package mail

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/moodnote/auth-service/internal/auth"
	"github.com/moodnote/auth-service/internal/config"
)

// Module provides the auth.Notifier implementation: SMTP when mail is
// enabled, the log-only notifier otherwise.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(config *config.AppConfig, log *zap.Logger) auth.Notifier {
					if config.Mail.Enabled {
						return NewMailer(&config.Mail, log)
					}
					return NewLogNotifier(log)
				},
			),
		),
	)
}
