package auth

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/moodnote/auth-service/internal/config"
)

// NewModule returns the auth module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			// Provide repository
			fx.Annotate(
				func(db *gorm.DB) Repository {
					return NewRepository(db)
				},
			),
			// Provide token forge
			fx.Annotate(
				func(config *config.AppConfig) *TokenForge {
					return NewTokenForge(&config.Auth)
				},
			),
			// Provide service
			fx.Annotate(
				func(config *config.AppConfig, log *zap.Logger, repo Repository, notifier Notifier) *Service {
					return NewService(&config.Auth, log, repo, notifier)
				},
			),
			// Provide handler
			fx.Annotate(
				func(svc *Service, log *zap.Logger) *Handler {
					return NewHandler(svc, log)
				},
			),
			// Provide middleware
			fx.Annotate(
				func(forge *TokenForge) *Middleware {
					return NewMiddleware(forge)
				},
			),
		),
	)
}
