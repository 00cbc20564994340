package server

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/moodnote/auth-service/internal/api"
	"github.com/moodnote/auth-service/internal/auth"
	"github.com/moodnote/auth-service/internal/config"
	"github.com/moodnote/auth-service/internal/obs"
)

type Server struct {
	config     *config.AppConfig
	log        *zap.Logger
	httpServer *http.Server
}

type Params struct {
	fx.In

	Config         *config.AppConfig
	Logger         *zap.Logger
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.Middleware
}

func NewServer(p Params) *Server {
	obs.Init()

	mux := http.NewServeMux()

	// Endpoints outside api.PublicEndpoints require a bearer access token.
	route := func(path string, handler http.HandlerFunc) {
		if !api.PublicEndpoints[path] {
			handler = p.AuthMiddleware.RequireAuth(handler)
		}
		mux.HandleFunc("POST "+path, handler)
	}

	route(api.AuthRegister, p.AuthHandler.Register)
	route(api.AuthVerifyEmail, p.AuthHandler.VerifyEmail)
	route(api.AuthLogin, p.AuthHandler.Login)
	route(api.AuthRefresh, p.AuthHandler.Refresh)
	route(api.AuthForgotPassword, p.AuthHandler.ForgotPassword)
	route(api.AuthResetPassword, p.AuthHandler.ResetPassword)
	route(api.AuthChangePassword, p.AuthHandler.ChangePassword)
	route(api.AuthLogout, p.AuthHandler.Logout)

	mux.Handle("GET /metrics", obs.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf("%s:%s", p.Config.Server.Host, p.Config.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      obs.Instrument(mux),
		ReadTimeout:  p.Config.Server.ReadTimeout,
		WriteTimeout: p.Config.Server.WriteTimeout,
	}

	return &Server{
		config:     p.Config,
		log:        p.Logger,
		httpServer: httpServer,
	}
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		zap.String("address", s.httpServer.Addr),
		zap.Object("config", serverConfigToField(s.config)),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

func serverConfigToField(config *config.AppConfig) zapcore.ObjectMarshaler {
	return zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		enc.AddString("environment", os.Getenv("APP_ENV"))
		enc.AddInt("max_login_attempts", config.Auth.MaxLoginAttempts)
		enc.AddDuration("lockout_duration", config.Auth.LockoutDuration)
		enc.AddDuration("access_token_duration", config.Auth.AccessTokenDuration)
		enc.AddDuration("refresh_token_duration", config.Auth.RefreshTokenDuration)
		return nil
	})
}

func (s *Server) Stop() {
	s.log.Info("shutting down HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("graceful shutdown failed", zap.Error(err))
	}
}
