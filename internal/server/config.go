package server

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/moodnote/auth-service/internal/config"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

func LoadConfig() (*config.AppConfig, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = EnvDevelopment
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath("./config/server")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg config.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Environment-specific overlays, e.g. [server.production].
	if envSettings := v.GetStringMap(fmt.Sprintf("server.%s", env)); len(envSettings) > 0 {
		if err := v.UnmarshalKey(fmt.Sprintf("server.%s", env), &cfg.Server); err != nil {
			return nil, fmt.Errorf("error unmarshaling env config: %w", err)
		}
	}

	if err := validateAuthConfig(&cfg.Auth); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("auth.access_token_duration", 24*time.Hour)
	v.SetDefault("auth.refresh_token_duration", 7*24*time.Hour)
	v.SetDefault("auth.verification_duration", 24*time.Hour)
	v.SetDefault("auth.reset_duration", time.Hour)
	v.SetDefault("auth.max_login_attempts", 5)
	v.SetDefault("auth.lockout_duration", 15*time.Minute)
	v.SetDefault("auth.bcrypt_cost", 12)
}

func validateAuthConfig(cfg *config.AuthConfig) error {
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return fmt.Errorf("auth: access and refresh token secrets must be set")
	}
	// Compromise of one secret must not allow forging the other family.
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return fmt.Errorf("auth: access and refresh token secrets must differ")
	}
	return nil
}
