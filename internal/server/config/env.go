package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig is an intermediate DTO for environment variables. Durations are
// accepted as integers matching the variable names (minutes or days) and
// converted to time.Duration when copied into Config.
type envConfig struct {
	EndpointAddr             string `env:"RUN_ADDRESS"`
	DatabaseDSN              string `env:"DATABASE_DSN"`
	SecretKey                string `env:"JWT_SECRET_KEY"`
	SigningAlgorithm         string `env:"JWT_ALGORITHM"`
	AccessTokenExpireMinutes int    `env:"JWT_ACCESS_TOKEN_EXPIRE_MINUTES"`
	RefreshTokenExpireDays   int    `env:"JWT_REFRESH_TOKEN_EXPIRE_DAYS"`
	TokenCleanupMinutes      int    `env:"TOKEN_CLEANUP_MINUTES"`
}

// parseEnv overlays values from environment variables onto the provided
// Config. Variables that are unset leave the current values untouched.
func parseEnv(config *Config) error {
	c := &envConfig{}
	if err := env.Parse(c); err != nil {
		return err
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.SigningAlgorithm != "" {
		config.SigningAlgorithm = c.SigningAlgorithm
	}
	if c.AccessTokenExpireMinutes != 0 {
		config.AccessTokenValidityDuration = time.Duration(c.AccessTokenExpireMinutes) * time.Minute
	}
	if c.RefreshTokenExpireDays != 0 {
		config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenExpireDays) * 24 * time.Hour
	}
	if c.TokenCleanupMinutes != 0 {
		config.ReaperInterval = time.Duration(c.TokenCleanupMinutes) * time.Minute
	}
	return nil
}
