package config

import (
	"fmt"
	"time"
)

// JWTConfig holds the five independent signing contexts. Each token kind
// carries its own secret so a leaked or rotated secret only invalidates
// one credential class.
type JWTConfig struct {
	Issuer string

	AccessSecret string
	AccessTTL    time.Duration

	RefreshSecret string
	RefreshTTL    time.Duration

	AuthCodeSecret string
	AuthCodeTTL    time.Duration

	PasswordResetSecret string
	PasswordResetTTL    time.Duration

	// Account setup links are long-lived: a zero TTL means no expiry claim.
	AccountSetupSecret string
	AccountSetupTTL    time.Duration
}

func loadJWTConfig() JWTConfig {
	cfg := JWTConfig{
		Issuer:              getEnv("JWT_ISSUER", "authgate"),
		AccessSecret:        getEnv("JWT_ACCESS_TOKEN_SECRET", ""),
		AccessTTL:           getEnvDuration("JWT_ACCESS_TOKEN_EXPIRY_SECONDS", 15*time.Minute),
		RefreshSecret:       getEnv("JWT_REFRESH_TOKEN_SECRET", ""),
		RefreshTTL:          getEnvDuration("JWT_REFRESH_TOKEN_EXPIRY_SECONDS", 7*24*time.Hour),
		AuthCodeSecret:      getEnv("JWT_AUTHORIZATION_TOKEN_SECRET", ""),
		AuthCodeTTL:         getEnvDuration("JWT_AUTHORIZATION_TOKEN_EXPIRY_SECONDS", 5*time.Minute),
		PasswordResetSecret: getEnv("JWT_PASSWORD_RESET_TOKEN_SECRET", ""),
		PasswordResetTTL:    getEnvDuration("JWT_PASSWORD_RESET_TOKEN_EXPIRY_SECONDS", time.Hour),
		AccountSetupSecret:  getEnv("JWT_ACCOUNT_SETUP_TOKEN_SECRET", ""),
		AccountSetupTTL:     getEnvDuration("JWT_ACCOUNT_SETUP_TOKEN_EXPIRY_SECONDS", 0),
	}

	// Action-token secrets fall back to the authorization-code secret when
	// not configured separately.
	if cfg.PasswordResetSecret == "" {
		cfg.PasswordResetSecret = cfg.AuthCodeSecret
	}
	if cfg.AccountSetupSecret == "" {
		cfg.AccountSetupSecret = cfg.PasswordResetSecret
	}

	return cfg
}

func (c JWTConfig) validate() error {
	missing := []string{}
	if c.AccessSecret == "" {
		missing = append(missing, "JWT_ACCESS_TOKEN_SECRET")
	}
	if c.RefreshSecret == "" {
		missing = append(missing, "JWT_REFRESH_TOKEN_SECRET")
	}
	if c.AuthCodeSecret == "" {
		missing = append(missing, "JWT_AUTHORIZATION_TOKEN_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing JWT secrets: %v", missing)
	}
	return nil
}
