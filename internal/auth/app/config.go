package app

import (
	"fmt"
	"os"
	"time"

	"github.com/edustack/auth/pkg/jwtx"
)

// Config holds everything the service reads from the environment.
type Config struct {
	// HTTPAddr is the listen address, e.g. ":8080".
	HTTPAddr string

	// DatabaseFile is the SQLite database path.
	DatabaseFile string

	// PepperFile stores the argon2 pepper. Created on first start.
	PepperFile string

	// JWTSecret signs access tokens. Must be at least 32 bytes.
	JWTSecret string

	// JWTIssuer is the iss claim stamped into access tokens.
	JWTIssuer string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResetTokenTTL   time.Duration

	// InternalAPIKey guards the /v1/internal surface. Empty disables it.
	InternalAPIKey string

	// Notifier selects the delivery backend: "console" or "smtp".
	Notifier string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	HousekeepingInterval time.Duration
	ShutdownGrace        time.Duration

	LogLevel  string
	LogFormat string
	Env       string

	EnableSwagger bool
}

// LoadConfig reads the configuration from environment variables. It
// returns an error for settings the service cannot run without.
func LoadConfig() (Config, error) {
	cfg := Config{
		HTTPAddr:     getEnvOrDefault("AUTH_HTTP_ADDR", ":8080"),
		DatabaseFile: getEnvOrDefault("AUTH_DB_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper.key"),

		JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
		JWTIssuer: getEnvOrDefault("AUTH_JWT_ISSUER", "edustack-auth"),

		AccessTokenTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTokenTTL: getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		ResetTokenTTL:   getEnvDurationOrDefault("AUTH_RESET_TTL", time.Hour),

		InternalAPIKey: os.Getenv("AUTH_INTERNAL_API_KEY"),

		Notifier:     getEnvOrDefault("AUTH_NOTIFIER", "console"),
		SMTPHost:     os.Getenv("AUTH_SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("AUTH_SMTP_PORT", 587),
		SMTPUsername: os.Getenv("AUTH_SMTP_USERNAME"),
		SMTPPassword: os.Getenv("AUTH_SMTP_PASSWORD"),
		SMTPFrom:     getEnvOrDefault("AUTH_SMTP_FROM", "no-reply@edustack.local"),

		HousekeepingInterval: getEnvDurationOrDefault("AUTH_HOUSEKEEPING_INTERVAL", time.Hour),
		ShutdownGrace:        getEnvDurationOrDefault("AUTH_SHUTDOWN_GRACE", 10*time.Second),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Env:       getEnvOrDefault("AUTH_ENV", "dev"),

		EnableSwagger: getEnvOrDefault("AUTH_ENABLE_SWAGGER", "true") == "true",
	}

	if len(cfg.JWTSecret) < jwtx.MinSecretBytes {
		return Config{}, fmt.Errorf("AUTH_JWT_SECRET missing or shorter than %d bytes", jwtx.MinSecretBytes)
	}
	if cfg.Notifier != "console" && cfg.Notifier != "smtp" {
		return Config{}, fmt.Errorf("AUTH_NOTIFIER must be console or smtp, got %q", cfg.Notifier)
	}
	if cfg.Notifier == "smtp" && cfg.SMTPHost == "" {
		return Config{}, fmt.Errorf("AUTH_SMTP_HOST is required with the smtp notifier")
	}

	return cfg, nil
}

func getEnvOrDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvDurationOrDefault(key string, def time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		var n int
		if _, err := fmt.Sscanf(val, "%d", &n); err == nil && n > 0 {
			return n
		}
	}
	return def
}
