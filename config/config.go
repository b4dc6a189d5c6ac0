package config

import (
	"fmt"
	"strings"
	"time"

	"hotel-booking/utils"
)

type Config struct {
	Port     string
	AppEnv   string
	DBDriver string

	JWTSecret    string
	JWTExpiresIn time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string
	PaymentCurrency     string
	PaymentTimeout      time.Duration
	BaseURL             string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	SweepInterval    time.Duration
	SweepGraceWindow time.Duration
	SweepBatchSize   int

	RedisURL    string
	CORSOrigins string

	LogLevel     string
	LogFile      string
	LogMaxSizeMB int

	SeedDatabase bool
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads the configuration from the environment. Malformed durations and
// numbers are reported instead of silently falling back.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                utils.EnvOrDefault("PORT", "8080"),
		AppEnv:              strings.ToLower(utils.EnvOrDefault("APP_ENV", "development")),
		DBDriver:            strings.ToLower(utils.EnvOrDefault("DB_DRIVER", "mysql")),
		JWTSecret:           utils.EnvOrDefault("JWT_SECRET", ""),
		StripeSecretKey:     utils.EnvOrDefault("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: utils.EnvOrDefault("STRIPE_WEBHOOK_SECRET", ""),
		PaymentCurrency:     utils.EnvOrDefault("PAYMENT_CURRENCY", "egp"),
		BaseURL:             utils.EnvOrDefault("BASE_URL", "http://localhost:8080"),
		SMTPHost:            utils.EnvOrDefault("SMTP_HOST", ""),
		SMTPUsername:        utils.EnvOrDefault("SMTP_USERNAME", ""),
		SMTPPassword:        utils.EnvOrDefault("SMTP_PASSWORD", ""),
		SMTPFrom:            utils.EnvOrDefault("SMTP_FROM", ""),
		RedisURL:            utils.EnvOrDefault("REDIS_URL", ""),
		CORSOrigins:         utils.EnvOrDefault("CORS_ORIGINS", ""),
		LogLevel:            utils.EnvOrDefault("LOG_LEVEL", "info"),
		LogFile:             utils.EnvOrDefault("LOG_FILE", ""),
	}
	cfg.SeedDatabase = utils.EnvBool("SEED_DATABASE", !cfg.IsProduction())

	var err error
	if cfg.JWTExpiresIn, err = utils.EnvDuration("JWT_EXPIRES_IN", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PaymentTimeout, err = utils.EnvDuration("PAYMENT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = utils.EnvDuration("SWEEP_INTERVAL", 20*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SweepGraceWindow, err = utils.EnvDuration("SWEEP_GRACE_WINDOW", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SweepBatchSize, err = utils.EnvInt("SWEEP_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = utils.EnvInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.LogMaxSizeMB, err = utils.EnvInt("LOG_MAX_SIZE_MB", 10); err != nil {
		return nil, err
	}

	switch cfg.DBDriver {
	case "mysql", "memory":
	default:
		return nil, fmt.Errorf("DB_DRIVER: unsupported driver %q (mysql|memory)", cfg.DBDriver)
	}
	if cfg.SweepBatchSize <= 0 {
		return nil, fmt.Errorf("SWEEP_BATCH_SIZE: must be positive, got %d", cfg.SweepBatchSize)
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = "dev-secret-change-me"
	}
	return cfg, nil
}
