package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// SMTP intake
	SMTPAddr         string        `env:"SMTP_ADDR" envDefault:":2525"`
	SMTPDomain       string        `env:"SMTP_DOMAIN" envDefault:"tempmail.local"`
	AllowedDomains   []string      `env:"ALLOWED_DOMAINS" envSeparator:"," envDefault:"tempmail.local,test.com"`
	MaxMessageBytes  int64         `env:"MAX_MESSAGE_BYTES" envDefault:"5242880"` // 5MB
	SMTPReadTimeout  time.Duration `env:"SMTP_READ_TIMEOUT" envDefault:"1m"`
	SMTPWriteTimeout time.Duration `env:"SMTP_WRITE_TIMEOUT" envDefault:"1m"`

	// HTTP retrieval API
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`
	SessionSecret string `env:"SESSION_SECRET,required"`

	// Database
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/tempmail.db"`

	// Settings seeded on first run
	SiteTitle           string `env:"SITE_TITLE" envDefault:"RX TempMail - OTP Ready"`
	OwnerPIN            string `env:"OWNER_PIN,required"`
	SubscriptionExpires string `env:"SUBSCRIPTION_EXPIRES" envDefault:"2030-12-31"` // YYYY-MM-DD

	// OTP generation
	OTPDigits int `env:"OTP_DIGITS" envDefault:"6"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(cfg.AllowedDomains) == 0 {
		return nil, fmt.Errorf("ALLOWED_DOMAINS must list at least one domain")
	}
	if cfg.OTPDigits < 4 || cfg.OTPDigits > 8 {
		return nil, fmt.Errorf("OTP_DIGITS must be between 4 and 8, got %d", cfg.OTPDigits)
	}
	if _, err := time.Parse("2006-01-02", cfg.SubscriptionExpires); err != nil {
		return nil, fmt.Errorf("SUBSCRIPTION_EXPIRES must be YYYY-MM-DD: %w", err)
	}

	return cfg, nil
}
