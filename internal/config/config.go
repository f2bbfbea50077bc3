package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	// BaseURL is the public URL of this service. It is embedded in the
	// notification URL handed to Mercado Pago, so it must be reachable from
	// the provider's infrastructure.
	BaseURL string `env:"BASE_URL,required" validate:"required,url"`

	// MercadoPagoAccessToken is the legacy process-wide credential. Tenants
	// with their own token always win; this only covers installations that
	// have not migrated to per-tenant credentials yet.
	MercadoPagoAccessToken string `env:"MERCADOPAGO_ACCESS_TOKEN"`

	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`
	StripePriceID   string `env:"STRIPE_PRICE_ID"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	SessionStoreProvider  string `env:"SESSION_STORE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis,required_if=SessionStoreProvider redis"`

	EncryptionKey string `env:"ENCRYPTION_KEY,required" validate:"required,len=32"`
	JWTSecret     string `env:"JWT_SECRET,required" validate:"required,min=32"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	LogFile   string     `env:"LOG_FILE"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	hasGoogleClientID := strings.TrimSpace(c.GoogleClientID) != ""
	hasGoogleClientSecret := strings.TrimSpace(c.GoogleClientSecret) != ""
	if hasGoogleClientID != hasGoogleClientSecret {
		return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}

	hasStripeKey := strings.TrimSpace(c.StripeSecretKey) != ""
	hasStripePrice := strings.TrimSpace(c.StripePriceID) != ""
	if hasStripeKey != hasStripePrice {
		return fmt.Errorf("STRIPE_SECRET_KEY and STRIPE_PRICE_ID must be set together")
	}

	baseURL := strings.TrimSpace(c.BaseURL)
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("BASE_URL must be a valid absolute URL")
	}
	if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("BASE_URL must use https outside local development")
	}

	return nil
}

// BillingEnabled reports whether platform subscription billing is configured.
func (c *Config) BillingEnabled() bool {
	return strings.TrimSpace(c.StripeSecretKey) != ""
}

// GoogleLoginEnabled reports whether merchant Google sign-in is configured.
func (c *Config) GoogleLoginEnabled() bool {
	return strings.TrimSpace(c.GoogleClientID) != ""
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
