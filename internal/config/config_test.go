package config

import (
	"log/slog"
	"testing"
)

func validConfig() Config {
	return Config{
		DatabaseURL:           "postgres://localhost/fornada",
		BaseURL:               "https://api.fornada.app",
		CacheProvider:         "memory",
		SessionStoreProvider:  "memory",
		RedisConnectionString: "redis://localhost:6379/0",
		EncryptionKey:         "0123456789abcdef0123456789abcdef",
		JWTSecret:             "jwt-secret-jwt-secret-jwt-secret!",
		LogLevel:              slog.LevelInfo,
		LogFormat:             "text",
		Port:                  "8080",
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing database url",
			mutate:  func(c *Config) { c.DatabaseURL = "" },
			wantErr: true,
		},
		{
			name:    "http base url outside localhost",
			mutate:  func(c *Config) { c.BaseURL = "http://api.fornada.app" },
			wantErr: true,
		},
		{
			name:   "http base url on localhost",
			mutate: func(c *Config) { c.BaseURL = "http://localhost:8080" },
		},
		{
			name:    "encryption key wrong length",
			mutate:  func(c *Config) { c.EncryptionKey = "too-short" },
			wantErr: true,
		},
		{
			name:    "google client id without secret",
			mutate:  func(c *Config) { c.GoogleClientID = "client-id" },
			wantErr: true,
		},
		{
			name: "google client pair",
			mutate: func(c *Config) {
				c.GoogleClientID = "client-id"
				c.GoogleClientSecret = "client-secret"
			},
		},
		{
			name:    "stripe key without price",
			mutate:  func(c *Config) { c.StripeSecretKey = "sk_test_123" },
			wantErr: true,
		},
		{
			name: "stripe pair",
			mutate: func(c *Config) {
				c.StripeSecretKey = "sk_test_123"
				c.StripePriceID = "price_123"
			},
		},
		{
			name:    "unknown cache provider",
			mutate:  func(c *Config) { c.CacheProvider = "memcached" },
			wantErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestBillingEnabled(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if cfg.BillingEnabled() {
		t.Fatal("billing should be disabled without a stripe key")
	}

	cfg.StripeSecretKey = "sk_test_123"
	cfg.StripePriceID = "price_123"
	if !cfg.BillingEnabled() {
		t.Fatal("billing should be enabled with a stripe key")
	}
}
