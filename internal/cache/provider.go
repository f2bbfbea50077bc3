// Package cache provides short-lived caching for webhook deduplication and
// subscription status lookups.
package cache

import (
	"context"
	"fmt"
	"time"
)

type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// WebhookKey namespaces one delivery of one provider notification.
func WebhookKey(source, notificationID string) string {
	return fmt.Sprintf("webhook:%s:%s", source, notificationID)
}

// SubscriptionKey namespaces a tenant's cached subscription status.
func SubscriptionKey(tenantID string) string {
	return fmt.Sprintf("subscription:%s", tenantID)
}
