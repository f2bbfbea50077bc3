package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProvider(t *testing.T) {
	t.Parallel()

	provider, err := NewMemoryProvider()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if _, err := provider.Get(ctx, WebhookKey("mercadopago", "n1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := provider.Set(ctx, WebhookKey("mercadopago", "n1"), "processed", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, err := provider.Get(ctx, WebhookKey("mercadopago", "n1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "processed" {
		t.Fatalf("Get() = %q, want %q", value, "processed")
	}

	if err := provider.Delete(ctx, WebhookKey("mercadopago", "n1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := provider.Get(ctx, WebhookKey("mercadopago", "n1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryProviderExpiry(t *testing.T) {
	t.Parallel()

	provider, err := NewMemoryProvider()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if err := provider.Set(ctx, "k", "v", -time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := provider.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired key to report ErrNotFound, got %v", err)
	}
}
