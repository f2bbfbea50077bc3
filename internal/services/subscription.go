package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/google/uuid"

	"github.com/fornadaapp/fornada/internal/cache"
	"github.com/fornadaapp/fornada/internal/logging"
	"github.com/fornadaapp/fornada/internal/stripe"
)

var ErrBillingUnavailable = errors.New("billing is not enabled on this installation")

const subscriptionStatusTTL = 5 * time.Minute

type billingClient interface {
	CreateSubscriptionCheckout(ctx context.Context, params stripe.SubscriptionCheckoutParams) (*stripeapi.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripeapi.CheckoutSession, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*stripeapi.Subscription, error)
}

type tenantBillingStore interface {
	tenantGetter
	UpdateStripeSubscription(ctx context.Context, id uuid.UUID, customerID, subscriptionID string) error
}

// SubscriptionService manages the tenant's platform subscription. Status is
// polled from Stripe and cached rather than driven by webhooks.
type SubscriptionService struct {
	billing billingClient
	tenants tenantBillingStore
	cache   cache.Provider
	logger  *slog.Logger
}

func NewSubscriptionService(billing billingClient, tenants tenantBillingStore, cacheProvider cache.Provider, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		billing: billing,
		tenants: tenants,
		cache:   cacheProvider,
		logger:  logger,
	}
}

// Enabled reports whether this installation was configured with Stripe keys.
func (s *SubscriptionService) Enabled() bool {
	return s != nil && s.billing != nil
}

// StartCheckout creates a Stripe checkout session for the tenant's
// subscription and returns the redirect URL.
func (s *SubscriptionService) StartCheckout(ctx context.Context, tenantID uuid.UUID, merchantEmail string) (string, error) {
	if !s.Enabled() {
		return "", ErrBillingUnavailable
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("failed to get tenant: %w", err)
	}

	sess, err := s.billing.CreateSubscriptionCheckout(ctx, stripe.SubscriptionCheckoutParams{
		TenantID:         tenantID,
		MerchantEmail:    merchantEmail,
		StripeCustomerID: tenant.StripeCustomerID,
	})
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// CompleteCheckout records the customer and subscription ids after the
// merchant returns from a successful checkout.
func (s *SubscriptionService) CompleteCheckout(ctx context.Context, tenantID uuid.UUID, sessionID string) error {
	if !s.Enabled() {
		return ErrBillingUnavailable
	}

	sess, err := s.billing.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Customer == nil || sess.Subscription == nil {
		return fmt.Errorf("checkout session %s has no subscription attached", sessionID)
	}

	if err := s.tenants.UpdateStripeSubscription(ctx, tenantID, sess.Customer.ID, sess.Subscription.ID); err != nil {
		return fmt.Errorf("failed to record subscription: %w", err)
	}

	s.invalidateStatus(ctx, tenantID)
	logging.FromContext(ctx, s.logger).Info("subscription recorded",
		"tenant_id", tenantID, "subscription_id", sess.Subscription.ID)
	return nil
}

// SubscriptionStatus is the admin-facing billing state.
type SubscriptionStatus struct {
	Subscribed bool   `json:"subscribed"`
	Status     string `json:"status,omitempty"`
	TrialEnd   int64  `json:"trial_end,omitempty"`
}

// Status returns the tenant's subscription state, cached for a few minutes
// to keep admin page loads off the Stripe API.
func (s *SubscriptionService) Status(ctx context.Context, tenantID uuid.UUID) (*SubscriptionStatus, error) {
	if !s.Enabled() {
		return nil, ErrBillingUnavailable
	}

	logger := logging.FromContext(ctx, s.logger)
	key := cache.SubscriptionKey(tenantID.String())

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			return &SubscriptionStatus{
				Subscribed: cached == "subscribed",
				Status:     cachedStatusLabel(cached),
			}, nil
		}
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	if tenant.StripeSubscriptionID == "" {
		return &SubscriptionStatus{Subscribed: false}, nil
	}

	sub, err := s.billing.GetSubscription(ctx, tenant.StripeSubscriptionID)
	if err != nil {
		return nil, err
	}

	status := &SubscriptionStatus{
		Subscribed: stripe.SubscriptionActive(sub.Status),
		Status:     string(sub.Status),
		TrialEnd:   sub.TrialEnd,
	}

	if s.cache != nil {
		value := "unsubscribed"
		if status.Subscribed {
			value = "subscribed"
		}
		if err := s.cache.Set(ctx, key, value, subscriptionStatusTTL); err != nil {
			logger.Warn("failed to cache subscription status", "error", err)
		}
	}
	return status, nil
}

func cachedStatusLabel(cached string) string {
	if cached == "subscribed" {
		return "active"
	}
	return ""
}

func (s *SubscriptionService) invalidateStatus(ctx context.Context, tenantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.SubscriptionKey(tenantID.String())); err != nil && s.logger != nil {
		s.logger.Warn("failed to invalidate subscription status", "error", err)
	}
}
