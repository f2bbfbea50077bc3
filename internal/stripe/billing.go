// Package stripe provides subscription billing for the platform.
//
// Tenants pay for the storefront itself through Stripe; customer-facing
// pizza payments go through Mercado Pago instead.
package stripe

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
)

// BillingClient handles platform subscription operations.
type BillingClient struct {
	client  *stripe.Client
	priceID string
	baseURL string
}

// NewBillingClient creates a billing client for the platform account.
// priceID is the recurring price every tenant subscribes to.
func NewBillingClient(secretKey, priceID, baseURL string) *BillingClient {
	return &BillingClient{
		client:  stripe.NewClient(secretKey),
		priceID: priceID,
		baseURL: baseURL,
	}
}

// SubscriptionCheckoutParams holds parameters for starting a subscription.
type SubscriptionCheckoutParams struct {
	TenantID         uuid.UUID
	MerchantEmail    string
	StripeCustomerID string // reuse the customer when the tenant subscribed before
	SuccessURL       string
	CancelURL        string
}

// CreateSubscriptionCheckout creates a checkout session in subscription mode.
func (c *BillingClient) CreateSubscriptionCheckout(ctx context.Context, params SubscriptionCheckoutParams) (*stripe.CheckoutSession, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}

	successURL := params.SuccessURL
	if successURL == "" {
		successURL = c.baseURL + "/admin/billing?status=success"
	}
	cancelURL := params.CancelURL
	if cancelURL == "" {
		cancelURL = c.baseURL + "/admin/billing?status=cancelled"
	}

	sessionParams := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(c.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail: stripe.String(params.MerchantEmail),
		Metadata: map[string]string{
			"tenant_id": params.TenantID.String(),
		},
	}

	if params.MerchantEmail == "" {
		sessionParams.CustomerEmail = nil
	}
	// An existing customer and an email are mutually exclusive on a session.
	if params.StripeCustomerID != "" {
		sessionParams.Customer = stripe.String(params.StripeCustomerID)
		sessionParams.CustomerEmail = nil
	}

	sess, err := c.client.V1CheckoutSessions.Create(ctx, sessionParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription checkout session: %w", err)
	}

	return sess, nil
}

// GetCheckoutSession retrieves a checkout session, used after the success
// redirect to capture the customer and subscription ids.
func (c *BillingClient) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}

	sess, err := c.client.V1CheckoutSessions.Retrieve(ctx, sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}
	return sess, nil
}

// GetSubscription retrieves a subscription's current state.
func (c *BillingClient) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}

	sub, err := c.client.V1Subscriptions.Retrieve(ctx, subscriptionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// SubscriptionActive reports whether a subscription status grants access.
func SubscriptionActive(status stripe.SubscriptionStatus) bool {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return true
	default:
		return false
	}
}
