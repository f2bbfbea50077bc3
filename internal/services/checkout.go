// Package services holds the business logic between the HTTP handlers and
// the stores and provider clients.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fornadaapp/fornada/internal/db"
	"github.com/fornadaapp/fornada/internal/logging"
	"github.com/fornadaapp/fornada/internal/mercadopago"
	"github.com/fornadaapp/fornada/internal/observability"
)

var (
	ErrPaymentNotConfigured = errors.New("payment provider is not configured for this tenant")
	ErrCheckoutInvalidInput = errors.New("invalid checkout request")
)

// preferenceCreator is the slice of the Mercado Pago client checkout needs.
type preferenceCreator interface {
	CreatePreference(ctx context.Context, accessToken string, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
}

type tenantGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*db.Tenant, error)
}

// CheckoutService turns a cart into a hosted Mercado Pago checkout.
// It never persists anything; the order row is created by the storefront
// before checkout starts and reconciled by the webhook afterwards.
type CheckoutService struct {
	tenants       tenantGetter
	provider      preferenceCreator
	fallbackToken string
	baseURL       string
	validate      *validator.Validate
	logger        *slog.Logger
}

func NewCheckoutService(tenants tenantGetter, provider preferenceCreator, fallbackToken, baseURL string, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		tenants:       tenants,
		provider:      provider,
		fallbackToken: fallbackToken,
		baseURL:       strings.TrimRight(baseURL, "/"),
		validate:      validator.New(),
		logger:        logger,
	}
}

type CheckoutItemInput struct {
	Name       string  `json:"name" validate:"required"`
	Quantity   int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice  float64 `json:"unitPrice" validate:"gt=0"`
	TotalPrice float64 `json:"totalPrice" validate:"gte=0"`
}

type CheckoutCustomerInput struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type CheckoutInput struct {
	OrderID      uuid.UUID             `json:"orderId" validate:"required"`
	TenantID     uuid.UUID             `json:"tenantId" validate:"required"`
	Items        []CheckoutItemInput   `json:"items" validate:"required,min=1,dive"`
	Total        float64               `json:"total" validate:"required,gt=0"`
	CustomerData CheckoutCustomerInput `json:"customerData" validate:"required"`

	// Origin is the storefront origin taken from the request, used for the
	// post-payment redirect targets. Falls back to the platform base URL.
	Origin string `json:"-"`
}

type CheckoutResult struct {
	CheckoutURL  string `json:"checkoutUrl"`
	PreferenceID string `json:"preferenceId"`
}

// CreateCheckout validates the cart, resolves the tenant's Mercado Pago
// credential and registers a checkout preference. When the tenant has no
// credential the provider is never called.
func (s *CheckoutService) CreateCheckout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.create",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("CreateCheckout"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := logging.FromContext(ctx, s.logger)
	meter := observability.MeterFromContext(ctx)
	recordFailure := func(reason string) {
		meter.Count("checkout.preference.failed", 1, sentry.WithAttributes(
			observability.Reason(reason),
		))
	}

	if err := s.validate.Struct(input); err != nil {
		recordFailure("invalid_input")
		return nil, fmt.Errorf("%w: %v", ErrCheckoutInvalidInput, err)
	}

	tenant, err := s.tenants.GetByID(ctx, input.TenantID)
	if err != nil {
		recordFailure("tenant_lookup_failed")
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	token := s.credentialFor(tenant)
	if token == "" {
		recordFailure("no_credential")
		return nil, ErrPaymentNotConfigured
	}

	pref, err := s.provider.CreatePreference(ctx, token, s.buildPreference(input))
	if err != nil {
		recordFailure("provider_error")
		logger.Error("mercado pago preference creation failed", "error", err, "order_id", input.OrderID, "tenant_id", input.TenantID)
		return nil, fmt.Errorf("failed to create checkout preference: %w", err)
	}

	meter.Count("checkout.preference.created", 1)
	logger.Info("checkout preference created",
		"order_id", input.OrderID,
		"tenant_id", input.TenantID,
		"preference_id", pref.ID,
		"total", input.Total,
	)

	return &CheckoutResult{
		CheckoutURL:  pref.InitPoint,
		PreferenceID: pref.ID,
	}, nil
}

// credentialFor prefers the tenant's own credential. The process-wide token
// only covers installations migrating from the single-tenant era.
func (s *CheckoutService) credentialFor(tenant *db.Tenant) string {
	if tenant.HasPaymentCredential() {
		return tenant.MercadoPagoAccessToken
	}
	return s.fallbackToken
}

func (s *CheckoutService) buildPreference(input CheckoutInput) mercadopago.PreferenceRequest {
	items := make([]mercadopago.PreferenceItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, mercadopago.PreferenceItem{
			Title:      item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			CurrencyID: "BRL",
		})
	}

	redirectBase := strings.TrimRight(input.Origin, "/")
	if redirectBase == "" {
		redirectBase = s.baseURL
	}
	orderRef := input.OrderID.String()

	return mercadopago.PreferenceRequest{
		Items: items,
		Payer: mercadopago.PreferencePayer{
			Name:  input.CustomerData.Name,
			Email: input.CustomerData.Email,
			Phone: mercadopago.PreferencePayerPhone{Number: input.CustomerData.Phone},
			Address: mercadopago.PreferencePayerAddress{
				StreetName: input.CustomerData.Address,
			},
		},
		BackURLs: mercadopago.PreferenceBackURLs{
			Success: fmt.Sprintf("%s/order-success?orderId=%s", redirectBase, orderRef),
			Failure: fmt.Sprintf("%s/order-failed?orderId=%s", redirectBase, orderRef),
			Pending: fmt.Sprintf("%s/order-pending?orderId=%s", redirectBase, orderRef),
		},
		AutoReturn:        "approved",
		ExternalReference: orderRef,
		NotificationURL:   fmt.Sprintf("%s/webhooks/mercadopago?tenant=%s", s.baseURL, input.TenantID),
	}
}
