package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/fornadaapp/fornada/internal/db"
	"github.com/fornadaapp/fornada/internal/mercadopago"
)

type fakePreferenceCreator struct {
	pref     *mercadopago.Preference
	err      error
	calls    int
	lastTok  string
	lastReq  mercadopago.PreferenceRequest
}

func (f *fakePreferenceCreator) CreatePreference(_ context.Context, accessToken string, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error) {
	f.calls++
	f.lastTok = accessToken
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.pref, nil
}

func checkoutFixture(tenantID, orderID uuid.UUID) CheckoutInput {
	return CheckoutInput{
		OrderID:  orderID,
		TenantID: tenantID,
		Items: []CheckoutItemInput{
			{Name: "Pizza Margherita (Grande)", Quantity: 1, UnitPrice: 38.50, TotalPrice: 38.50},
			{Name: "Guaraná 2L", Quantity: 1, UnitPrice: 4.00, TotalPrice: 4.00},
		},
		Total: 42.50,
		CustomerData: CheckoutCustomerInput{
			Name:  "Maria Silva",
			Email: "maria@example.com",
			Phone: "+55 11 99999-0000",
		},
		Origin: "https://pizzaria-do-bairro.fornada.app",
	}
}

func TestCreateCheckout(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	orderID := uuid.New()

	tenants := &fakeTenantStore{tenants: map[uuid.UUID]*db.Tenant{
		tenantID: {ID: tenantID, Name: "Pizzaria do Bairro", MercadoPagoAccessToken: "APP_USR-tenant-token"},
	}}
	provider := &fakePreferenceCreator{pref: &mercadopago.Preference{
		ID:        "pref-123",
		InitPoint: "https://www.mercadopago.com.br/checkout/v1/redirect?pref_id=pref-123",
	}}

	service := NewCheckoutService(tenants, provider, "", "https://fornada.app", slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := service.CreateCheckout(context.Background(), checkoutFixture(tenantID, orderID))
	if err != nil {
		t.Fatalf("CreateCheckout() error = %v", err)
	}

	if result.PreferenceID != "pref-123" {
		t.Errorf("PreferenceID = %q, want %q", result.PreferenceID, "pref-123")
	}
	if result.CheckoutURL != provider.pref.InitPoint {
		t.Errorf("CheckoutURL = %q, want init point", result.CheckoutURL)
	}
	if provider.lastTok != "APP_USR-tenant-token" {
		t.Errorf("provider called with token %q, want tenant token", provider.lastTok)
	}

	req := provider.lastReq
	if req.ExternalReference != orderID.String() {
		t.Errorf("ExternalReference = %q, want order id", req.ExternalReference)
	}
	if len(req.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(req.Items))
	}
	if req.Items[0].CurrencyID != "BRL" {
		t.Errorf("CurrencyID = %q, want BRL", req.Items[0].CurrencyID)
	}
	if req.Items[0].UnitPrice != 38.50 {
		t.Errorf("UnitPrice = %v, want 38.50", req.Items[0].UnitPrice)
	}
	if req.AutoReturn != "approved" {
		t.Errorf("AutoReturn = %q, want approved", req.AutoReturn)
	}

	wantSuccess := "https://pizzaria-do-bairro.fornada.app/order-success?orderId=" + orderID.String()
	if req.BackURLs.Success != wantSuccess {
		t.Errorf("BackURLs.Success = %q, want %q", req.BackURLs.Success, wantSuccess)
	}
	if !strings.HasPrefix(req.BackURLs.Failure, "https://pizzaria-do-bairro.fornada.app/order-failed") {
		t.Errorf("BackURLs.Failure = %q, want storefront order-failed url", req.BackURLs.Failure)
	}
	if !strings.HasPrefix(req.BackURLs.Pending, "https://pizzaria-do-bairro.fornada.app/order-pending") {
		t.Errorf("BackURLs.Pending = %q, want storefront order-pending url", req.BackURLs.Pending)
	}

	wantNotification := "https://fornada.app/webhooks/mercadopago?tenant=" + tenantID.String()
	if req.NotificationURL != wantNotification {
		t.Errorf("NotificationURL = %q, want %q", req.NotificationURL, wantNotification)
	}
}

func TestCreateCheckoutWithoutOriginFallsBackToBaseURL(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	orderID := uuid.New()

	tenants := &fakeTenantStore{tenants: map[uuid.UUID]*db.Tenant{
		tenantID: {ID: tenantID, MercadoPagoAccessToken: "token"},
	}}
	provider := &fakePreferenceCreator{pref: &mercadopago.Preference{ID: "pref-1", InitPoint: "https://mp.example/redirect"}}

	service := NewCheckoutService(tenants, provider, "", "https://fornada.app/", slog.New(slog.NewTextHandler(io.Discard, nil)))

	input := checkoutFixture(tenantID, orderID)
	input.Origin = ""
	if _, err := service.CreateCheckout(context.Background(), input); err != nil {
		t.Fatalf("CreateCheckout() error = %v", err)
	}

	wantSuccess := "https://fornada.app/order-success?orderId=" + orderID.String()
	if provider.lastReq.BackURLs.Success != wantSuccess {
		t.Errorf("BackURLs.Success = %q, want %q", provider.lastReq.BackURLs.Success, wantSuccess)
	}
}

func TestCreateCheckoutWithoutCredentialNeverCallsProvider(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	tenants := &fakeTenantStore{tenants: map[uuid.UUID]*db.Tenant{
		tenantID: {ID: tenantID},
	}}
	provider := &fakePreferenceCreator{}

	service := NewCheckoutService(tenants, provider, "", "https://fornada.app", slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := service.CreateCheckout(context.Background(), checkoutFixture(tenantID, uuid.New()))
	if !errors.Is(err, ErrPaymentNotConfigured) {
		t.Fatalf("CreateCheckout() error = %v, want ErrPaymentNotConfigured", err)
	}
	if provider.calls != 0 {
		t.Errorf("provider called %d times, want 0", provider.calls)
	}
}

func TestCreateCheckoutUsesFallbackCredential(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	tenants := &fakeTenantStore{tenants: map[uuid.UUID]*db.Tenant{
		tenantID: {ID: tenantID},
	}}
	provider := &fakePreferenceCreator{pref: &mercadopago.Preference{ID: "pref-1", InitPoint: "https://mp.example/redirect"}}

	service := NewCheckoutService(tenants, provider, "APP_USR-env-token", "https://fornada.app", slog.New(slog.NewTextHandler(io.Discard, nil)))

	if _, err := service.CreateCheckout(context.Background(), checkoutFixture(tenantID, uuid.New())); err != nil {
		t.Fatalf("CreateCheckout() error = %v", err)
	}
	if provider.lastTok != "APP_USR-env-token" {
		t.Errorf("provider called with token %q, want fallback token", provider.lastTok)
	}
}

func TestCreateCheckoutValidation(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	tenants := &fakeTenantStore{tenants: map[uuid.UUID]*db.Tenant{
		tenantID: {ID: tenantID, MercadoPagoAccessToken: "token"},
	}}

	tests := []struct {
		name   string
		mutate func(*CheckoutInput)
	}{
		{name: "no items", mutate: func(in *CheckoutInput) { in.Items = nil }},
		{name: "zero total", mutate: func(in *CheckoutInput) { in.Total = 0 }},
		{name: "zero quantity", mutate: func(in *CheckoutInput) { in.Items[0].Quantity = 0 }},
		{name: "zero unit price", mutate: func(in *CheckoutInput) { in.Items[0].UnitPrice = 0 }},
		{name: "negative unit price", mutate: func(in *CheckoutInput) { in.Items[0].UnitPrice = -1 }},
		{name: "missing customer name", mutate: func(in *CheckoutInput) { in.CustomerData.Name = "" }},
		{name: "bad email", mutate: func(in *CheckoutInput) { in.CustomerData.Email = "not-an-email" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider := &fakePreferenceCreator{}
			service := NewCheckoutService(tenants, provider, "", "https://fornada.app", slog.New(slog.NewTextHandler(io.Discard, nil)))

			input := checkoutFixture(tenantID, uuid.New())
			tt.mutate(&input)

			if _, err := service.CreateCheckout(context.Background(), input); !errors.Is(err, ErrCheckoutInvalidInput) {
				t.Fatalf("CreateCheckout() error = %v, want ErrCheckoutInvalidInput", err)
			}
			if provider.calls != 0 {
				t.Errorf("provider called %d times, want 0", provider.calls)
			}
		})
	}
}
