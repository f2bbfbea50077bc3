package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/fornadaapp/fornada/internal/config"
	"github.com/fornadaapp/fornada/internal/db"
	"github.com/fornadaapp/fornada/internal/mercadopago"
	"github.com/fornadaapp/fornada/internal/services"
)

func newCheckoutHandlers(mpBaseURL string, tenants *stubTenantStore) *Handlers {
	client := mercadopago.NewClient(mercadopago.WithBaseURL(mpBaseURL))
	checkoutService := services.NewCheckoutService(tenants, client, "", "https://fornada.app", testLogger())

	return &Handlers{
		config:          &config.Config{BaseURL: "https://fornada.app"},
		checkoutService: checkoutService,
		logger:          testLogger(),
	}
}

func checkoutRequestBody(tenantID, orderID uuid.UUID) string {
	return fmt.Sprintf(`{
		"orderId": %q,
		"tenantId": %q,
		"items": [
			{"name": "Pizza Margherita (Grande)", "quantity": 1, "unitPrice": 38.50, "totalPrice": 38.50},
			{"name": "Guaraná 2L", "quantity": 1, "unitPrice": 4.00, "totalPrice": 4.00}
		],
		"total": 42.50,
		"customerData": {"name": "Maria Silva", "email": "maria@example.com", "phone": "+55 11 99999-0000"}
	}`, orderID, tenantID)
}

func TestCreateCheckoutHandler(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	orderID := uuid.New()

	var captured mercadopago.PreferenceRequest
	mp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/preferences" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode preference request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"pref-123","init_point":"https://www.mercadopago.com.br/checkout/v1/redirect?pref_id=pref-123"}`)
	}))
	defer mp.Close()

	tenants := &stubTenantStore{tenants: map[uuid.UUID]*db.Tenant{
		tenantID: {ID: tenantID, MercadoPagoAccessToken: "APP_USR-token"},
	}}
	h := newCheckoutHandlers(mp.URL, tenants)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/checkout",
		strings.NewReader(checkoutRequestBody(tenantID, orderID)))
	req.Header.Set("Origin", "https://pizzaria-do-bairro.fornada.app")
	rec := httptest.NewRecorder()

	h.CreateCheckout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp services.CheckoutResult
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.PreferenceID != "pref-123" {
		t.Errorf("preferenceId = %q, want pref-123", resp.PreferenceID)
	}
	if !strings.Contains(resp.CheckoutURL, "pref_id=pref-123") {
		t.Errorf("checkoutUrl = %q, want redirect with preference id", resp.CheckoutURL)
	}

	if captured.ExternalReference != orderID.String() {
		t.Errorf("external_reference = %q, want order id", captured.ExternalReference)
	}
	wantSuccess := "https://pizzaria-do-bairro.fornada.app/order-success?orderId=" + orderID.String()
	if captured.BackURLs.Success != wantSuccess {
		t.Errorf("back_urls.success = %q, want %q", captured.BackURLs.Success, wantSuccess)
	}
	wantNotification := "https://fornada.app/webhooks/mercadopago?tenant=" + tenantID.String()
	if captured.NotificationURL != wantNotification {
		t.Errorf("notification_url = %q, want %q", captured.NotificationURL, wantNotification)
	}
}

func TestCreateCheckoutHandlerWithoutCredential(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	mp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called without a credential")
	}))
	defer mp.Close()

	tenants := &stubTenantStore{tenants: map[uuid.UUID]*db.Tenant{
		tenantID: {ID: tenantID},
	}}
	h := newCheckoutHandlers(mp.URL, tenants)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/checkout",
		strings.NewReader(checkoutRequestBody(tenantID, uuid.New())))
	rec := httptest.NewRecorder()

	h.CreateCheckout(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestCreateCheckoutHandlerSurfacesProviderError(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	mp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid access token"}`, http.StatusUnauthorized)
	}))
	defer mp.Close()

	tenants := &stubTenantStore{tenants: map[uuid.UUID]*db.Tenant{
		tenantID: {ID: tenantID, MercadoPagoAccessToken: "expired"},
	}}
	h := newCheckoutHandlers(mp.URL, tenants)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/checkout",
		strings.NewReader(checkoutRequestBody(tenantID, uuid.New())))
	rec := httptest.NewRecorder()

	h.CreateCheckout(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestCreateCheckoutHandlerRejectsBadInput(t *testing.T) {
	t.Parallel()

	h := newCheckoutHandlers("http://unused.invalid", &stubTenantStore{})

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "not json"},
		{name: "empty object", body: "{}"},
		{name: "missing items", body: fmt.Sprintf(`{"orderId":%q,"tenantId":%q,"total":10,"customerData":{"name":"Maria"}}`, uuid.New(), uuid.New())},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/api/payments/checkout", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.CreateCheckout(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}
