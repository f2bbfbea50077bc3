package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/fornadaapp/fornada/internal/cache"
	"github.com/fornadaapp/fornada/internal/db"
	"github.com/fornadaapp/fornada/internal/mercadopago"
)

type fakeTenantStore struct {
	tenants map[uuid.UUID]*db.Tenant
	err     error
}

func (f *fakeTenantStore) GetByID(_ context.Context, id uuid.UUID) (*db.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	tenant, ok := f.tenants[id]
	if !ok {
		return nil, db.ErrTenantNotFound
	}
	return tenant, nil
}

type fakePaymentFetcher struct {
	payments map[string]*mercadopago.Payment
	err      error
	calls    int
	lastTok  string
}

func (f *fakePaymentFetcher) GetPayment(_ context.Context, accessToken, paymentID string) (*mercadopago.Payment, error) {
	f.calls++
	f.lastTok = accessToken
	if f.err != nil {
		return nil, f.err
	}
	payment, ok := f.payments[paymentID]
	if !ok {
		return nil, &mercadopago.UpstreamError{Operation: "get payment", StatusCode: 404}
	}
	return payment, nil
}

type appliedPayment struct {
	orderID       uuid.UUID
	paymentID     string
	paymentStatus string
	status        db.OrderStatus
	mapped        bool
}

type fakeOrderApplier struct {
	applied []appliedPayment
	rows    int64
	err     error
}

func (f *fakeOrderApplier) ApplyPayment(_ context.Context, orderID uuid.UUID, paymentID, paymentStatus string, status db.OrderStatus, mapped bool) (int64, error) {
	f.applied = append(f.applied, appliedPayment{orderID, paymentID, paymentStatus, status, mapped})
	if f.err != nil {
		return 0, f.err
	}
	return f.rows, nil
}

func paymentNotification(notificationID, paymentID string) *mercadopago.Notification {
	notification := &mercadopago.Notification{
		ID:   json.Number(notificationID),
		Type: mercadopago.NotificationTypePayment,
	}
	notification.Data.ID = json.Number(paymentID)
	return notification
}

func newPaymentService(t *testing.T, orders paymentApplier, tenants tenantGetter, fetcher paymentFetcher, fallbackToken string) *PaymentService {
	t.Helper()
	memCache, err := cache.NewMemoryProvider()
	if err != nil {
		t.Fatalf("NewMemoryProvider() error = %v", err)
	}
	return NewPaymentService(orders, tenants, fetcher, memCache, nil, fallbackToken, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStatusFromProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		providerStatus string
		wantStatus     db.OrderStatus
		wantMapped     bool
	}{
		{providerStatus: "approved", wantStatus: db.StatusNew, wantMapped: true},
		{providerStatus: "pending", wantStatus: db.StatusPending, wantMapped: true},
		{providerStatus: "in_process", wantStatus: db.StatusPending, wantMapped: true},
		{providerStatus: "rejected", wantStatus: db.StatusCancelled, wantMapped: true},
		{providerStatus: "cancelled", wantStatus: db.StatusCancelled, wantMapped: true},
		{providerStatus: "charged_back", wantMapped: false},
		{providerStatus: "refunded", wantMapped: false},
		{providerStatus: "", wantMapped: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(fmt.Sprintf("status %q", tt.providerStatus), func(t *testing.T) {
			t.Parallel()

			status, mapped := statusFromProvider(tt.providerStatus)
			if mapped != tt.wantMapped {
				t.Fatalf("mapped = %v, want %v", mapped, tt.wantMapped)
			}
			if mapped && status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
		})
	}
}

func TestProcessNotificationApprovedPayment(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	orderID := uuid.New()

	tenants := &fakeTenantStore{tenants: map[uuid.UUID]*db.Tenant{
		tenantID: {ID: tenantID, Name: "Pizzaria do Bairro", MercadoPagoAccessToken: "APP_USR-tenant-token"},
	}}
	fetcher := &fakePaymentFetcher{payments: map[string]*mercadopago.Payment{
		"884": {
			ID:                json.Number("884"),
			Status:            "approved",
			ExternalReference: orderID.String(),
			TransactionAmount: 42.50,
			CurrencyID:        "BRL",
		},
	}}
	orders := &fakeOrderApplier{rows: 1}

	service := newPaymentService(t, orders, tenants, fetcher, "")

	notification := paymentNotification("n-1", "884")
	if err := service.ProcessNotification(context.Background(), tenantID, notification); err != nil {
		t.Fatalf("ProcessNotification() error = %v", err)
	}

	if fetcher.lastTok != "APP_USR-tenant-token" {
		t.Errorf("fetch used token %q, want tenant token", fetcher.lastTok)
	}
	if len(orders.applied) != 1 {
		t.Fatalf("ApplyPayment called %d times, want 1", len(orders.applied))
	}
	got := orders.applied[0]
	if got.orderID != orderID {
		t.Errorf("orderID = %v, want %v", got.orderID, orderID)
	}
	if got.paymentID != "884" {
		t.Errorf("paymentID = %q, want %q", got.paymentID, "884")
	}
	if got.paymentStatus != "approved" {
		t.Errorf("paymentStatus = %q, want %q", got.paymentStatus, "approved")
	}
	if got.status != db.StatusNew || !got.mapped {
		t.Errorf("status = %q mapped = %v, want %q mapped", got.status, got.mapped, db.StatusNew)
	}
}

func TestProcessNotificationDeduplicatesDeliveries(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	orderID := uuid.New()

	tenants := &fakeTenantStore{tenants: map[uuid.UUID]*db.Tenant{
		tenantID: {ID: tenantID, MercadoPagoAccessToken: "token"},
	}}
	fetcher := &fakePaymentFetcher{payments: map[string]*mercadopago.Payment{
		"77": {ID: json.Number("77"), Status: "approved", ExternalReference: orderID.String()},
	}}
	orders := &fakeOrderApplier{rows: 1}

	service := newPaymentService(t, orders, tenants, fetcher, "")

	for i := 0; i < 3; i++ {
		if err := service.ProcessNotification(context.Background(), tenantID, paymentNotification("n-7", "77")); err != nil {
			t.Fatalf("delivery %d: ProcessNotification() error = %v", i, err)
		}
	}

	if fetcher.calls != 1 {
		t.Errorf("provider fetched %d times, want 1", fetcher.calls)
	}
	if len(orders.applied) != 1 {
		t.Errorf("ApplyPayment called %d times, want 1", len(orders.applied))
	}
}

func TestProcessNotificationIgnoresNonPayment(t *testing.T) {
	t.Parallel()

	fetcher := &fakePaymentFetcher{}
	orders := &fakeOrderApplier{rows: 1}
	service := newPaymentService(t, orders, &fakeTenantStore{}, fetcher, "token")

	notification := &mercadopago.Notification{ID: json.Number("1"), Type: "merchant_order"}
	if err := service.ProcessNotification(context.Background(), uuid.Nil, notification); err != nil {
		t.Fatalf("ProcessNotification() error = %v", err)
	}

	if fetcher.calls != 0 {
		t.Errorf("provider fetched %d times, want 0", fetcher.calls)
	}
	if len(orders.applied) != 0 {
		t.Errorf("ApplyPayment called %d times, want 0", len(orders.applied))
	}
}

func TestProcessNotificationUnknownOrderIsSettled(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	tenants := &fakeTenantStore{tenants: map[uuid.UUID]*db.Tenant{
		tenantID: {ID: tenantID, MercadoPagoAccessToken: "token"},
	}}
	fetcher := &fakePaymentFetcher{payments: map[string]*mercadopago.Payment{
		"55": {ID: json.Number("55"), Status: "approved", ExternalReference: uuid.NewString()},
	}}
	orders := &fakeOrderApplier{rows: 0}

	service := newPaymentService(t, orders, tenants, fetcher, "")

	if err := service.ProcessNotification(context.Background(), tenantID, paymentNotification("n-5", "55")); err != nil {
		t.Fatalf("ProcessNotification() error = %v, want nil for unknown order", err)
	}
	if len(orders.applied) != 1 {
		t.Errorf("ApplyPayment called %d times, want 1", len(orders.applied))
	}
}

func TestProcessNotificationFetchFailureAsksForRetry(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	tenants := &fakeTenantStore{tenants: map[uuid.UUID]*db.Tenant{
		tenantID: {ID: tenantID, MercadoPagoAccessToken: "token"},
	}}
	fetcher := &fakePaymentFetcher{err: &mercadopago.UpstreamError{Operation: "get payment", StatusCode: 500}}
	orders := &fakeOrderApplier{}

	service := newPaymentService(t, orders, tenants, fetcher, "")

	err := service.ProcessNotification(context.Background(), tenantID, paymentNotification("n-9", "99"))
	if err == nil {
		t.Fatal("ProcessNotification() error = nil, want error")
	}
	if len(orders.applied) != 0 {
		t.Errorf("ApplyPayment called %d times, want 0", len(orders.applied))
	}

	// A failed fetch must not poison the dedupe cache.
	fetcher.err = nil
	fetcher.payments = map[string]*mercadopago.Payment{
		"99": {ID: json.Number("99"), Status: "approved", ExternalReference: uuid.NewString()},
	}
	orders.rows = 1
	if err := service.ProcessNotification(context.Background(), tenantID, paymentNotification("n-9", "99")); err != nil {
		t.Fatalf("retry: ProcessNotification() error = %v", err)
	}
	if len(orders.applied) != 1 {
		t.Errorf("retry: ApplyPayment called %d times, want 1", len(orders.applied))
	}
}

func TestProcessNotificationUnmappedStatusKeepsOrderStatus(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	orderID := uuid.New()
	tenants := &fakeTenantStore{tenants: map[uuid.UUID]*db.Tenant{
		tenantID: {ID: tenantID, MercadoPagoAccessToken: "token"},
	}}
	fetcher := &fakePaymentFetcher{payments: map[string]*mercadopago.Payment{
		"31": {ID: json.Number("31"), Status: "charged_back", ExternalReference: orderID.String()},
	}}
	orders := &fakeOrderApplier{rows: 1}

	service := newPaymentService(t, orders, tenants, fetcher, "")

	if err := service.ProcessNotification(context.Background(), tenantID, paymentNotification("n-3", "31")); err != nil {
		t.Fatalf("ProcessNotification() error = %v", err)
	}

	got := orders.applied[0]
	if got.mapped {
		t.Error("mapped = true, want false for unrecognized provider status")
	}
	if got.paymentStatus != "charged_back" {
		t.Errorf("paymentStatus = %q, want %q", got.paymentStatus, "charged_back")
	}
}

func TestProcessNotificationCredentialResolution(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	orderID := uuid.New()

	tests := []struct {
		name          string
		tenantID      uuid.UUID
		tenantToken   string
		fallbackToken string
		wantToken     string
		wantErr       error
	}{
		{name: "tenant credential wins", tenantID: tenantID, tenantToken: "tenant-token", fallbackToken: "env-token", wantToken: "tenant-token"},
		{name: "fallback for unconfigured tenant", tenantID: tenantID, fallbackToken: "env-token", wantToken: "env-token"},
		{name: "fallback for legacy notification", tenantID: uuid.Nil, fallbackToken: "env-token", wantToken: "env-token"},
		{name: "no credential anywhere", tenantID: tenantID, wantErr: ErrPaymentNotConfigured},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tenants := &fakeTenantStore{tenants: map[uuid.UUID]*db.Tenant{
				tenantID: {ID: tenantID, MercadoPagoAccessToken: tt.tenantToken},
			}}
			fetcher := &fakePaymentFetcher{payments: map[string]*mercadopago.Payment{
				"12": {ID: json.Number("12"), Status: "pending", ExternalReference: orderID.String()},
			}}
			orders := &fakeOrderApplier{rows: 1}

			service := newPaymentService(t, orders, tenants, fetcher, tt.fallbackToken)

			err := service.ProcessNotification(context.Background(), tt.tenantID, paymentNotification("n-12", "12"))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ProcessNotification() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ProcessNotification() error = %v", err)
			}
			if fetcher.lastTok != tt.wantToken {
				t.Errorf("fetch used token %q, want %q", fetcher.lastTok, tt.wantToken)
			}
		})
	}
}
