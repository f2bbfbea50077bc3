package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fornadaapp/fornada/internal/config"
	"github.com/fornadaapp/fornada/internal/db"
	"github.com/fornadaapp/fornada/internal/handlers"
	"github.com/fornadaapp/fornada/internal/menu"
	"github.com/fornadaapp/fornada/internal/mercadopago"
	"github.com/fornadaapp/fornada/internal/services"
	"github.com/fornadaapp/fornada/internal/session"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		BaseURL:   "https://fornada.app",
		JWTSecret: strings.Repeat("s", 32),
		Port:      "8080",
	}

	// The pool connects lazily; no database is needed to build the router.
	pool, err := pgxpool.New(context.Background(), "postgres://localhost:5432/fornada")
	if err != nil {
		t.Fatalf("failed to build pool: %v", err)
	}
	t.Cleanup(pool.Close)

	mp := mercadopago.NewClient()
	authService, err := services.NewAuthService(cfg, db.NewMerchantStore(nil), db.NewCustomerStore(nil), logger)
	if err != nil {
		t.Fatalf("failed to build auth service: %v", err)
	}

	h, err := handlers.New(handlers.Dependencies{
		Config:          cfg,
		DB:              pool,
		CheckoutService: services.NewCheckoutService(nil, mp, "", cfg.BaseURL, logger),
		PaymentService:  services.NewPaymentService(nil, nil, mp, nil, nil, "", logger),
		OrderService:    services.NewOrderService(nil, nil, logger),
		MenuService:     services.NewMenuService(nil, menu.NewParser(), menu.NewValidator(), logger),
		TenantService:   services.NewTenantService(nil, nil, logger),
		AuthService:     authService,
		SessionManager:  session.NewManager(session.NewMemoryStore(), false),
		Logger:          logger,
	})
	if err != nil {
		t.Fatalf("failed to build handlers: %v", err)
	}

	s, err := New(cfg, logger, h)
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}
	return s
}

func TestWebhookAnswersPreflight(t *testing.T) {
	t.Parallel()

	router := testServer(t).buildRouter()

	req := httptest.NewRequest(http.MethodOptions, "/webhooks/mercadopago", nil)
	req.Header.Set("Origin", "https://pizzaria-do-bairro.fornada.app")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "*")
	}
}

func TestWebhookPostCarriesCORSHeaders(t *testing.T) {
	t.Parallel()

	router := testServer(t).buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago", strings.NewReader("not json"))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "*")
	}
}
