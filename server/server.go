package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fornadaapp/fornada/internal/config"
	"github.com/fornadaapp/fornada/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.MetricsContext)
	r.Use(h.SecurityHeaders)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")
	r.Handle("/webhooks/mercadopago", h.PublicCORS(http.HandlerFunc(h.MercadoPagoWebhook))).Methods("POST", "OPTIONS").Name("webhooks.mercadopago")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})

	// Public storefront API, CORS-open for tenant domains.
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(h.PublicCORS)
	apiRouter.HandleFunc("/storefront/{subdomain}", h.GetStorefront).Methods("GET", "OPTIONS").Name("api.storefront")
	apiRouter.HandleFunc("/storefront/{tenantID}/menu", h.GetMenu).Methods("GET", "OPTIONS").Name("api.storefront.menu")
	apiRouter.HandleFunc("/orders", h.CreateOrder).Methods("POST", "OPTIONS").Name("api.orders.create")
	apiRouter.HandleFunc("/orders/{orderID}", h.GetOrder).Methods("GET", "OPTIONS").Name("api.orders.get")
	apiRouter.HandleFunc("/payments/checkout", h.CreateCheckout).Methods("POST", "OPTIONS").Name("api.payments.checkout")
	apiRouter.HandleFunc("/auth/register", h.CustomerRegister).Methods("POST", "OPTIONS").Name("api.auth.register")
	apiRouter.HandleFunc("/auth/login", h.CustomerLogin).Methods("POST", "OPTIONS").Name("api.auth.login")
	apiRouter.HandleFunc("/me/orders", h.ListMyOrders).Methods("GET", "OPTIONS").Name("api.me.orders")

	// Merchant Google login.
	r.HandleFunc("/auth/google/login", h.GoogleLogin).Methods("GET").Name("auth.google.login")
	r.HandleFunc("/auth/google/callback", h.GoogleCallback).Methods("GET").Name("auth.google.callback")

	// Public admin routes.
	r.HandleFunc("/admin/login", h.MerchantLogin).Methods("POST").Name("admin.login")

	// Protected admin routes.
	adminRouter := r.PathPrefix("/admin").Subrouter()
	adminRouter.Use(h.SessionMiddleware)
	adminRouter.Use(h.RequireAuth)
	adminRouter.Use(h.RequireSameOrigin)
	adminRouter.HandleFunc("/logout", h.MerchantLogout).Methods("POST").Name("admin.logout")
	adminRouter.HandleFunc("/orders", h.AdminListOrders).Methods("GET").Name("admin.orders")
	adminRouter.HandleFunc("/orders/{orderID}/status", h.AdminUpdateOrderStatus).Methods("PATCH").Name("admin.orders.status")
	adminRouter.HandleFunc("/customers", h.AdminListCustomers).Methods("GET").Name("admin.customers")
	adminRouter.HandleFunc("/settings", h.AdminGetSettings).Methods("GET").Name("admin.settings")
	adminRouter.HandleFunc("/settings", h.AdminUpdateSettings).Methods("PUT").Name("admin.settings.update")
	adminRouter.HandleFunc("/settings/payment", h.AdminSetPaymentConfig).Methods("PUT").Name("admin.settings.payment")
	adminRouter.HandleFunc("/settings/email", h.AdminSetEmailConfig).Methods("PUT").Name("admin.settings.email")
	adminRouter.HandleFunc("/menu/import", h.AdminImportMenu).Methods("POST").Name("admin.menu.import")
	adminRouter.HandleFunc("/billing/checkout", h.AdminStartBillingCheckout).Methods("POST").Name("admin.billing.checkout")
	adminRouter.HandleFunc("/billing/complete", h.AdminCompleteBillingCheckout).Methods("GET").Name("admin.billing.complete")
	adminRouter.HandleFunc("/billing/status", h.AdminBillingStatus).Methods("GET").Name("admin.billing.status")

	return r
}
