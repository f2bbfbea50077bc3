package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fornadaapp/fornada/internal/config"
	"github.com/fornadaapp/fornada/internal/logging"
	"github.com/fornadaapp/fornada/internal/services"
	"github.com/fornadaapp/fornada/internal/session"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// Handlers provides the HTTP surface of the storefront platform: the public
// JSON API, the Mercado Pago webhook and the merchant admin API.
type Handlers struct {
	config              *config.Config
	db                  *pgxpool.Pool
	checkoutService     *services.CheckoutService
	paymentService      *services.PaymentService
	orderService        *services.OrderService
	menuService         *services.MenuService
	tenantService       *services.TenantService
	authService         *services.AuthService
	subscriptionService *services.SubscriptionService
	sessionManager      *session.Manager
	logger              *slog.Logger
}

type Dependencies struct {
	Config              *config.Config
	DB                  *pgxpool.Pool
	CheckoutService     *services.CheckoutService
	PaymentService      *services.PaymentService
	OrderService        *services.OrderService
	MenuService         *services.MenuService
	TenantService       *services.TenantService
	AuthService         *services.AuthService
	SubscriptionService *services.SubscriptionService
	SessionManager      *session.Manager
	Logger              *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.CheckoutService == nil {
		return nil, fmt.Errorf("handlers dependencies: checkoutService is required")
	}
	if deps.PaymentService == nil {
		return nil, fmt.Errorf("handlers dependencies: paymentService is required")
	}
	if deps.OrderService == nil {
		return nil, fmt.Errorf("handlers dependencies: orderService is required")
	}
	if deps.MenuService == nil {
		return nil, fmt.Errorf("handlers dependencies: menuService is required")
	}
	if deps.TenantService == nil {
		return nil, fmt.Errorf("handlers dependencies: tenantService is required")
	}
	if deps.AuthService == nil {
		return nil, fmt.Errorf("handlers dependencies: authService is required")
	}
	if deps.SessionManager == nil {
		return nil, fmt.Errorf("handlers dependencies: sessionManager is required")
	}

	return &Handlers{
		config:              deps.Config,
		db:                  deps.DB,
		checkoutService:     deps.CheckoutService,
		paymentService:      deps.PaymentService,
		orderService:        deps.OrderService,
		menuService:         deps.MenuService,
		tenantService:       deps.TenantService,
		authService:         deps.AuthService,
		subscriptionService: deps.SubscriptionService,
		sessionManager:      deps.SessionManager,
		logger:              logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// SessionMiddleware adds merchant session data to the request context
func (h *Handlers) SessionMiddleware(next http.Handler) http.Handler {
	return h.sessionManager.Middleware(next)
}

func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return h.sessionManager.RequireAuth()(next)
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func SecureCookiesFromConfig(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		if parsed, err := url.Parse(baseURL); err == nil {
			return strings.EqualFold(parsed.Scheme, "https")
		}
	}

	return cfg.Port == "443" || cfg.Port == "8443"
}
