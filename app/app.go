package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fornadaapp/fornada/internal/cache"
	"github.com/fornadaapp/fornada/internal/config"
	"github.com/fornadaapp/fornada/internal/crypto"
	"github.com/fornadaapp/fornada/internal/db"
	"github.com/fornadaapp/fornada/internal/handlers"
	"github.com/fornadaapp/fornada/internal/logging"
	"github.com/fornadaapp/fornada/internal/menu"
	"github.com/fornadaapp/fornada/internal/mercadopago"
	"github.com/fornadaapp/fornada/internal/services"
	"github.com/fornadaapp/fornada/internal/session"
	"github.com/fornadaapp/fornada/internal/stripe"
)

type App struct {
	Config         *config.Config
	Logger         *slog.Logger
	DB             *pgxpool.Pool
	CacheProvider  cache.Provider
	SessionManager *session.Manager
	Handlers       *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	sessionStore, err := session.NewStore(startupCtx, session.Config{
		Provider:              cfg.SessionStoreProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	sessionManager := session.NewManager(sessionStore, handlers.SecureCookiesFromConfig(cfg))

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	tenantStore, err := db.NewTenantStore(database, encryptor)
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize tenant store: %w", err)
	}
	orderStore := db.NewOrderStore(database)
	customerStore := db.NewCustomerStore(database)
	merchantStore := db.NewMerchantStore(database)
	catalogStore := db.NewCatalogStore(database)

	mpClient := mercadopago.NewClient()

	authService, err := services.NewAuthService(cfg, merchantStore, customerStore, logger.With("component", "auth_service"))
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	notifier := services.NewOrderNotifier(orderStore, tenantStore, logger.With("component", "order_notifier"))
	checkoutService := services.NewCheckoutService(tenantStore, mpClient, cfg.MercadoPagoAccessToken, cfg.BaseURL, logger.With("component", "checkout_service"))
	paymentService := services.NewPaymentService(orderStore, tenantStore, mpClient, cacheProvider, notifier, cfg.MercadoPagoAccessToken, logger.With("component", "payment_service"))
	orderService := services.NewOrderService(orderStore, tenantStore, logger.With("component", "order_service"))
	menuService := services.NewMenuService(catalogStore, menu.NewParser(), menu.NewValidator(), logger.With("component", "menu_service"))
	tenantService := services.NewTenantService(tenantStore, customerStore, logger.With("component", "tenant_service"))

	subscriptionService := services.NewSubscriptionService(nil, tenantStore, cacheProvider, logger.With("component", "subscription_service"))
	if cfg.BillingEnabled() {
		billingClient := stripe.NewBillingClient(cfg.StripeSecretKey, cfg.StripePriceID, cfg.BaseURL)
		subscriptionService = services.NewSubscriptionService(billingClient, tenantStore, cacheProvider, logger.With("component", "subscription_service"))
	}

	h, err := handlers.New(handlers.Dependencies{
		Config:              cfg,
		DB:                  database,
		CheckoutService:     checkoutService,
		PaymentService:      paymentService,
		OrderService:        orderService,
		MenuService:         menuService,
		TenantService:       tenantService,
		AuthService:         authService,
		SubscriptionService: subscriptionService,
		SessionManager:      sessionManager,
		Logger:              logger,
	})
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:         cfg,
		Logger:         logger,
		DB:             database,
		CacheProvider:  cacheProvider,
		SessionManager: sessionManager,
		Handlers:       h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.SessionManager != nil {
		closeSessionManager(a.Logger, a.SessionManager)
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var console slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.LogFormat)) {
	case "json":
		console = slog.NewJSONHandler(os.Stdout, opts)
	default:
		console = tint.NewHandler(os.Stdout, &tint.Options{
			Level: cfg.LogLevel,
		})
	}

	// LOG_FILE mirrors everything as JSON for log shippers.
	var file slog.Handler
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open log file %s: %v\n", cfg.LogFile, err)
		} else {
			file = slog.NewJSONHandler(f, opts)
		}
	}

	return slog.New(logging.MultiHandler(console, file))
}

func closeSessionManager(logger *slog.Logger, manager *session.Manager) {
	if manager == nil {
		return
	}
	if err := manager.Close(); err != nil && logger != nil {
		logger.Warn("failed to close session manager", "error", err)
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
