package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/fornadaapp/fornada/internal/db"
	"github.com/fornadaapp/fornada/internal/logging"
	"github.com/fornadaapp/fornada/internal/models"
)

// TenantService exposes storefront resolution and the merchant-facing
// settings operations.
type TenantService struct {
	tenants   *db.TenantStore
	customers *db.CustomerStore
	logger    *slog.Logger
}

func NewTenantService(tenants *db.TenantStore, customers *db.CustomerStore, logger *slog.Logger) *TenantService {
	return &TenantService{tenants: tenants, customers: customers, logger: logger}
}

func (s *TenantService) GetTenant(ctx context.Context, id uuid.UUID) (*db.Tenant, error) {
	return s.tenants.GetByID(ctx, id)
}

// ListCustomers returns the tenant's registered customers, newest first.
func (s *TenantService) ListCustomers(ctx context.Context, tenantID uuid.UUID, limit int) ([]*db.Customer, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.customers.ListByTenant(ctx, tenantID, limit)
}

// ResolveStorefront finds the tenant behind a storefront subdomain.
func (s *TenantService) ResolveStorefront(ctx context.Context, subdomain string) (*db.Tenant, error) {
	return s.tenants.GetBySubdomain(ctx, strings.ToLower(strings.TrimSpace(subdomain)))
}

type UpdateSettingsInput struct {
	Name                 string  `json:"name"`
	LogoURL              string  `json:"logoUrl"`
	PrimaryColor         string  `json:"primaryColor"`
	SecondaryColor       string  `json:"secondaryColor"`
	DeliveryFee          float64 `json:"deliveryFee"`
	DeliveryRadiusKm     float64 `json:"deliveryRadiusKm"`
	FreeDeliveryMinOrder float64 `json:"freeDeliveryMinOrder"`
}

func (s *TenantService) UpdateSettings(ctx context.Context, tenantID uuid.UUID, input UpdateSettingsInput) (*db.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	if input.Name != "" {
		tenant.Name = input.Name
	}
	tenant.LogoURL = input.LogoURL
	tenant.PrimaryColor = input.PrimaryColor
	tenant.SecondaryColor = input.SecondaryColor
	tenant.DeliveryFee = input.DeliveryFee
	tenant.DeliveryRadiusKm = input.DeliveryRadiusKm
	tenant.FreeDeliveryMinOrder = input.FreeDeliveryMinOrder

	if err := s.tenants.UpdateSettings(ctx, tenantID, tenant); err != nil {
		return nil, fmt.Errorf("failed to update tenant settings: %w", err)
	}

	logging.FromContext(ctx, s.logger).Info("tenant settings updated", "tenant_id", tenantID)
	return tenant, nil
}

// SetPaymentCredential stores the tenant's Mercado Pago access token. The
// store encrypts it before it touches the database.
func (s *TenantService) SetPaymentCredential(ctx context.Context, tenantID uuid.UUID, accessToken string) error {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return fmt.Errorf("%w: access token is required", ErrOrderInvalidInput)
	}

	if err := s.tenants.UpdatePaymentConfig(ctx, tenantID, models.ProviderMercadoPago, accessToken); err != nil {
		return fmt.Errorf("failed to update payment config: %w", err)
	}

	logging.FromContext(ctx, s.logger).Info("payment credential updated", "tenant_id", tenantID)
	return nil
}

type EmailConfigInput struct {
	Provider string `json:"provider"`
	From     string `json:"from"`
	APIKey   string `json:"apiKey"`
}

func (s *TenantService) SetEmailConfig(ctx context.Context, tenantID uuid.UUID, input EmailConfigInput) error {
	if input.Provider != "" && input.Provider != "resend" {
		return fmt.Errorf("%w: unsupported email provider %q", ErrOrderInvalidInput, input.Provider)
	}

	if err := s.tenants.UpdateEmailConfig(ctx, tenantID, input.Provider, input.From, input.APIKey); err != nil {
		return fmt.Errorf("failed to update email config: %w", err)
	}

	logging.FromContext(ctx, s.logger).Info("email config updated", "tenant_id", tenantID)
	return nil
}
