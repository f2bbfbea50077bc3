package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fornadaapp/fornada/internal/crypto"
)

var ErrTenantNotFound = errors.New("tenant not found")

// TenantStore persists tenant configuration. Payment and email credentials
// are encrypted before they touch the database and decrypted on read.
type TenantStore struct {
	pool   *pgxpool.Pool
	crypto crypto.Encryptor
}

func NewTenantStore(pool *pgxpool.Pool, encryptor crypto.Encryptor) (*TenantStore, error) {
	if encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}
	return &TenantStore{pool: pool, crypto: encryptor}, nil
}

const tenantColumns = `id, name, subdomain, logo_url, primary_color, secondary_color,
	delivery_fee, delivery_radius_km, free_delivery_min_order, payment_provider,
	mercadopago_access_token, email_provider, email_from, email_api_key,
	stripe_customer_id, stripe_subscription_id, created_at, updated_at`

func (s *TenantStore) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return s.scanTenant(s.pool.QueryRow(ctx, query, id))
}

func (s *TenantStore) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE subdomain = $1`
	return s.scanTenant(s.pool.QueryRow(ctx, query, subdomain))
}

func (s *TenantStore) Create(ctx context.Context, name, subdomain string) (*Tenant, error) {
	query := `
		INSERT INTO tenants (name, subdomain)
		VALUES ($1, $2)
		RETURNING ` + tenantColumns
	return s.scanTenant(s.pool.QueryRow(ctx, query, name, subdomain))
}

func (s *TenantStore) UpdateSettings(ctx context.Context, id uuid.UUID, tenant *Tenant) error {
	query := `
		UPDATE tenants
		SET name = $1, logo_url = $2, primary_color = $3, secondary_color = $4,
		    delivery_fee = $5, delivery_radius_km = $6, free_delivery_min_order = $7,
		    updated_at = NOW()
		WHERE id = $8
	`
	cmdTag, err := s.pool.Exec(ctx, query,
		tenant.Name,
		textOrNull(tenant.LogoURL),
		textOrNull(tenant.PrimaryColor),
		textOrNull(tenant.SecondaryColor),
		tenant.DeliveryFee,
		tenant.DeliveryRadiusKm,
		tenant.FreeDeliveryMinOrder,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// UpdatePaymentConfig stores the tenant's provider selection and access
// token. An empty token clears the credential (tenant offboards from online
// payment).
func (s *TenantStore) UpdatePaymentConfig(ctx context.Context, id uuid.UUID, provider, accessToken string) error {
	encrypted := pgtype.Text{}
	if accessToken != "" {
		ciphertext, err := s.crypto.Encrypt(accessToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt access token: %w", err)
		}
		encrypted = pgtype.Text{String: ciphertext, Valid: true}
	}

	query := `
		UPDATE tenants
		SET payment_provider = $1, mercadopago_access_token = $2, updated_at = NOW()
		WHERE id = $3
	`
	cmdTag, err := s.pool.Exec(ctx, query, textOrNull(provider), encrypted, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func (s *TenantStore) UpdateEmailConfig(ctx context.Context, id uuid.UUID, provider, from, apiKey string) error {
	encrypted := pgtype.Text{}
	if apiKey != "" {
		ciphertext, err := s.crypto.Encrypt(apiKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt email api key: %w", err)
		}
		encrypted = pgtype.Text{String: ciphertext, Valid: true}
	}

	query := `
		UPDATE tenants
		SET email_provider = $1, email_from = $2, email_api_key = $3, updated_at = NOW()
		WHERE id = $4
	`
	cmdTag, err := s.pool.Exec(ctx, query, textOrNull(provider), textOrNull(from), encrypted, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func (s *TenantStore) UpdateStripeSubscription(ctx context.Context, id uuid.UUID, customerID, subscriptionID string) error {
	query := `
		UPDATE tenants
		SET stripe_customer_id = $1, stripe_subscription_id = $2, updated_at = NOW()
		WHERE id = $3
	`
	cmdTag, err := s.pool.Exec(ctx, query, textOrNull(customerID), textOrNull(subscriptionID), id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func (s *TenantStore) scanTenant(row orderRowScanner) (*Tenant, error) {
	var (
		tenant          Tenant
		logoURL         pgtype.Text
		primaryColor    pgtype.Text
		secondaryColor  pgtype.Text
		freeDeliveryMin pgtype.Float8
		paymentProvider pgtype.Text
		mpToken         pgtype.Text
		emailProvider   pgtype.Text
		emailFrom       pgtype.Text
		emailAPIKey     pgtype.Text
		stripeCustomer  pgtype.Text
		stripeSub       pgtype.Text
	)

	err := row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Subdomain,
		&logoURL,
		&primaryColor,
		&secondaryColor,
		&tenant.DeliveryFee,
		&tenant.DeliveryRadiusKm,
		&freeDeliveryMin,
		&paymentProvider,
		&mpToken,
		&emailProvider,
		&emailFrom,
		&emailAPIKey,
		&stripeCustomer,
		&stripeSub,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}

	if logoURL.Valid {
		tenant.LogoURL = logoURL.String
	}
	if primaryColor.Valid {
		tenant.PrimaryColor = primaryColor.String
	}
	if secondaryColor.Valid {
		tenant.SecondaryColor = secondaryColor.String
	}
	if freeDeliveryMin.Valid {
		tenant.FreeDeliveryMinOrder = freeDeliveryMin.Float64
	}
	if paymentProvider.Valid {
		tenant.PaymentProvider = paymentProvider.String
	}
	if emailProvider.Valid {
		tenant.EmailProvider = emailProvider.String
	}
	if emailFrom.Valid {
		tenant.EmailFrom = emailFrom.String
	}
	if stripeCustomer.Valid {
		tenant.StripeCustomerID = stripeCustomer.String
	}
	if stripeSub.Valid {
		tenant.StripeSubscriptionID = stripeSub.String
	}

	if mpToken.Valid && mpToken.String != "" {
		plaintext, err := s.crypto.Decrypt(mpToken.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}
		tenant.MercadoPagoAccessToken = plaintext
	}
	if emailAPIKey.Valid && emailAPIKey.String != "" {
		plaintext, err := s.crypto.Decrypt(emailAPIKey.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt email api key: %w", err)
		}
		tenant.EmailAPIKey = plaintext
	}

	return &tenant, nil
}
