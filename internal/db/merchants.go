package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrMerchantNotFound = errors.New("merchant user not found")

type MerchantStore struct {
	pool *pgxpool.Pool
}

func NewMerchantStore(pool *pgxpool.Pool) *MerchantStore {
	return &MerchantStore{pool: pool}
}

const merchantColumns = `id, tenant_id, email, full_name, role, password_hash, google_id, created_at`

func (s *MerchantStore) Create(ctx context.Context, user *MerchantUser) error {
	if user == nil {
		return fmt.Errorf("merchant user is required")
	}

	query := `
		INSERT INTO merchant_users (tenant_id, email, full_name, role, password_hash, google_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	row := s.pool.QueryRow(ctx, query,
		user.TenantID,
		user.Email,
		user.FullName,
		user.Role,
		user.PasswordHash,
		textOrNull(user.GoogleID),
	)
	if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
		return fmt.Errorf("failed to create merchant user: %w", err)
	}
	return nil
}

func (s *MerchantStore) GetByID(ctx context.Context, id uuid.UUID) (*MerchantUser, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchant_users WHERE id = $1`
	return s.scanMerchant(s.pool.QueryRow(ctx, query, id))
}

// GetByEmail looks up a merchant across all tenants. Emails are globally
// unique so the login form does not need a tenant selector.
func (s *MerchantStore) GetByEmail(ctx context.Context, email string) (*MerchantUser, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchant_users WHERE email = $1`
	return s.scanMerchant(s.pool.QueryRow(ctx, query, email))
}

func (s *MerchantStore) GetByGoogleID(ctx context.Context, googleID string) (*MerchantUser, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchant_users WHERE google_id = $1`
	return s.scanMerchant(s.pool.QueryRow(ctx, query, googleID))
}

// LinkGoogleID attaches a Google account to an existing merchant user.
func (s *MerchantStore) LinkGoogleID(ctx context.Context, id uuid.UUID, googleID string) error {
	query := `UPDATE merchant_users SET google_id = $2 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, googleID)
	if err != nil {
		return fmt.Errorf("failed to link google account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMerchantNotFound
	}
	return nil
}

func (s *MerchantStore) scanMerchant(row orderRowScanner) (*MerchantUser, error) {
	var (
		user     MerchantUser
		googleID pgtype.Text
	)

	err := row.Scan(
		&user.ID,
		&user.TenantID,
		&user.Email,
		&user.FullName,
		&user.Role,
		&user.PasswordHash,
		&googleID,
		&user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMerchantNotFound
	}
	if err != nil {
		return nil, err
	}

	if googleID.Valid {
		user.GoogleID = googleID.String
	}
	return &user, nil
}
