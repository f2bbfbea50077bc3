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

var ErrCustomerNotFound = errors.New("customer not found")

type CustomerStore struct {
	pool *pgxpool.Pool
}

func NewCustomerStore(pool *pgxpool.Pool) *CustomerStore {
	return &CustomerStore{pool: pool}
}

const customerColumns = `id, tenant_id, full_name, email, phone, address, password_hash, created_at`

func (s *CustomerStore) Create(ctx context.Context, customer *Customer) error {
	if customer == nil {
		return fmt.Errorf("customer is required")
	}

	query := `
		INSERT INTO customers (tenant_id, full_name, email, phone, address, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	row := s.pool.QueryRow(ctx, query,
		customer.TenantID,
		customer.FullName,
		customer.Email,
		customer.Phone,
		textOrNull(customer.Address),
		customer.PasswordHash,
	)
	if err := row.Scan(&customer.ID, &customer.CreatedAt); err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (s *CustomerStore) GetByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	return s.scanCustomer(s.pool.QueryRow(ctx, query, id))
}

func (s *CustomerStore) GetByTenantAndEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE tenant_id = $1 AND email = $2`
	return s.scanCustomer(s.pool.QueryRow(ctx, query, tenantID, email))
}

func (s *CustomerStore) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*Customer, error) {
	if limit <= 0 {
		limit = 200
	}

	query := `SELECT ` + customerColumns + ` FROM customers
		WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []*Customer
	for rows.Next() {
		customer, err := s.scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	return customers, rows.Err()
}

func (s *CustomerStore) scanCustomer(row orderRowScanner) (*Customer, error) {
	var (
		customer Customer
		address  pgtype.Text
	)

	err := row.Scan(
		&customer.ID,
		&customer.TenantID,
		&customer.FullName,
		&customer.Email,
		&customer.Phone,
		&address,
		&customer.PasswordHash,
		&customer.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}

	if address.Valid {
		customer.Address = address.String
	}
	return &customer, nil
}
