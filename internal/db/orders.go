package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrNoRowsAffected  = errors.New("no rows affected")
	validOrderStatuses = map[OrderStatus]struct{}{
		StatusPending:    {},
		StatusNew:        {},
		StatusPreparing:  {},
		StatusDelivering: {},
		StatusCompleted:  {},
		StatusCancelled:  {},
	}
)

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `id, tenant_id, order_number, customer_id, customer_name, customer_phone,
	customer_email, delivery_address, items, total_amount, status, payment_id, payment_status,
	created_at, updated_at`

func (s *OrderStore) Create(ctx context.Context, order *Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	if order.Status == "" {
		order.Status = StatusPending
	}
	if _, ok := validOrderStatuses[order.Status]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, order.Status)
	}

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}

	customerID := pgtype.UUID{}
	if order.CustomerID != uuid.Nil {
		customerID = pgtype.UUID{Bytes: order.CustomerID, Valid: true}
	}

	query := `
		INSERT INTO orders (tenant_id, customer_id, customer_name, customer_phone, customer_email,
			delivery_address, items, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, order_number, created_at, updated_at
	`
	row := s.pool.QueryRow(ctx, query,
		order.TenantID,
		customerID,
		order.CustomerName,
		order.CustomerPhone,
		textOrNull(order.CustomerEmail),
		textOrNull(order.DeliveryAddress),
		itemsJSON,
		order.TotalAmount,
		string(order.Status),
	)
	if err := row.Scan(&order.ID, &order.OrderNumber, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := s.scanOrder(s.pool.QueryRow(ctx, query, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderStore) ListByTenant(ctx context.Context, tenantID uuid.UUID, status OrderStatus, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE tenant_id = $1`
	args := []any{tenantID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		order, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (s *OrderStore) ListByCustomer(ctx context.Context, tenantID, customerID uuid.UUID, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE tenant_id = $1 AND customer_id = $2
		ORDER BY created_at DESC LIMIT $3`
	rows, err := s.pool.Query(ctx, query, tenantID, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		order, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// UpdateStatus applies a staff-driven fulfillment transition. Payment fields
// are never touched here; those belong to ApplyPayment.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus) error {
	if _, ok := validOrderStatuses[status]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	query := `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := s.pool.Exec(ctx, query, string(status), orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ApplyPayment records the outcome of a payment reconciliation. It is a plain
// overwrite of the payment fields keyed by order id, so applying the same
// payment twice leaves the row unchanged. When mapped is false only the raw
// payment fields are written and the order status is left as-is.
//
// The returned row count is zero when no order matches the external
// reference; callers treat that as a non-fatal condition because provider
// retries and test traffic may reference unknown orders.
func (s *OrderStore) ApplyPayment(ctx context.Context, orderID uuid.UUID, paymentID, paymentStatus string, status OrderStatus, mapped bool) (int64, error) {
	if mapped {
		if _, ok := validOrderStatuses[status]; !ok {
			return 0, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
		}
		query := `UPDATE orders
			SET payment_id = $1, payment_status = $2, status = $3, updated_at = NOW()
			WHERE id = $4`
		cmdTag, err := s.pool.Exec(ctx, query, paymentID, paymentStatus, string(status), orderID)
		if err != nil {
			return 0, err
		}
		return cmdTag.RowsAffected(), nil
	}

	query := `UPDATE orders
		SET payment_id = $1, payment_status = $2, updated_at = NOW()
		WHERE id = $3`
	cmdTag, err := s.pool.Exec(ctx, query, paymentID, paymentStatus, orderID)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

type orderRowScanner interface {
	Scan(dest ...any) error
}

func (s *OrderStore) scanOrder(row orderRowScanner) (*Order, error) {
	var (
		order         Order
		customerID    pgtype.UUID
		customerEmail pgtype.Text
		address       pgtype.Text
		paymentID     pgtype.Text
		paymentStatus pgtype.Text
		itemsJSON     []byte
		status        string
	)

	err := row.Scan(
		&order.ID,
		&order.TenantID,
		&order.OrderNumber,
		&customerID,
		&order.CustomerName,
		&order.CustomerPhone,
		&customerEmail,
		&address,
		&itemsJSON,
		&order.TotalAmount,
		&status,
		&paymentID,
		&paymentStatus,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = OrderStatus(status)
	if customerID.Valid {
		order.CustomerID = customerID.Bytes
	}
	if customerEmail.Valid {
		order.CustomerEmail = customerEmail.String
	}
	if address.Valid {
		order.DeliveryAddress = address.String
	}
	if paymentID.Valid {
		order.PaymentID = paymentID.String
	}
	if paymentStatus.Valid {
		order.PaymentStatus = paymentStatus.String
	}
	if itemsJSON != nil {
		if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
			return nil, fmt.Errorf("failed to decode order items: %w", err)
		}
	}

	return &order, nil
}

func textOrNull(value string) pgtype.Text {
	return pgtype.Text{String: value, Valid: value != ""}
}
