package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fornadaapp/fornada/internal/db"
	"github.com/fornadaapp/fornada/internal/email"
	"github.com/fornadaapp/fornada/internal/logging"
	"github.com/fornadaapp/fornada/internal/observability"
)

var ErrOrderInvalidInput = errors.New("invalid order request")

// OrderService owns order intake and the staff-facing order queue.
type OrderService struct {
	orders   *db.OrderStore
	tenants  tenantGetter
	validate *validator.Validate
	logger   *slog.Logger
}

func NewOrderService(orders *db.OrderStore, tenants tenantGetter, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		tenants:  tenants,
		validate: validator.New(),
		logger:   logger,
	}
}

type OrderItemInput struct {
	Name      string  `json:"name" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unitPrice" validate:"gt=0"`
	Notes     string  `json:"notes"`
}

type CreateOrderInput struct {
	TenantID        uuid.UUID        `json:"tenantId" validate:"required"`
	CustomerID      uuid.UUID        `json:"-"`
	CustomerName    string           `json:"customerName" validate:"required"`
	CustomerPhone   string           `json:"customerPhone" validate:"required"`
	CustomerEmail   string           `json:"customerEmail" validate:"omitempty,email"`
	DeliveryAddress string           `json:"deliveryAddress" validate:"required"`
	Items           []OrderItemInput `json:"items" validate:"required,min=1,dive"`
}

// CreateOrder persists a pending order. Totals are computed server side from
// unit prices; the delivery fee comes from the tenant's settings and is
// waived above the free delivery threshold.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*db.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.create",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("CreateOrder"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := logging.FromContext(ctx, s.logger)
	meter := observability.MeterFromContext(ctx)

	if err := s.validate.Struct(input); err != nil {
		meter.Count("order.intake.failed", 1, sentry.WithAttributes(
			observability.Reason("invalid_input"),
		))
		return nil, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}

	tenant, err := s.tenants.GetByID(ctx, input.TenantID)
	if err != nil {
		meter.Count("order.intake.failed", 1, sentry.WithAttributes(
			observability.Reason("tenant_lookup_failed"),
		))
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	items := make([]db.OrderItem, 0, len(input.Items))
	subtotal := 0.0
	for _, item := range input.Items {
		lineTotal := item.UnitPrice * float64(item.Quantity)
		items = append(items, db.OrderItem{
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: lineTotal,
			Notes:      item.Notes,
		})
		subtotal += lineTotal
	}

	total := subtotal + deliveryFeeFor(tenant, subtotal)

	order := &db.Order{
		TenantID:        input.TenantID,
		CustomerID:      input.CustomerID,
		CustomerName:    input.CustomerName,
		CustomerPhone:   input.CustomerPhone,
		CustomerEmail:   input.CustomerEmail,
		DeliveryAddress: input.DeliveryAddress,
		Items:           items,
		TotalAmount:     total,
		Status:          db.StatusPending,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		meter.Count("order.intake.failed", 1, sentry.WithAttributes(
			observability.Reason("store_create_failed"),
		))
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	meter.Count("order.intake.created", 1)
	logger.Info("order created",
		"order_id", order.ID,
		"tenant_id", order.TenantID,
		"order_number", order.OrderNumber,
		"total", order.TotalAmount,
	)
	return order, nil
}

func deliveryFeeFor(tenant *db.Tenant, subtotal float64) float64 {
	if tenant.FreeDeliveryMinOrder > 0 && subtotal >= tenant.FreeDeliveryMinOrder {
		return 0
	}
	return tenant.DeliveryFee
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*db.Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// ListTenantOrders returns the queue for the admin area, newest first.
// status filters when non-empty.
func (s *OrderService) ListTenantOrders(ctx context.Context, tenantID uuid.UUID, status db.OrderStatus, limit int) ([]*db.Order, error) {
	return s.orders.ListByTenant(ctx, tenantID, status, limit)
}

func (s *OrderService) ListCustomerOrders(ctx context.Context, tenantID, customerID uuid.UUID, limit int) ([]*db.Order, error) {
	return s.orders.ListByCustomer(ctx, tenantID, customerID, limit)
}

// UpdateOrderStatus moves an order through the kitchen workflow. Only staff
// statuses are accepted; payment reconciliation writes go through
// PaymentService instead.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status db.OrderStatus) error {
	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return err
	}

	logging.FromContext(ctx, s.logger).Info("order status updated", "order_id", orderID, "status", status)
	return nil
}

// OrderNotifier sends the confirmation email once a payment is approved.
// Sending is best effort; a failed email never fails the webhook.
type OrderNotifier struct {
	orders  *db.OrderStore
	tenants tenantGetter
	logger  *slog.Logger

	// newProvider is swappable for tests.
	newProvider func(tenant *db.Tenant) (email.Provider, error)
}

func NewOrderNotifier(orders *db.OrderStore, tenants tenantGetter, logger *slog.Logger) *OrderNotifier {
	return &OrderNotifier{
		orders:      orders,
		tenants:     tenants,
		logger:      logger,
		newProvider: email.NewProviderFromTenant,
	}
}

func (n *OrderNotifier) SendPaymentConfirmation(ctx context.Context, orderID uuid.UUID) {
	logger := logging.FromContext(ctx, n.logger)

	order, err := n.orders.GetByID(ctx, orderID)
	if err != nil {
		logger.Warn("confirmation email skipped, order lookup failed", "error", err, "order_id", orderID)
		return
	}
	if order.CustomerEmail == "" {
		return
	}

	tenant, err := n.tenants.GetByID(ctx, order.TenantID)
	if err != nil {
		logger.Warn("confirmation email skipped, tenant lookup failed", "error", err, "order_id", orderID)
		return
	}

	provider, err := n.newProvider(tenant)
	if err != nil {
		logger.Warn("confirmation email skipped, bad email config", "error", err, "tenant_id", tenant.ID)
		return
	}
	if provider == nil {
		return
	}

	items := make([]email.OrderConfirmationItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, email.OrderConfirmationItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			LineTotal: formatBRL(item.TotalPrice),
		})
	}

	msg, err := email.RenderOrderConfirmation(email.OrderConfirmationInput{
		PizzeriaName:  tenant.Name,
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		Items:         items,
		Total:         formatBRL(order.TotalAmount),
	})
	if err != nil {
		logger.Warn("confirmation email skipped, render failed", "error", err, "order_id", orderID)
		return
	}

	if err := provider.SendEmail(ctx, msg); err != nil {
		logger.Warn("failed to send confirmation email", "error", err, "order_id", orderID)
		return
	}
	logger.Info("confirmation email sent", "order_id", orderID, "order_number", order.OrderNumber)
}

func formatBRL(amount float64) string {
	return fmt.Sprintf("R$ %.2f", amount)
}
