package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/fornadaapp/fornada/internal/cache"
	"github.com/fornadaapp/fornada/internal/db"
	"github.com/fornadaapp/fornada/internal/logging"
	"github.com/fornadaapp/fornada/internal/mercadopago"
	"github.com/fornadaapp/fornada/internal/observability"
)

const webhookDedupeTTL = 10 * time.Minute

// statusFromProvider maps a Mercado Pago payment status to an order status.
// An unmapped status records the payment fields but leaves the order status
// untouched; a later notification with a known status settles it.
func statusFromProvider(providerStatus string) (db.OrderStatus, bool) {
	switch providerStatus {
	case "approved":
		return db.StatusNew, true
	case "pending", "in_process":
		return db.StatusPending, true
	case "rejected", "cancelled":
		return db.StatusCancelled, true
	default:
		return "", false
	}
}

type paymentFetcher interface {
	GetPayment(ctx context.Context, accessToken, paymentID string) (*mercadopago.Payment, error)
}

type paymentApplier interface {
	ApplyPayment(ctx context.Context, orderID uuid.UUID, paymentID, paymentStatus string, status db.OrderStatus, mapped bool) (int64, error)
}

// PaymentService reconciles order state from Mercado Pago webhook
// notifications. The notification body is never trusted: the payment is
// re-fetched from the provider with the tenant's credential and only that
// second read drives the order update.
type PaymentService struct {
	orders        paymentApplier
	tenants       tenantGetter
	provider      paymentFetcher
	cache         cache.Provider
	notifier      *OrderNotifier
	fallbackToken string
	logger        *slog.Logger
}

func NewPaymentService(orders paymentApplier, tenants tenantGetter, provider paymentFetcher, cacheProvider cache.Provider, notifier *OrderNotifier, fallbackToken string, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		orders:        orders,
		tenants:       tenants,
		provider:      provider,
		cache:         cacheProvider,
		notifier:      notifier,
		fallbackToken: fallbackToken,
		logger:        logger,
	}
}

// ProcessNotification handles one webhook delivery. tenantID comes from the
// notification URL query and may be uuid.Nil for legacy single-tenant
// installations. Returning nil means the delivery is settled and must not be
// redelivered; an error asks the provider to retry.
func (s *PaymentService) ProcessNotification(ctx context.Context, tenantID uuid.UUID, notification *mercadopago.Notification) error {
	span := sentry.StartSpan(
		ctx,
		"service.payment.process_notification",
		sentry.WithOpName("service.payment"),
		sentry.WithDescription("ProcessNotification"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := logging.FromContext(ctx, s.logger)
	meter := observability.MeterFromContext(ctx)
	meter.Count("webhook.payment.received", 1)
	recordFailure := func(reason string) {
		meter.Count("webhook.payment.failed", 1, sentry.WithAttributes(
			observability.Reason(reason),
		))
	}

	if notification == nil || !notification.IsPayment() {
		meter.Count("webhook.payment.skipped", 1, sentry.WithAttributes(
			observability.Reason("not_payment"),
		))
		return nil
	}

	paymentID := notification.PaymentID()
	if paymentID == "" {
		recordFailure("missing_payment_id")
		return fmt.Errorf("payment notification has no payment id")
	}

	if s.alreadyProcessed(ctx, notification) {
		meter.Count("webhook.payment.skipped", 1, sentry.WithAttributes(
			observability.Reason("duplicate"),
		))
		logger.Info("skipping duplicate payment notification", "payment_id", paymentID)
		return nil
	}

	token, err := s.resolveCredential(ctx, tenantID)
	if err != nil {
		recordFailure("no_credential")
		return err
	}

	payment, err := s.provider.GetPayment(ctx, token, paymentID)
	if err != nil {
		recordFailure("payment_fetch_failed")
		return fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}

	orderID, err := uuid.Parse(payment.ExternalReference)
	if err != nil {
		// The payment belongs to something that is not one of our orders.
		// Settled, not retryable.
		logger.Warn("payment has no usable external reference",
			"payment_id", paymentID, "external_reference", payment.ExternalReference)
		meter.Count("webhook.payment.skipped", 1, sentry.WithAttributes(
			observability.Reason("bad_reference"),
		))
		return nil
	}

	status, mapped := statusFromProvider(payment.Status)
	if !mapped {
		logger.Warn("unrecognized payment status, keeping order status",
			"payment_id", paymentID, "provider_status", payment.Status, "order_id", orderID)
	}

	rows, err := s.orders.ApplyPayment(ctx, orderID, payment.ID.String(), payment.Status, status, mapped)
	if err != nil {
		recordFailure("order_update_failed")
		return fmt.Errorf("failed to apply payment to order %s: %w", orderID, err)
	}
	if rows == 0 {
		// Unknown order id. Log and settle; retrying will not make the
		// order appear.
		logger.Warn("payment references unknown order", "payment_id", paymentID, "order_id", orderID)
		meter.Count("webhook.payment.skipped", 1, sentry.WithAttributes(
			observability.Reason("unknown_order"),
		))
		s.markProcessed(ctx, notification)
		return nil
	}

	meter.Count("webhook.payment.applied", 1, sentry.WithAttributes(
		attribute.String("provider_status", payment.Status),
	))
	logger.Info("payment applied to order",
		"order_id", orderID,
		"payment_id", payment.ID.String(),
		"provider_status", payment.Status,
		"amount", payment.TransactionAmount,
	)

	if mapped && status == db.StatusNew && s.notifier != nil {
		s.notifier.SendPaymentConfirmation(ctx, orderID)
	}

	s.markProcessed(ctx, notification)
	return nil
}

// resolveCredential picks the token used for the authoritative payment fetch.
func (s *PaymentService) resolveCredential(ctx context.Context, tenantID uuid.UUID) (string, error) {
	if tenantID != uuid.Nil {
		tenant, err := s.tenants.GetByID(ctx, tenantID)
		if err != nil {
			return "", fmt.Errorf("failed to get tenant %s: %w", tenantID, err)
		}
		if tenant.HasPaymentCredential() {
			return tenant.MercadoPagoAccessToken, nil
		}
	}
	if s.fallbackToken != "" {
		return s.fallbackToken, nil
	}
	return "", ErrPaymentNotConfigured
}

// Dedupe is best effort. The payment write is a plain overwrite with
// provider state, so a redelivery that slips past the cache converges to
// the same row.
func (s *PaymentService) alreadyProcessed(ctx context.Context, notification *mercadopago.Notification) bool {
	key := notification.DedupeKey()
	if s.cache == nil || key == "" {
		return false
	}
	_, err := s.cache.Get(ctx, cache.WebhookKey("mercadopago", key))
	return err == nil
}

func (s *PaymentService) markProcessed(ctx context.Context, notification *mercadopago.Notification) {
	key := notification.DedupeKey()
	if s.cache == nil || key == "" {
		return
	}
	if err := s.cache.Set(ctx, cache.WebhookKey("mercadopago", key), "1", webhookDedupeTTL); err != nil && s.logger != nil {
		s.logger.Warn("failed to record webhook dedupe key", "error", err)
	}
}
