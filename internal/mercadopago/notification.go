package mercadopago

import (
	"encoding/json"
	"fmt"
)

// NotificationTypePayment is the only notification type the webhook acts on.
// Every other type must still be acknowledged with a 2xx or the provider
// keeps redelivering it.
const NotificationTypePayment = "payment"

// Notification is the body Mercado Pago posts to the notification URL.
// It is treated as a hint only: the payment id it names is re-fetched from
// the API before any state changes.
type Notification struct {
	ID     json.Number `json:"id"`
	Type   string      `json:"type"`
	Action string      `json:"action"`
	Data   struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

func ParseNotification(body []byte) (*Notification, error) {
	var notification Notification
	if err := json.Unmarshal(body, &notification); err != nil {
		return nil, fmt.Errorf("failed to parse notification: %w", err)
	}
	return &notification, nil
}

// IsPayment reports whether the notification refers to a payment event.
func (n *Notification) IsPayment() bool {
	return n != nil && n.Type == NotificationTypePayment
}

// PaymentID returns the provider payment id the notification refers to.
func (n *Notification) PaymentID() string {
	if n == nil {
		return ""
	}
	return n.Data.ID.String()
}

// DedupeKey identifies one delivery of one notification for idempotency
// caching. Empty when the provider sent no notification id.
func (n *Notification) DedupeKey() string {
	if n == nil || n.ID.String() == "" {
		return ""
	}
	return n.Type + ":" + n.ID.String()
}
