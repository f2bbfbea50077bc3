package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	// StatusPending means the order exists but payment has not been
	// confirmed yet.
	StatusPending OrderStatus = "pending"
	// StatusNew means payment is approved and the order is ready for
	// fulfillment.
	StatusNew        OrderStatus = "new"
	StatusPreparing  OrderStatus = "preparing"
	StatusDelivering OrderStatus = "delivering"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

type OrderItem struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
	Notes      string  `json:"notes,omitempty"`
}

type Order struct {
	ID              uuid.UUID   `json:"id"`
	TenantID        uuid.UUID   `json:"tenant_id"`
	OrderNumber     int         `json:"order_number"`
	CustomerID      uuid.UUID   `json:"customer_id,omitempty"`
	CustomerName    string      `json:"customer_name"`
	CustomerPhone   string      `json:"customer_phone"`
	CustomerEmail   string      `json:"customer_email,omitempty"`
	DeliveryAddress string      `json:"delivery_address,omitempty"`
	Items           []OrderItem `json:"items"`
	TotalAmount     float64     `json:"total_amount"`
	Status          OrderStatus `json:"status"`
	PaymentID       string      `json:"payment_id,omitempty"`
	PaymentStatus   string      `json:"payment_status,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
