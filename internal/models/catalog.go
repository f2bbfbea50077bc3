package models

import (
	"time"

	"github.com/google/uuid"
)

// Variation types mirror the configuration options a pizzeria offers when a
// product is added to the cart.
const (
	VariationSize    = "size"
	VariationBorder  = "border"
	VariationDough   = "dough"
	VariationExtra   = "extra"
	VariationTopping = "topping"
)

type Category struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	DisplayOrder int       `json:"display_order"`
	Products     []Product `json:"products,omitempty"`
}

type Product struct {
	ID          uuid.UUID          `json:"id"`
	TenantID    uuid.UUID          `json:"tenant_id"`
	CategoryID  uuid.UUID          `json:"category_id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	BasePrice   float64            `json:"base_price"`
	ImageURL    string             `json:"image_url,omitempty"`
	Active      bool               `json:"active"`
	Variations  []ProductVariation `json:"variations,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

type ProductVariation struct {
	ID            uuid.UUID `json:"id"`
	ProductID     uuid.UUID `json:"product_id"`
	VariationType string    `json:"variation_type"`
	Name          string    `json:"name"`
	PriceModifier float64   `json:"price_modifier"`
}
