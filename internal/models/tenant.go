package models

import (
	"time"

	"github.com/google/uuid"
)

const ProviderMercadoPago = "mercadopago"

type Tenant struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	Subdomain            string    `json:"subdomain"`
	LogoURL              string    `json:"logo_url,omitempty"`
	PrimaryColor         string    `json:"primary_color,omitempty"`
	SecondaryColor       string    `json:"secondary_color,omitempty"`
	DeliveryFee          float64   `json:"delivery_fee"`
	DeliveryRadiusKm     float64   `json:"delivery_radius_km"`
	FreeDeliveryMinOrder float64   `json:"free_delivery_min_order,omitempty"`
	PaymentProvider      string    `json:"payment_provider,omitempty"`
	// MercadoPagoAccessToken is stored encrypted and only decrypted by the
	// tenant store on read. Never serialized.
	MercadoPagoAccessToken string `json:"-"`
	EmailProvider          string `json:"email_provider,omitempty"`
	EmailFrom              string `json:"email_from,omitempty"`
	// EmailAPIKey is stored encrypted alongside the payment credential.
	EmailAPIKey          string    `json:"-"`
	StripeCustomerID     string    `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string    `json:"stripe_subscription_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// HasPaymentCredential reports whether the tenant is onboarded for
// Mercado Pago checkout.
func (t *Tenant) HasPaymentCredential() bool {
	return t != nil && t.MercadoPagoAccessToken != ""
}
