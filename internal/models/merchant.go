package models

import (
	"time"

	"github.com/google/uuid"
)

// Merchant roles. Owners can change payment and billing settings,
// staff can only work the order queue.
const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

// MerchantUser is a pizzeria operator with access to the admin area.
// Email is unique across all tenants so a login resolves to one account.
type MerchantUser struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	GoogleID     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
