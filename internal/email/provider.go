// Package email sends transactional email on behalf of tenants.
package email

import (
	"context"
	"fmt"

	"github.com/fornadaapp/fornada/internal/db"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// NewProviderFromTenant builds a provider from the tenant's email settings.
// Tenants without email configured get no provider and no error; callers
// treat that as "confirmation email disabled".
func NewProviderFromTenant(tenant *db.Tenant) (Provider, error) {
	if tenant == nil || tenant.EmailProvider == "" {
		return nil, nil
	}

	switch tenant.EmailProvider {
	case "resend":
		if tenant.EmailAPIKey == "" || tenant.EmailFrom == "" {
			return nil, fmt.Errorf("tenant email config is incomplete")
		}
		return NewResendProvider(tenant.EmailAPIKey, tenant.EmailFrom), nil
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", tenant.EmailProvider)
	}
}
