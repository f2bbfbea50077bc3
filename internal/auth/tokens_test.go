package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestTokenIssuerRoundTrip(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("0123456789abcdef0123456789abcdef")
	customerID := uuid.New()
	tenantID := uuid.New()

	token, err := issuer.Issue(customerID, tenantID, "maria@example.com")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.CustomerID != customerID {
		t.Errorf("CustomerID = %v, want %v", claims.CustomerID, customerID)
	}
	if claims.TenantID != tenantID {
		t.Errorf("TenantID = %v, want %v", claims.TenantID, tenantID)
	}
	if claims.Email != "maria@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "maria@example.com")
	}
}

func TestTokenIssuerRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("0123456789abcdef0123456789abcdef")
	other := NewTokenIssuer("ffffffffffffffffffffffffffffffff")

	token, err := issuer.Issue(uuid.New(), uuid.New(), "maria@example.com")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := other.Verify(token); err != ErrInvalidToken {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenIssuerRejectsGarbage(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("0123456789abcdef0123456789abcdef")
	if _, err := issuer.Verify("not-a-token"); err != ErrInvalidToken {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("segredo123")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !CheckPassword(hash, "segredo123") {
		t.Error("CheckPassword() = false for correct password")
	}
	if CheckPassword(hash, "errado") {
		t.Error("CheckPassword() = true for wrong password")
	}
}
