package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestManagerRoundTrip(t *testing.T) {
	t.Parallel()

	manager := NewManager(NewMemoryStore(), false)
	ctx := context.Background()

	data := &Data{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		Email:    "dona@pizzaria.example",
		Role:     "owner",
	}

	rec := httptest.NewRecorder()
	if _, err := manager.CreateSession(ctx, rec, data); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].Name != cookieName {
		t.Errorf("cookie name = %q, want %q", cookies[0].Name, cookieName)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.AddCookie(cookies[0])

	got, err := manager.GetSession(ctx, req)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.TenantID != data.TenantID {
		t.Errorf("TenantID = %v, want %v", got.TenantID, data.TenantID)
	}
	if got.Email != data.Email {
		t.Errorf("Email = %q, want %q", got.Email, data.Email)
	}
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	t.Parallel()

	manager := NewManager(NewMemoryStore(), false)
	handler := manager.RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orders", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
