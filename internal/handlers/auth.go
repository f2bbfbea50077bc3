package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/fornadaapp/fornada/internal/services"
	"github.com/fornadaapp/fornada/internal/session"
)

const oauthStateCookie = "fornada_oauth_state"

type merchantLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MerchantLogin handles POST /admin/login.
func (h *Handlers) MerchantLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	var req merchantLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.LoginMerchant(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		logger.Error("merchant login failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	if _, err := h.sessionManager.CreateSession(ctx, w, &session.Data{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Email:    user.Email,
		Role:     user.Role,
	}); err != nil {
		logger.Error("failed to create session", "error", err)
		h.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.writeJSON(w, http.StatusOK, user)
}

// MerchantLogout handles POST /admin/logout.
func (h *Handlers) MerchantLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionManager.DestroySession(r.Context(), w, r); err != nil {
		h.loggerFromContext(r.Context()).Warn("failed to destroy session", "error", err)
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GoogleLogin handles GET /auth/google/login and redirects to Google's
// consent screen.
func (h *Handlers) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	result, err := h.authService.StartGoogleLogin()
	if err != nil {
		if errors.Is(err, services.ErrGoogleUnavailable) {
			h.writeError(w, http.StatusNotFound, "google login is not configured")
			return
		}
		h.loggerFromContext(r.Context()).Error("failed to start google login", "error", err)
		h.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    result.State,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   SecureCookiesFromConfig(h.config),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, result.AuthorizationURL, http.StatusSeeOther)
}

// GoogleCallback handles GET /auth/google/callback.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		h.writeError(w, http.StatusBadRequest, "oauth state mismatch")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/auth/google", MaxAge: -1})

	user, err := h.authService.CompleteGoogleOAuth(ctx, r.URL.Query().Get("code"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoMerchantAccount):
			h.writeError(w, http.StatusForbidden, "no merchant account for this google user")
		case errors.Is(err, services.ErrAuthInvalidCode), errors.Is(err, services.ErrAuthCodeExchange):
			h.writeError(w, http.StatusBadRequest, "oauth exchange failed")
		default:
			logger.Error("google oauth failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "login failed")
		}
		return
	}

	if _, err := h.sessionManager.CreateSession(ctx, w, &session.Data{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Email:    user.Email,
		Role:     user.Role,
	}); err != nil {
		logger.Error("failed to create session", "error", err)
		h.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

type customerRegisterRequest struct {
	TenantID uuid.UUID `json:"tenantId"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	Address  string    `json:"address"`
	Password string    `json:"password"`
}

// CustomerRegister handles POST /api/auth/register.
func (h *Handlers) CustomerRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req customerRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TenantID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "tenantId is required")
		return
	}

	result, err := h.authService.RegisterCustomer(ctx, services.RegisterCustomerInput{
		TenantID: req.TenantID,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			h.writeError(w, http.StatusConflict, "email is already registered")
		case errors.Is(err, services.ErrOrderInvalidInput):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.loggerFromContext(ctx).Error("customer registration failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

type customerLoginRequest struct {
	TenantID uuid.UUID `json:"tenantId"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
}

// CustomerLogin handles POST /api/auth/login.
func (h *Handlers) CustomerLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req customerLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.authService.LoginCustomer(ctx, req.TenantID, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.loggerFromContext(ctx).Error("customer login failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}
