package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fornadaapp/fornada/internal/db"
	"github.com/fornadaapp/fornada/internal/models"
	"github.com/fornadaapp/fornada/internal/services"
	"github.com/fornadaapp/fornada/internal/session"
)

// merchantSession returns the authenticated merchant or writes a 401.
// RequireAuth guards the admin routes, so a miss here is a wiring bug.
func (h *Handlers) merchantSession(w http.ResponseWriter, r *http.Request) *session.Data {
	sess := h.sessionFromRequest(r.Context(), r)
	if sess == nil || sess.TenantID == uuid.Nil {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return nil
	}
	return sess
}

func (h *Handlers) requireOwner(w http.ResponseWriter, r *http.Request) *session.Data {
	sess := h.merchantSession(w, r)
	if sess == nil {
		return nil
	}
	if sess.Role != models.RoleOwner {
		h.writeError(w, http.StatusForbidden, "owner role required")
		return nil
	}
	return sess
}

// AdminListOrders handles GET /admin/orders. The optional status query
// filters the queue.
func (h *Handlers) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.merchantSession(w, r)
	if sess == nil {
		return
	}

	status := db.OrderStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	orders, err := h.orderService.ListTenantOrders(ctx, sess.TenantID, status, 0)
	if err != nil {
		if errors.Is(err, db.ErrInvalidStatus) {
			h.writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		h.loggerFromContext(ctx).Error("order listing failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []*db.Order{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// AdminListCustomers handles GET /admin/customers.
func (h *Handlers) AdminListCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.merchantSession(w, r)
	if sess == nil {
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	customers, err := h.tenantService.ListCustomers(ctx, sess.TenantID, limit)
	if err != nil {
		h.loggerFromContext(ctx).Error("customer listing failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list customers")
		return
	}
	if customers == nil {
		customers = []*db.Customer{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// AdminUpdateOrderStatus handles PATCH /admin/orders/{orderID}/status.
func (h *Handlers) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.merchantSession(w, r)
	if sess == nil {
		return
	}

	orderID, err := uuid.Parse(mux.Vars(r)["orderID"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The order must belong to the merchant's tenant.
	order, err := h.orderService.GetOrder(ctx, orderID)
	if err != nil || order.TenantID != sess.TenantID {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if err := h.orderService.UpdateOrderStatus(ctx, orderID, db.OrderStatus(req.Status)); err != nil {
		switch {
		case errors.Is(err, db.ErrInvalidStatus):
			h.writeError(w, http.StatusBadRequest, "unknown status")
		case errors.Is(err, db.ErrOrderNotFound):
			h.writeError(w, http.StatusNotFound, "order not found")
		default:
			h.loggerFromContext(ctx).Error("order status update failed", "error", err, "order_id", orderID)
			h.writeError(w, http.StatusInternalServerError, "failed to update order")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// AdminGetSettings handles GET /admin/settings.
func (h *Handlers) AdminGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.merchantSession(w, r)
	if sess == nil {
		return
	}

	tenant, err := h.tenantService.GetTenant(ctx, sess.TenantID)
	if err != nil {
		h.loggerFromContext(ctx).Error("tenant lookup failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}

	h.writeJSON(w, http.StatusOK, tenant)
}

// AdminUpdateSettings handles PUT /admin/settings.
func (h *Handlers) AdminUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.merchantSession(w, r)
	if sess == nil {
		return
	}

	var input services.UpdateSettingsInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tenant, err := h.tenantService.UpdateSettings(ctx, sess.TenantID, input)
	if err != nil {
		h.loggerFromContext(ctx).Error("settings update failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	h.writeJSON(w, http.StatusOK, tenant)
}

type paymentConfigRequest struct {
	AccessToken string `json:"accessToken"`
}

// AdminSetPaymentConfig handles PUT /admin/settings/payment. Owner only;
// the token is write-only and never echoed back.
func (h *Handlers) AdminSetPaymentConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.requireOwner(w, r)
	if sess == nil {
		return
	}

	var req paymentConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.tenantService.SetPaymentCredential(ctx, sess.TenantID, req.AccessToken); err != nil {
		if errors.Is(err, services.ErrOrderInvalidInput) {
			h.writeError(w, http.StatusBadRequest, "access token is required")
			return
		}
		h.loggerFromContext(ctx).Error("payment config update failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to update payment config")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// AdminSetEmailConfig handles PUT /admin/settings/email. Owner only.
func (h *Handlers) AdminSetEmailConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.requireOwner(w, r)
	if sess == nil {
		return
	}

	var input services.EmailConfigInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.tenantService.SetEmailConfig(ctx, sess.TenantID, input); err != nil {
		if errors.Is(err, services.ErrOrderInvalidInput) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.loggerFromContext(ctx).Error("email config update failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to update email config")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// AdminImportMenu handles POST /admin/menu/import with a YAML body.
func (h *Handlers) AdminImportMenu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.merchantSession(w, r)
	if sess == nil {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	content, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := h.menuService.ImportMenu(ctx, sess.TenantID, content); err != nil {
		if errors.Is(err, services.ErrOrderInvalidInput) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.loggerFromContext(ctx).Error("menu import failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to import menu")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// AdminStartBillingCheckout handles POST /admin/billing/checkout.
func (h *Handlers) AdminStartBillingCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.requireOwner(w, r)
	if sess == nil {
		return
	}

	url, err := h.subscriptionService.StartCheckout(ctx, sess.TenantID, sess.Email)
	if err != nil {
		if errors.Is(err, services.ErrBillingUnavailable) {
			h.writeError(w, http.StatusNotFound, "billing is not enabled")
			return
		}
		h.loggerFromContext(ctx).Error("billing checkout failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to start billing checkout")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"checkoutUrl": url})
}

// AdminCompleteBillingCheckout handles GET /admin/billing/complete, the
// success redirect target from Stripe.
func (h *Handlers) AdminCompleteBillingCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.requireOwner(w, r)
	if sess == nil {
		return
	}

	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		h.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if err := h.subscriptionService.CompleteCheckout(ctx, sess.TenantID, sessionID); err != nil {
		if errors.Is(err, services.ErrBillingUnavailable) {
			h.writeError(w, http.StatusNotFound, "billing is not enabled")
			return
		}
		h.loggerFromContext(ctx).Error("billing completion failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to record subscription")
		return
	}

	http.Redirect(w, r, "/admin/billing?status=success", http.StatusSeeOther)
}

// AdminBillingStatus handles GET /admin/billing/status.
func (h *Handlers) AdminBillingStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.merchantSession(w, r)
	if sess == nil {
		return
	}

	status, err := h.subscriptionService.Status(ctx, sess.TenantID)
	if err != nil {
		if errors.Is(err, services.ErrBillingUnavailable) {
			h.writeError(w, http.StatusNotFound, "billing is not enabled")
			return
		}
		h.loggerFromContext(ctx).Error("billing status failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get billing status")
		return
	}

	h.writeJSON(w, http.StatusOK, status)
}
