package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fornadaapp/fornada/internal/auth"
	"github.com/fornadaapp/fornada/internal/db"
	"github.com/fornadaapp/fornada/internal/services"
)

// CreateOrder handles POST /api/orders. A logged-in customer's token links
// the order to their account; anonymous orders are accepted too.
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	var input services.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if claims := h.customerClaims(r); claims != nil && claims.TenantID == input.TenantID {
		input.CustomerID = claims.CustomerID
	}

	order, err := h.orderService.CreateOrder(ctx, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderInvalidInput):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, db.ErrTenantNotFound):
			h.writeError(w, http.StatusNotFound, "tenant not found")
		default:
			logger.Error("order creation failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "failed to create order")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

// GetOrder handles GET /api/orders/{orderID}. The storefront polls it on the
// post-payment return pages to show the reconciled status.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := uuid.Parse(mux.Vars(r)["orderID"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orderService.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			h.writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.loggerFromContext(ctx).Error("order lookup failed", "error", err, "order_id", orderID)
		h.writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// ListMyOrders handles GET /api/me/orders for logged-in customers.
func (h *Handlers) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := h.customerClaims(r)
	if claims == nil {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orders, err := h.orderService.ListCustomerOrders(ctx, claims.TenantID, claims.CustomerID, 0)
	if err != nil {
		h.loggerFromContext(ctx).Error("customer order listing failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []*db.Order{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// customerClaims parses an optional storefront bearer token. Invalid tokens
// yield nil rather than an error so public endpoints stay usable.
func (h *Handlers) customerClaims(r *http.Request) *auth.CustomerClaims {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return nil
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil
	}

	claims, err := h.authService.VerifyCustomerToken(strings.TrimSpace(token))
	if err != nil {
		return nil
	}
	return claims
}
