package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fornadaapp/fornada/internal/db"
	"github.com/fornadaapp/fornada/internal/mercadopago"
	"github.com/fornadaapp/fornada/internal/services"
)

// CreateCheckout handles POST /api/payments/checkout. It reads the cart,
// creates a Mercado Pago preference for the tenant and returns the hosted
// checkout URL.
func (h *Handlers) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	var input services.CheckoutInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input.Origin = strings.TrimSpace(r.Header.Get("Origin"))

	result, err := h.checkoutService.CreateCheckout(ctx, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCheckoutInvalidInput):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrPaymentNotConfigured):
			h.writeError(w, http.StatusInternalServerError, "payment provider is not configured")
		case errors.Is(err, db.ErrTenantNotFound):
			h.writeError(w, http.StatusNotFound, "tenant not found")
		default:
			var upstream *mercadopago.UpstreamError
			if errors.As(err, &upstream) {
				logger.Error("mercado pago rejected checkout", "error", err, "upstream_status", upstream.StatusCode)
				h.writeError(w, http.StatusInternalServerError, upstream.Error())
				return
			}
			logger.Error("checkout creation failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "failed to create checkout")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}
