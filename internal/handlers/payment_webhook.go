package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fornadaapp/fornada/internal/mercadopago"
)

// MercadoPagoWebhook handles POST /webhooks/mercadopago?tenant={id}.
// A 200 tells the provider the delivery is settled; anything else gets
// redelivered, so only errors that a retry can fix return 500.
func (h *Handlers) MercadoPagoWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("failed to read webhook body", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	notification, err := mercadopago.ParseNotification(body)
	if err != nil {
		logger.Error("failed to parse webhook notification", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid notification")
		return
	}

	tenantID := uuid.Nil
	if raw := strings.TrimSpace(r.URL.Query().Get("tenant")); raw != "" {
		tenantID, err = uuid.Parse(raw)
		if err != nil {
			logger.Warn("webhook has malformed tenant parameter", "tenant", raw)
			tenantID = uuid.Nil
		}
	}

	if err := h.paymentService.ProcessNotification(ctx, tenantID, notification); err != nil {
		logger.Error("failed to process payment notification", "error", err, "tenant_id", tenantID)
		h.writeError(w, http.StatusInternalServerError, "failed to process notification")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
