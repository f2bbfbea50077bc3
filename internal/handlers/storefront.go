package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fornadaapp/fornada/internal/db"
)

// GetStorefront handles GET /api/storefront/{subdomain}. It returns the
// tenant's public branding and delivery settings; credentials never leave
// the model thanks to their json tags.
func (h *Handlers) GetStorefront(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, err := h.tenantService.ResolveStorefront(ctx, mux.Vars(r)["subdomain"])
	if err != nil {
		if errors.Is(err, db.ErrTenantNotFound) {
			h.writeError(w, http.StatusNotFound, "storefront not found")
			return
		}
		h.loggerFromContext(ctx).Error("storefront lookup failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to resolve storefront")
		return
	}

	h.writeJSON(w, http.StatusOK, tenant)
}

// GetMenu handles GET /api/storefront/{tenantID}/menu.
func (h *Handlers) GetMenu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, err := uuid.Parse(mux.Vars(r)["tenantID"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	categories, err := h.menuService.GetMenu(ctx, tenantID)
	if err != nil {
		h.loggerFromContext(ctx).Error("menu lookup failed", "error", err, "tenant_id", tenantID)
		h.writeError(w, http.StatusInternalServerError, "failed to get menu")
		return
	}
	if categories == nil {
		categories = []db.Category{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}
