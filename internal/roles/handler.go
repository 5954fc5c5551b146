package roles

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autoshop-erp/autoshop/internal/platform/httpx"
	"github.com/autoshop-erp/autoshop/internal/rbac"
)

// Handler manages role endpoints.
type Handler struct {
	service *Service
	guard   rbac.Guard
}

// NewHandler builds Handler instance.
func NewHandler(service *Service, guard rbac.Guard) *Handler {
	return &Handler{service: service, guard: guard}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(rbac.RoleAdmin))
		r.Get("/", h.listRoles)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": h.service.ListRoles()})
}
