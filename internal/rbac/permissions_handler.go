package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autoshop-erp/autoshop/internal/platform/httpx"
)

// PermissionsHandler exposes the permission table to administrators.
type PermissionsHandler struct {
	table *Table
	guard Guard
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(table *Table, guard Guard) *PermissionsHandler {
	return &PermissionsHandler{table: table, guard: guard}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(RoleAdmin))
		r.Get("/", h.listPermissions)
	})
}

type roleGrants struct {
	Role        Role                  `json:"role"`
	Permissions map[Resource][]Action `json:"permissions"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	all := h.table.All()
	out := make([]roleGrants, 0, len(all))
	for _, role := range allRoles {
		if grants, ok := all[role]; ok {
			out = append(out, roleGrants{Role: role, Permissions: grants})
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"resources": Resources(),
		"actions":   Actions(),
		"roles":     out,
	})
}
