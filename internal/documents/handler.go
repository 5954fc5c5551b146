package documents

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autoshop-erp/autoshop/internal/platform/httpx"
	"github.com/autoshop-erp/autoshop/internal/rbac"
	"github.com/autoshop-erp/autoshop/internal/shared"
)

const maxDocumentBytes = 1 << 20

// Handler exposes CRUD routes for every collection.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   rbac.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers /<collection> routes, each gated by the permission
// its HTTP method maps to.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, c := range collections {
		c := c
		r.Route("/"+c.Path, func(r chi.Router) {
			r.With(h.guard.RequirePermission(c.Resource, rbac.ActionRead)).Get("/", h.list(c))
			r.With(h.guard.RequirePermission(c.Resource, rbac.ActionCreate)).Post("/", h.create(c))
			r.With(h.guard.RequirePermission(c.Resource, rbac.ActionRead)).Get("/{id}", h.get(c))
			r.With(h.guard.RequirePermission(c.Resource, rbac.ActionUpdate)).Patch("/{id}", h.update(c))
			r.With(h.guard.RequirePermission(c.Resource, rbac.ActionDelete)).Delete("/{id}", h.delete(c))
		})
	}
}

func (h *Handler) list(c Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, perPage := shared.PageParams(r.URL.Query().Get("page"), r.URL.Query().Get("per_page"))
		result, err := h.service.List(r.Context(), c.Path, page, perPage)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, result)
	}
}

func (h *Handler) get(c Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.service.Get(r.Context(), c.Path, chi.URLParam(r, "id"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, doc)
	}
}

func (h *Handler) create(c Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		doc, err := h.service.Create(r.Context(), rbac.IdentityFromContext(r.Context()), c.Path, body, r.Header.Get("Idempotency-Key"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, doc)
	}
}

func (h *Handler) update(c Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		doc, err := h.service.Update(r.Context(), rbac.IdentityFromContext(r.Context()), c.Path, chi.URLParam(r, "id"), body)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, doc)
	}
}

func (h *Handler) delete(c Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.Delete(r.Context(), c.Path, chi.URLParam(r, "id")); err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "request body too large")
		return nil, false
	}
	return body, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("documents", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
