package documents

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/autoshop-erp/autoshop/internal/platform/httpx"
	"github.com/autoshop-erp/autoshop/internal/rbac"
)

// Summary reports document counts per collection.
type Summary struct {
	Counts      map[string]int `json:"counts"`
	Total       int            `json:"total"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Summarize counts every collection concurrently.
func (s *Service) Summarize(ctx context.Context) (Summary, error) {
	counts := make([]int, len(collections))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, c := range collections {
		i, c := i, c
		g.Go(func() error {
			n, err := s.store.Count(gctx, c.Path)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	out := Summary{Counts: make(map[string]int, len(collections)), GeneratedAt: time.Now().UTC()}
	for i, c := range collections {
		out.Counts[c.Path] = counts[i]
		out.Total += counts[i]
	}
	return out, nil
}

// ReportsHandler exposes aggregated reports.
type ReportsHandler struct {
	logger  *slog.Logger
	service *Service
	guard   rbac.Guard
}

// NewReportsHandler builds ReportsHandler instance.
func NewReportsHandler(logger *slog.Logger, service *Service, guard rbac.Guard) *ReportsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportsHandler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers report routes.
func (h *ReportsHandler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequirePermission(rbac.ResourceReports, rbac.ActionRead)).Get("/summary", h.summary)
}

func (h *ReportsHandler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summarize(r.Context())
	if err != nil {
		h.logger.Error("reports summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
