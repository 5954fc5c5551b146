package audithttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoshop-erp/autoshop/internal/audit"
	"github.com/autoshop-erp/autoshop/internal/rbac"
)

type stubService struct {
	last audit.TimelineFilters
	rows []audit.TimelineRow
}

func (s *stubService) Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.last = filters
	return audit.Result{Rows: s.rows, Paging: audit.PagingInfo{Page: filters.Page, PageSize: 20}}, nil
}

func (s *stubService) Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.last = filters
	return s.rows, nil
}

func newRouter(svc *stubService) http.Handler {
	h := NewHandler(nil, svc, rbac.Guard{Table: rbac.DefaultTable()})
	h.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/api/audit-logs", h.MountRoutes)
	return r
}

func get(h http.Handler, path string, id *rbac.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if id != nil {
		req = req.WithContext(rbac.ContextWithIdentity(req.Context(), id))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var adminID = &rbac.Identity{UserID: 1, Role: rbac.RoleAdmin}

func TestTimelineRequiresAdmin(t *testing.T) {
	router := newRouter(&stubService{})
	assert.Equal(t, http.StatusUnauthorized, get(router, "/api/audit-logs", nil).Code)
	assert.Equal(t, http.StatusForbidden, get(router, "/api/audit-logs", &rbac.Identity{UserID: 4, Role: rbac.RoleHRManager}).Code)
	assert.Equal(t, http.StatusOK, get(router, "/api/audit-logs", adminID).Code)
}

func TestTimelineDefaultsAndFilters(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc)

	rec := get(router, "/api/audit-logs", adminID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), svc.last.To)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), svc.last.From)
	assert.Equal(t, 1, svc.last.Page)

	rec = get(router, "/api/audit-logs?from=2026-03-01&to=2026-03-02&actor_id=9&entity=user&action=account.deleted&page=3&page_size=5", adminID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(9), svc.last.ActorID)
	assert.Equal(t, "user", svc.last.Entity)
	assert.Equal(t, "account.deleted", svc.last.Action)
	assert.Equal(t, 3, svc.last.Page)
	assert.Equal(t, 5, svc.last.PageSize)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	router := newRouter(&stubService{})
	for _, q := range []string{"?from=yesterday", "?from=2026-03-10&to=2026-03-01", "?from=2025-01-01&to=2026-03-01", "?page=0", "?actor_id=abc"} {
		rec := get(router, "/api/audit-logs"+q, adminID)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestExportCSV(t *testing.T) {
	svc := &stubService{rows: []audit.TimelineRow{{At: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), ActorID: 1, Action: "auth.login", Entity: "user", EntityID: "1"}}}
	router := newRouter(svc)

	rec := get(router, "/api/audit-logs/export.csv", adminID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "auth.login")

	for i := 0; i < rateLimit; i++ {
		get(router, "/api/audit-logs/export.csv", adminID)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(router, "/api/audit-logs/export.csv", adminID).Code)
}
