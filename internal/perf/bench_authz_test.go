package perf

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/autoshop-erp/autoshop/internal/rbac"
)

func guardedRouter() http.Handler {
	guard := rbac.Guard{Table: rbac.DefaultTable()}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	r := chi.NewRouter()
	r.With(guard.RequirePermission(rbac.ResourceCustomers, rbac.ActionDelete)).Delete("/customers/{id}", ok)
	r.With(guard.RequireRole(rbac.RoleAdmin)).Get("/users", ok)
	return r
}

func guardedRequest(method, path string, id *rbac.Identity) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	return req.WithContext(rbac.ContextWithIdentity(req.Context(), id))
}

func TestGuardLatencyTargets(t *testing.T) {
	router := guardedRouter()
	requests := []*http.Request{
		guardedRequest(http.MethodDelete, "/customers/1", &rbac.Identity{UserID: 1, Role: rbac.RoleAdmin}),
		guardedRequest(http.MethodDelete, "/customers/1", &rbac.Identity{UserID: 2, Role: rbac.RoleInventoryManager}),
		guardedRequest(http.MethodGet, "/users", &rbac.Identity{UserID: 3, Role: rbac.RoleSalesExecutive}),
	}

	samples := make([]time.Duration, 0, 300)
	for i := 0; i < 300; i++ {
		req := requests[i%len(requests)]
		start := time.Now()
		router.ServeHTTP(httptest.NewRecorder(), req)
		samples = append(samples, time.Since(start))
	}

	const threshold = 20 * time.Millisecond
	if p95 := percentile95(samples); p95 > threshold {
		t.Fatalf("guard latency regression: p95=%s threshold=%s", p95, threshold)
	}
}

func BenchmarkIsAllowed(b *testing.B) {
	table := rbac.DefaultTable()
	roles := rbac.Roles()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = table.IsAllowed(roles[i%len(roles)], rbac.ResourceOrders, rbac.ActionUpdate)
	}
}

func BenchmarkGuardedRequest(b *testing.B) {
	router := guardedRouter()
	req := guardedRequest(http.MethodDelete, "/customers/1", &rbac.Identity{UserID: 2, Role: rbac.RoleInventoryManager})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
