package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoshop-erp/autoshop/internal/shared"
)

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingRecorder) RecordAuthz(check, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[check+":"+outcome]++
}

func newTestRouter(guard Guard, reached *int) http.Handler {
	ok := func(w http.ResponseWriter, r *http.Request) {
		*reached++
		w.WriteHeader(http.StatusOK)
	}
	r := chi.NewRouter()
	r.With(guard.RequirePermission(ResourceProducts, ActionRead)).Get("/api/products", ok)
	r.With(guard.RequirePermission(ResourceOrders, ActionRead)).Get("/api/orders", ok)
	r.With(guard.RequirePermission(ResourceEmployees, ActionRead)).Get("/api/employees", ok)
	r.With(guard.RequirePermission(ResourceCustomers, ActionDelete)).Delete("/api/customers/{id}", ok)
	r.With(guard.RequireRole(RoleAdmin)).Post("/api/users", ok)
	r.With(guard.RequireAuth()).Get("/api/auth/me", ok)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, id *Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if id != nil {
		req = req.WithContext(ContextWithIdentity(req.Context(), id))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUnauthenticatedShortCircuits(t *testing.T) {
	reached := 0
	h := newTestRouter(Guard{Table: DefaultTable()}, &reached)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/products"},
		{http.MethodGet, "/api/orders"},
		{http.MethodDelete, "/api/customers/42"},
		{http.MethodPost, "/api/users"},
		{http.MethodGet, "/api/auth/me"},
	} {
		rec := do(t, h, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "authentication required", body["error"])
	}
	assert.Zero(t, reached)
}

func TestPermissionGuardUnauthenticatedForEveryPair(t *testing.T) {
	guard := Guard{Table: DefaultTable()}
	for _, resource := range Resources() {
		for _, action := range Actions() {
			reached := false
			h := guard.RequirePermission(resource, action)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
			}))
			rec := do(t, h, http.MethodGet, "/", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, reached)
		}
	}
}

func TestPermissionScenarios(t *testing.T) {
	reached := 0
	recorder := &countingRecorder{}
	h := newTestRouter(Guard{Table: DefaultTable(), Recorder: recorder}, &reached)

	inventory := &Identity{UserID: 2, Role: RoleInventoryManager, Name: "Ina", Email: "ina@shop.test"}
	rec := do(t, h, http.MethodDelete, "/api/customers/7", inventory)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	sales := &Identity{UserID: 3, Role: RoleSalesExecutive, Name: "Sam", Email: "sam@shop.test"}
	rec = do(t, h, http.MethodGet, "/api/orders", sales)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/employees", sales)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"error": "forbidden"}, body)

	assert.Equal(t, 1, reached)
	assert.Equal(t, 1, recorder.counts["permission:allow"])
	assert.Equal(t, 2, recorder.counts["permission:forbidden"])
}

func TestRoleGuard(t *testing.T) {
	reached := 0
	h := newTestRouter(Guard{Table: DefaultTable()}, &reached)

	rec := do(t, h, http.MethodPost, "/api/users", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/users", &Identity{UserID: 5, Role: RoleHRManager})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/users", &Identity{UserID: 1, Role: RoleAdmin})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, reached)
}

func TestIdentityWithUnknownRoleIsUnauthenticated(t *testing.T) {
	reached := 0
	h := newTestRouter(Guard{Table: DefaultTable()}, &reached)

	rec := do(t, h, http.MethodGet, "/api/products", &Identity{UserID: 9, Role: Role("Owner")})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, reached)
}

func TestNilTableDeniesAuthenticated(t *testing.T) {
	reached := 0
	h := newTestRouter(Guard{}, &reached)

	rec := do(t, h, http.MethodGet, "/api/products", &Identity{UserID: 1, Role: RoleAdmin})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, reached)
}

func TestPureChecks(t *testing.T) {
	table := DefaultTable()

	assert.ErrorIs(t, RequireIdentity(nil), shared.ErrUnauthenticated)
	assert.ErrorIs(t, CheckRole(nil, RoleAdmin), shared.ErrUnauthenticated)
	assert.ErrorIs(t, CheckRole(&Identity{UserID: 4, Role: RoleServiceStaff}, RoleAdmin, RoleHRManager), shared.ErrForbidden)
	assert.NoError(t, CheckRole(&Identity{UserID: 4, Role: RoleHRManager}, RoleAdmin, RoleHRManager))

	staff := &Identity{UserID: 4, Role: RoleServiceStaff}
	assert.NoError(t, table.Authorize(staff, ResourceCustomers, ActionRead))
	assert.ErrorIs(t, table.Authorize(staff, ResourceCustomers, ActionDelete), shared.ErrForbidden)
	assert.ErrorIs(t, table.Authorize(nil, ResourceCustomers, ActionRead), shared.ErrUnauthenticated)
}

func TestPermissionsHandlerAdminOnly(t *testing.T) {
	table := DefaultTable()
	r := chi.NewRouter()
	r.Route("/api/permissions", NewPermissionsHandler(table, Guard{Table: table}).MountRoutes)

	rec := do(t, r, http.MethodGet, "/api/permissions/", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/permissions/", &Identity{UserID: 3, Role: RoleServiceStaff})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/permissions/", &Identity{UserID: 1, Role: RoleAdmin})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Roles []struct {
			Role        Role                  `json:"role"`
			Permissions map[Resource][]Action `json:"permissions"`
		} `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Roles, len(Roles()))
	assert.Equal(t, RoleAdmin, body.Roles[0].Role)
	assert.Contains(t, body.Roles[0].Permissions[ResourceEmployees], ActionDelete)
}
