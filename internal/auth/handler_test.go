package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/autoshop-erp/autoshop/internal/auth"
	"github.com/autoshop-erp/autoshop/internal/rbac"
	"github.com/autoshop-erp/autoshop/internal/shared"
	_ "github.com/autoshop-erp/autoshop/testing"
)

type stubRepo struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[string]*auth.Account
	sessions map[string]int64
	findErr  error
}

func newStubRepo() *stubRepo {
	return &stubRepo{accounts: make(map[string]*auth.Account), sessions: make(map[string]int64)}
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	account, ok := s.accounts[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.ID == id {
			copied := *account
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) Create(ctx context.Context, in auth.NewAccount) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[in.Email]; ok {
		return nil, shared.ErrDuplicateEmail
	}
	s.nextID++
	now := time.Now().UTC()
	account := &auth.Account{
		ID:           s.nextID,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		IsActive:     in.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.accounts[in.Email] = account
	copied := *account
	return &copied, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *stubRepo) seed(t *testing.T, email, password string, role rbac.Role, active bool) *auth.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	account, err := s.Create(context.Background(), auth.NewAccount{
		Name: "Seeded", Email: email, PasswordHash: string(hash), Role: role, IsActive: active,
	})
	require.NoError(t, err)
	return account
}

type testEnv struct {
	repo     *stubRepo
	sessions *shared.SessionManager
	router   http.Handler
}

func newTestEnv(t *testing.T, allowRegistration bool) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newStubRepo()
	sessions := shared.NewSessionManager(client, "test_session", "test-secret", time.Hour, false)
	guard := rbac.Guard{Table: rbac.DefaultTable()}
	handler := auth.NewHandler(nil, auth.NewService(repo, bcrypt.MinCost), sessions, guard, auth.HandlerOptions{AllowRegistration: allowRegistration})

	r := chi.NewRouter()
	r.Use(auth.AttachIdentity(sessions, slogDiscard()))
	r.Route("/api/auth", handler.MountRoutes)
	return &testEnv{repo: repo, sessions: sessions, router: r}
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test_session" && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func TestLoginSuccessReturnsIdentity(t *testing.T) {
	env := newTestEnv(t, false)
	seeded := env.repo.seed(t, "ina@shop.test", "correct-horse", rbac.RoleInventoryManager, true)

	rec := env.do(t, http.MethodPost, "/api/auth/login", `{"email":" INA@shop.test ","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(seeded.ID), body["id"])
	assert.Equal(t, "ina@shop.test", body["email"])
	assert.Equal(t, "Inventory Manager", body["role"])
	assert.NotContains(t, body, "password_hash")

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Len(t, env.repo.sessions, 1)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t, false)
	env.repo.seed(t, "sam@shop.test", "correct-horse", rbac.RoleSalesExecutive, true)
	env.repo.seed(t, "old@shop.test", "correct-horse", rbac.RoleSalesExecutive, false)

	wrongPassword := env.do(t, http.MethodPost, "/api/auth/login", `{"email":"sam@shop.test","password":"wrong-pass"}`)
	unknownEmail := env.do(t, http.MethodPost, "/api/auth/login", `{"email":"nobody@shop.test","password":"wrong-pass"}`)
	inactive := env.do(t, http.MethodPost, "/api/auth/login", `{"email":"old@shop.test","password":"correct-horse"}`)
	malformed := env.do(t, http.MethodPost, "/api/auth/login", `{"email":`)

	for _, rec := range []*httptest.ResponseRecorder{wrongPassword, unknownEmail, inactive, malformed} {
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"invalid credentials"}`, rec.Body.String())
		assert.Empty(t, rec.Result().Cookies())
	}
}

func TestLoginStoreFailureIsInternal(t *testing.T) {
	env := newTestEnv(t, false)
	env.repo.findErr = errors.New("connection refused")

	rec := env.do(t, http.MethodPost, "/api/auth/login", `{"email":"sam@shop.test","password":"whatever1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestMeRequiresSession(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/auth/me", "", &http.Cookie{Name: "test_session", Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeReturnsPermissions(t *testing.T) {
	env := newTestEnv(t, false)
	env.repo.seed(t, "staff@shop.test", "correct-horse", rbac.RoleServiceStaff, true)

	login := env.do(t, http.MethodPost, "/api/auth/login", `{"email":"staff@shop.test","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, login.Code)

	rec := env.do(t, http.MethodGet, "/api/auth/me", "", sessionCookie(t, login))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Email       string              `json:"email"`
		Role        string              `json:"role"`
		Permissions map[string][]string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "staff@shop.test", body.Email)
	assert.Equal(t, "Service Staff", body.Role)
	assert.Equal(t, []string{"read", "update"}, body.Permissions["orders"])
	assert.NotContains(t, body.Permissions, "employees")
}

func TestLogoutInvalidatesSession(t *testing.T) {
	env := newTestEnv(t, false)
	env.repo.seed(t, "hr@shop.test", "correct-horse", rbac.RoleHRManager, true)

	login := env.do(t, http.MethodPost, "/api/auth/login", `{"email":"hr@shop.test","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, login.Code)
	cookie := sessionCookie(t, login)

	rec := env.do(t, http.MethodPost, "/api/auth/logout", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Empty(t, env.repo.sessions)

	rec = env.do(t, http.MethodGet, "/api/auth/me", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterDisabled(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodPost, "/api/auth/register", `{"email":"new@shop.test","password":"longenough","name":"New"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterCreatesServiceStaff(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/auth/register", `{"email":"new@shop.test","password":"longenough","name":"New","role":"Admin"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"Service Staff"`)

	rec = env.do(t, http.MethodPost, "/api/auth/register", `{"email":"NEW@shop.test","password":"otherpass","name":"Dup"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"email already registered"}`, rec.Body.String())
}

func TestRegisterRejectsOverlongMultibytePassword(t *testing.T) {
	env := newTestEnv(t, true)

	body := `{"email":"wide@shop.test","password":"` + strings.Repeat("é", 40) + `","name":"Wide"}`
	rec := env.do(t, http.MethodPost, "/api/auth/register", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation failed")
}

func TestCreateAccountDuplicateLeavesFirstIntact(t *testing.T) {
	repo := newStubRepo()
	svc := auth.NewService(repo, bcrypt.MinCost)
	ctx := context.Background()

	first, err := svc.CreateAccount(ctx, auth.CreateAccountInput{Email: "dup@shop.test", Password: "firstpass", Name: "First", Role: rbac.RoleHRManager})
	require.NoError(t, err)

	_, err = svc.CreateAccount(ctx, auth.CreateAccountInput{Email: "dup@shop.test", Password: "secondpass", Name: "Second", Role: rbac.RoleAdmin})
	require.ErrorIs(t, err, shared.ErrDuplicateEmail)

	stored, err := repo.FindByEmail(ctx, "dup@shop.test")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "First", stored.Name)
	assert.Equal(t, rbac.RoleHRManager, stored.Role)

	authed, err := svc.Authenticate(ctx, "dup@shop.test", "firstpass")
	require.NoError(t, err)
	assert.Equal(t, first.ID, authed.ID)
}

func TestCreateAccountValidation(t *testing.T) {
	svc := auth.NewService(newStubRepo(), bcrypt.MinCost)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, auth.CreateAccountInput{Email: "x@shop.test", Password: "short", Name: "X", Role: rbac.RoleAdmin})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateAccount(ctx, auth.CreateAccountInput{Email: "x@shop.test", Password: "longenough", Name: "X", Role: rbac.Role("Owner")})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateAccount(ctx, auth.CreateAccountInput{Email: "not-an-email", Password: "longenough", Name: "X", Role: rbac.RoleAdmin})
	assert.ErrorIs(t, err, shared.ErrValidation)

	// 40 runes pass the tag but encode to 80 bytes.
	_, err = svc.CreateAccount(ctx, auth.CreateAccountInput{Email: "x@shop.test", Password: strings.Repeat("é", 40), Name: "X", Role: rbac.RoleAdmin})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.HashPassword(strings.Repeat("a", auth.MaxPasswordBytes))
	assert.NoError(t, err)
}

func TestAttachIdentityIgnoresUnknownRole(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "test_session", "test-secret", time.Hour, false)

	start := httptest.NewRecorder()
	_, err := sessions.Start(context.Background(), start, shared.Session{UserID: 8, Role: "Owner", Email: "o@shop.test"})
	require.NoError(t, err)

	var seen *rbac.Identity
	var seenSession *shared.Session
	h := auth.AttachIdentity(sessions, slogDiscard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = rbac.IdentityFromContext(r.Context())
		seenSession = shared.SessionFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, start))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Nil(t, seen)
	require.NotNil(t, seenSession)
	assert.Equal(t, int64(8), seenSession.UserID)
}

func TestAttachIdentityStoreFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "test_session", "test-secret", time.Hour, false)
	start := httptest.NewRecorder()
	_, err = sessions.Start(context.Background(), start, shared.Session{UserID: 1, Role: "Admin"})
	require.NoError(t, err)
	mr.Close()

	reached := false
	h := auth.AttachIdentity(sessions, slogDiscard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, start))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, reached)
}
