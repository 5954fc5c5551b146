package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/autoshop-erp/autoshop/internal/platform/httpx"
	"github.com/autoshop-erp/autoshop/internal/rbac"
	"github.com/autoshop-erp/autoshop/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger            *slog.Logger
	service           *Service
	sessionManager    *shared.SessionManager
	guard             rbac.Guard
	audit             shared.AuditRecorder
	allowRegistration bool
}

// HandlerOptions carries the optional collaborators of Handler.
type HandlerOptions struct {
	Audit             shared.AuditRecorder
	AllowRegistration bool
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, guard rbac.Guard, opts HandlerOptions) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:            logger,
		service:           service,
		sessionManager:    sessions,
		guard:             guard,
		audit:             opts.Audit,
		allowRegistration: opts.AllowRegistration,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/register", h.handleRegister)
	r.With(h.guard.RequireAuth()).Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type accountResponse struct {
	ID    int64     `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  rbac.Role `json:"role"`
}

type meResponse struct {
	accountResponse
	Permissions map[rbac.Resource][]rbac.Action `json:"permissions"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	account, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, "login", err)
		return
	}

	if prev := shared.SessionFromContext(r.Context()); prev != nil {
		if err := h.sessionManager.Destroy(r.Context(), w, prev); err != nil {
			h.logger.Warn("drop previous session", slog.Any("error", err))
		}
	}
	sess, err := h.sessionManager.Start(r.Context(), w, shared.Session{
		UserID: account.ID,
		Role:   string(account.Role),
		Name:   account.Name,
		Email:  account.Email,
	})
	if err != nil {
		h.fail(w, "start session", err)
		return
	}
	expiresAt := sess.CreatedAt.Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, account.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	h.record(r.Context(), account.ID, shared.AuditLogin, account.ID, nil)
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
	}
	if err := h.sessionManager.Destroy(r.Context(), w, sess); err != nil {
		h.fail(w, "logout", err)
		return
	}
	if sess != nil {
		h.record(r.Context(), sess.UserID, shared.AuditLogout, sess.UserID, nil)
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id := rbac.IdentityFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, meResponse{
		accountResponse: accountResponse{ID: id.UserID, Email: id.Email, Name: id.Name, Role: id.Role},
		Permissions:     h.guard.Table.Grants(id.Role),
	})
}

// handleRegister lets visitors create a Service Staff account when
// self-registration is enabled.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !h.allowRegistration {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.CreateAccount(r.Context(), CreateAccountInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     rbac.RoleServiceStaff,
	})
	if err != nil {
		h.fail(w, "register", err)
		return
	}
	h.record(r.Context(), account.ID, shared.AuditAccountCreated, account.ID, map[string]any{"role": account.Role, "self": true})
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) record(ctx context.Context, actorID int64, action string, accountID int64, meta map[string]any) {
	if h.audit == nil {
		return
	}
	err := h.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(accountID, 10),
		Meta:     meta,
		At:       time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func toAccountResponse(a *Account) accountResponse {
	return accountResponse{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
}
