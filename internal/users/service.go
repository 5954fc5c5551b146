package users

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/autoshop-erp/autoshop/internal/auth"
	"github.com/autoshop-erp/autoshop/internal/rbac"
	"github.com/autoshop-erp/autoshop/internal/shared"
)

// Service handles user management business logic.
type Service struct {
	store    Store
	accounts Provisioner
	audit    shared.AuditRecorder
	sessions SessionRevoker
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService builds Service instance. audit and sessions may be nil.
func NewService(store Store, accounts Provisioner, audit shared.AuditRecorder, sessions SessionRevoker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, accounts: accounts, audit: audit, sessions: sessions, logger: logger, validate: auth.NewValidator()}
}

// List returns a page of users.
func (s *Service) List(ctx context.Context, page, perPage int) (ListResult, error) {
	users, total, err := s.store.List(ctx, shared.Offset(page, perPage), shared.NewPagination(page, perPage, 0).PerPage)
	if err != nil {
		return ListResult{}, fmt.Errorf("users: list: %w", err)
	}
	return ListResult{Users: users, Pagination: shared.NewPagination(page, perPage, total)}, nil
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.store.FindByID(ctx, id)
}

// Create provisions a new account with any role.
func (s *Service) Create(ctx context.Context, actor *rbac.Identity, in CreateInput) (*User, error) {
	user, err := s.accounts.CreateAccount(ctx, in)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, shared.AuditAccountCreated, user.ID, map[string]any{"role": user.Role})
	return user, nil
}

// Update applies a partial change to an account. An actor may not change
// their own role or deactivate themselves. Role changes and deactivation end
// the target's live sessions.
func (s *Service) Update(ctx context.Context, actor *rbac.Identity, id int64, in UpdateInput) (*User, error) {
	if err := rbac.RequireIdentity(actor); err != nil {
		return nil, err
	}
	if id == actor.UserID && ((in.Role != nil && *in.Role != actor.Role) || (in.IsActive != nil && !*in.IsActive)) {
		return nil, shared.ErrCannotModifySelf
	}
	if in.Email != nil {
		normalized := auth.NormalizeEmail(*in.Email)
		in.Email = &normalized
	}
	if err := shared.ValidateStruct(s.validate, in); err != nil {
		return nil, err
	}
	update := auth.AccountUpdate{Name: in.Name, Email: in.Email, Role: in.Role, IsActive: in.IsActive}
	if in.Password != nil {
		hash, err := s.accounts.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		update.PasswordHash = &hash
	}
	user, err := s.store.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	meta := map[string]any{"password_changed": in.Password != nil}
	if in.Role != nil {
		meta["role"] = *in.Role
	}
	if in.Role != nil || (in.IsActive != nil && !*in.IsActive) {
		meta["sessions_revoked"] = s.revoke(ctx, id)
	}
	s.record(ctx, actor, shared.AuditAccountUpdated, id, meta)
	return user, nil
}

// Delete removes the target account. An actor can never delete their own
// account; that rule is checked before the store is touched.
func (s *Service) Delete(ctx context.Context, actor *rbac.Identity, targetID int64) error {
	if err := rbac.RequireIdentity(actor); err != nil {
		return err
	}
	if targetID == actor.UserID {
		return shared.ErrCannotDeleteSelf
	}
	deleted, err := s.store.Delete(ctx, targetID)
	if err != nil {
		return fmt.Errorf("users: delete %d: %w", targetID, err)
	}
	if !deleted {
		return shared.ErrNotFound
	}
	revoked := s.revoke(ctx, targetID)
	s.record(ctx, actor, shared.AuditAccountDeleted, targetID, map[string]any{"sessions_revoked": revoked})
	return nil
}

// revoke ends the sessions of userID. The account change is already stored,
// so failures are logged rather than returned.
func (s *Service) revoke(ctx context.Context, userID int64) int {
	if s.sessions == nil {
		return 0
	}
	n, err := s.sessions.RevokeUser(ctx, userID)
	if err != nil {
		s.logger.Error("revoke sessions", slog.Int64("user_id", userID), slog.Any("error", err))
		return 0
	}
	return n
}

func (s *Service) record(ctx context.Context, actor *rbac.Identity, action string, userID int64, meta map[string]any) {
	if s.audit == nil || actor == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
