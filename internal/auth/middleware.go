package auth

import (
	"log/slog"
	"net/http"

	"github.com/autoshop-erp/autoshop/internal/platform/httpx"
	"github.com/autoshop-erp/autoshop/internal/rbac"
	"github.com/autoshop-erp/autoshop/internal/shared"
)

// AttachIdentity loads the session for every request and, when present,
// exposes it together with the derived rbac.Identity through the request
// context. Requests without a valid session continue with no identity.
func AttachIdentity(sessions *shared.SessionManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess, err := sessions.Load(ctx, r)
			if err != nil {
				logger.Error("failed to load session", slog.Any("error", err))
				httpx.Error(w, http.StatusInternalServerError, "internal error")
				return
			}
			if sess != nil {
				ctx = shared.ContextWithSession(ctx, sess)
				if id := IdentityFromSession(sess); id != nil {
					ctx = rbac.ContextWithIdentity(ctx, id)
				} else {
					logger.Warn("session carries invalid identity", slog.Int64("user_id", sess.UserID))
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromSession converts a stored session into an identity; nil when
// the stored role is not a known role.
func IdentityFromSession(sess *shared.Session) *rbac.Identity {
	if sess == nil || sess.UserID == 0 {
		return nil
	}
	role, err := rbac.ParseRole(sess.Role)
	if err != nil {
		return nil
	}
	return &rbac.Identity{UserID: sess.UserID, Role: role, Name: sess.Name, Email: sess.Email}
}
