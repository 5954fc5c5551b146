package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/autoshop-erp/autoshop/internal/platform/httpx"
	"github.com/autoshop-erp/autoshop/internal/shared"
)

// DecisionRecorder receives the outcome of every guard evaluation.
type DecisionRecorder interface {
	RecordAuthz(check, outcome string)
}

// Guard wires authorization checks as HTTP middleware. The zero Table denies
// every permission check.
type Guard struct {
	Table    *Table
	Logger   *slog.Logger
	Recorder DecisionRecorder
}

// RequireAuth rejects requests without an identity.
func (g Guard) RequireAuth() func(http.Handler) http.Handler {
	return g.gate("auth", func(id *Identity) error {
		return RequireIdentity(id)
	})
}

// RequireRole rejects requests whose identity role is not in roles.
func (g Guard) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := append([]Role(nil), roles...)
	return g.gate("role", func(id *Identity) error {
		return CheckRole(id, allowed...)
	})
}

// RequirePermission rejects requests whose role lacks action on resource.
func (g Guard) RequirePermission(resource Resource, action Action) func(http.Handler) http.Handler {
	return g.gate("permission", func(id *Identity) error {
		return g.Table.Authorize(id, resource, action)
	})
}

func (g Guard) gate(check string, decide func(*Identity) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := decide(IdentityFromContext(r.Context()))
			switch {
			case err == nil:
				g.record(check, "allow")
				next.ServeHTTP(w, r)
			case errors.Is(err, shared.ErrUnauthenticated):
				g.record(check, "unauthenticated")
				httpx.Error(w, http.StatusUnauthorized, "authentication required")
			default:
				g.record(check, "forbidden")
				if g.Logger != nil {
					g.Logger.Debug("rbac denied", slog.String("check", check), slog.String("path", r.URL.Path))
				}
				httpx.Error(w, http.StatusForbidden, "forbidden")
			}
		})
	}
}

func (g Guard) record(check, outcome string) {
	if g.Recorder != nil {
		g.Recorder.RecordAuthz(check, outcome)
	}
}
