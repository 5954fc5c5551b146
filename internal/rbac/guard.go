package rbac

import (
	"github.com/autoshop-erp/autoshop/internal/shared"
)

// RequireIdentity fails with shared.ErrUnauthenticated when id is absent.
func RequireIdentity(id *Identity) error {
	if id == nil || id.UserID == 0 || !id.Role.Valid() {
		return shared.ErrUnauthenticated
	}
	return nil
}

// CheckRole requires an identity whose role is in allowed.
func CheckRole(id *Identity, allowed ...Role) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	for _, role := range allowed {
		if id.Role == role {
			return nil
		}
	}
	return shared.ErrForbidden
}

// Authorize requires an identity whose role is granted action on resource.
func (t *Table) Authorize(id *Identity, resource Resource, action Action) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	if !t.IsAllowed(id.Role, resource, action) {
		return shared.ErrForbidden
	}
	return nil
}
