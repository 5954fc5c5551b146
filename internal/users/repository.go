package users

import (
	"context"

	"github.com/autoshop-erp/autoshop/internal/auth"
	"github.com/autoshop-erp/autoshop/internal/shared"
)

// Store defines data access methods for user management. auth.PGRepository
// satisfies it.
type Store interface {
	List(ctx context.Context, offset, limit int) ([]auth.Account, int, error)
	FindByID(ctx context.Context, id int64) (*auth.Account, error)
	Update(ctx context.Context, id int64, update auth.AccountUpdate) (*auth.Account, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Provisioner creates accounts with hashed credentials.
type Provisioner interface {
	CreateAccount(ctx context.Context, in auth.CreateAccountInput) (*auth.Account, error)
	HashPassword(password string) (string, error)
}

// SessionRevoker ends every live session of a user.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID int64) (int, error)
}

var (
	_ Store          = (*auth.PGRepository)(nil)
	_ Provisioner    = (*auth.Service)(nil)
	_ SessionRevoker = (*shared.SessionManager)(nil)
)
