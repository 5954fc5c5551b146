package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/autoshop-erp/autoshop/internal/auth"
	"github.com/autoshop-erp/autoshop/internal/rbac"
	"github.com/autoshop-erp/autoshop/internal/shared"
)

// AccountCreator provisions accounts; satisfied by *auth.Service.
type AccountCreator interface {
	CreateAccount(ctx context.Context, in auth.CreateAccountInput) (*auth.Account, error)
}

// CreateUserOptions defines available flags for the create-user command.
type CreateUserOptions struct {
	Email      string
	Name       string
	Password   string
	Role       string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// Exit codes returned by CreateUserCommand.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitDuplicate = 10
)

// CreateUserCommand provisions an account directly against the store. It is
// the only way to create the first Admin when self-registration is disabled.
func CreateUserCommand(ctx context.Context, creator AccountCreator, opts CreateUserOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if creator == nil {
		_, _ = fmt.Fprintln(opts.Stderr, "create-user: account service not configured")
		return ExitFailure
	}
	role := rbac.Role(strings.TrimSpace(opts.Role))
	if role == "" {
		role = rbac.RoleAdmin
	}
	if !role.Valid() {
		_, _ = fmt.Fprintf(opts.Stderr, "create-user: unknown role %q\n", opts.Role)
		return ExitFailure
	}

	account, err := creator.CreateAccount(ctx, auth.CreateAccountInput{
		Email:    opts.Email,
		Password: opts.Password,
		Name:     strings.TrimSpace(opts.Name),
		Role:     role,
	})
	switch {
	case errors.Is(err, shared.ErrDuplicateEmail):
		_, _ = fmt.Fprintf(opts.Stderr, "create-user: %s is already registered\n", auth.NormalizeEmail(opts.Email))
		return ExitDuplicate
	case err != nil:
		_, _ = fmt.Fprintf(opts.Stderr, "create-user: %v\n", err)
		return ExitFailure
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(account); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "create-user: encode json: %v\n", err)
			return ExitFailure
		}
		return ExitOK
	}
	_, _ = fmt.Fprintf(opts.Stdout, "created %s (%s) id=%d\n", account.Email, account.Role, account.ID)
	return ExitOK
}
