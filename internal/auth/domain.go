package auth

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/autoshop-erp/autoshop/internal/rbac"
)

// Account represents a persisted user account.
type Account struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         rbac.Role `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity returns the request principal for the account.
func (a *Account) Identity() *rbac.Identity {
	return &rbac.Identity{UserID: a.ID, Role: a.Role, Name: a.Name, Email: a.Email}
}

// NewAccount carries the fields required to insert an account.
type NewAccount struct {
	Name         string
	Email        string
	PasswordHash string
	Role         rbac.Role
	IsActive     bool
}

// AccountUpdate lists optional field changes; nil fields are left untouched.
type AccountUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *rbac.Role
	IsActive     *bool
}

// Empty reports whether the update changes nothing.
func (u AccountUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.PasswordHash == nil && u.Role == nil && u.IsActive == nil
}

var emailCaser = cases.Lower(language.Und)

// NormalizeEmail trims and lower-cases an email address so lookups match
// regardless of how the user typed it.
func NormalizeEmail(email string) string {
	return emailCaser.String(strings.TrimSpace(email))
}
