package users

import (
	"github.com/autoshop-erp/autoshop/internal/auth"
	"github.com/autoshop-erp/autoshop/internal/rbac"
	"github.com/autoshop-erp/autoshop/internal/shared"
)

// User is the management view of an account.
type User = auth.Account

// CreateInput carries the fields accepted when an administrator provisions a user.
type CreateInput = auth.CreateAccountInput

// UpdateInput lists the optional changes accepted by PATCH /api/users/{id}.
type UpdateInput struct {
	Name     *string    `json:"name,omitempty" validate:"omitnil,min=1,max=120"`
	Email    *string    `json:"email,omitempty" validate:"omitnil,email,max=254"`
	Password *string    `json:"password,omitempty" validate:"omitnil,min=8,max=72"`
	Role     *rbac.Role `json:"role,omitempty" validate:"omitnil,role"`
	IsActive *bool      `json:"is_active,omitempty"`
}

// ListResult is a page of users with pagination metadata.
type ListResult struct {
	Users      []User             `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}
