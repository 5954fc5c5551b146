package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/autoshop-erp/autoshop/internal/rbac"
	"github.com/autoshop-erp/autoshop/internal/shared"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// CreateAccountInput carries the fields accepted when provisioning an account.
type CreateAccountInput struct {
	Email    string    `json:"email" validate:"required,email,max=254"`
	Password string    `json:"password" validate:"required,min=8,max=72"`
	Name     string    `json:"name" validate:"required,max=120"`
	Role     rbac.Role `json:"role" validate:"required,role"`
}

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	cost      int
	validate  *validator.Validate
	dummyOnce sync.Once
	dummyHash []byte
}

// NewService constructs a new Service. Costs below bcrypt.DefaultCost are raised to it.
func NewService(repo Repository, cost int) *Service {
	if cost < bcrypt.DefaultCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Service{repo: repo, cost: cost, validate: NewValidator()}
}

// NewValidator returns the shared validator with the "role" tag registered.
func NewValidator() *validator.Validate {
	v := shared.NewValidator()
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return rbac.Role(fl.Field().String()).Valid()
	})
	return v
}

// Authenticate validates email/password credentials. Unknown email, inactive
// account and wrong password all yield shared.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, shared.ErrInvalidCredentials
	}
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.equalizeTiming(password)
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: find account: %w", err)
	}
	if !account.IsActive {
		s.equalizeTiming(password)
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return account, nil
}

// CreateAccount validates input, hashes the password and stores the account.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (*Account, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := shared.ValidateStruct(s.validate, in); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByEmail(ctx, in.Email); err == nil {
		return nil, shared.ErrDuplicateEmail
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("auth: check email: %w", err)
	}
	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	account, err := s.repo.Create(ctx, NewAccount{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, shared.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("auth: create account: %w", err)
	}
	return account, nil
}

// HashPassword returns the bcrypt hash of password at the configured cost.
// Passwords longer than MaxPasswordBytes bytes are rejected with ErrValidation.
func (s *Service) HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", fmt.Errorf("%w: password (max_bytes)", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// equalizeTiming spends one bcrypt comparison so failures for unknown or
// inactive accounts take as long as a wrong password.
func (s *Service) equalizeTiming(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("autoshop-timing-placeholder"), s.cost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}
