package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated indicates the request carries no identity.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden indicates the identity may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrCannotDeleteSelf prevents an admin from deleting their own account.
	ErrCannotDeleteSelf = errors.New("cannot delete your own account")
	// ErrCannotModifySelf prevents an admin from changing their own role or deactivating themselves.
	ErrCannotModifySelf = errors.New("cannot change your own role or status")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
)
