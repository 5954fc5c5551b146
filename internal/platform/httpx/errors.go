package httpx

import (
	"errors"
	"net/http"

	"github.com/autoshop-erp/autoshop/internal/shared"
)

// StatusFor maps a domain error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrUnauthenticated), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrDuplicateEmail),
		errors.Is(err, shared.ErrCannotDeleteSelf),
		errors.Is(err, shared.ErrCannotModifySelf),
		errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrIdempotencyConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes the error body for err. Internal errors are reported
// with a generic message; callers log the cause.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusInternalServerError:
		Error(w, status, "internal error")
	case http.StatusBadRequest:
		Error(w, status, err.Error())
	default:
		Error(w, status, messageFor(err))
	}
}

func messageFor(err error) string {
	for _, sentinel := range []error{
		shared.ErrUnauthenticated,
		shared.ErrInvalidCredentials,
		shared.ErrForbidden,
		shared.ErrNotFound,
		shared.ErrIdempotencyConflict,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
