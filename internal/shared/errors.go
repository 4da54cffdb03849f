package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a malformed or out-of-range request.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized indicates a missing, invalid or expired credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates a valid identity acting outside its scope.
	ErrForbidden = errors.New("forbidden")
	// ErrRetryLater indicates transient contention; safe to retry after a delay.
	ErrRetryLater = errors.New("try again")
	// ErrInvalidCredentials indicates an authentication failure. Deliberately
	// generic: callers must not learn whether the identity or the secret was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
