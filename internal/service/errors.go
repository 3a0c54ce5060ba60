package service

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. Handlers map them to status codes with errors.Is; the message
// of the returned error is safe to show to clients.
var (
	ErrValidation         = errors.New("validation error")
	ErrWeakPassword       = errors.New("password must be at least 6 characters long")
	ErrDuplicateEmail     = errors.New("email is already in use")
	ErrDuplicateName      = errors.New("category name already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthorized       = errors.New("authentication required")
	ErrAccountLocked      = errors.New("account is locked, please contact support")
	ErrForbidden          = errors.New("not authorized to perform this action")
	ErrNotFound           = errors.New("resource not found")
	ErrRateLimited        = errors.New("too many login attempts, please try again later")
	ErrHasDependents      = errors.New("cannot delete category with products")
	ErrEmptyCart          = errors.New("no items in the order")
	ErrMissingField       = errors.New("required field missing")
	ErrProductNotFound    = errors.New("product not found")
	ErrOutOfStock         = errors.New("product is out of stock")
)

// DetailError gives an error kind a more specific client message.
type DetailError struct {
	Kind    error
	Message string
}

func (e *DetailError) Error() string { return e.Message }
func (e *DetailError) Unwrap() error { return e.Kind }

func detail(kind error, format string, args ...any) error {
	return &DetailError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// RateLimitError reports how long the client has to wait.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return ErrRateLimited.Error() }
func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// RetryAfterSeconds rounds the wait up to whole seconds.
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	return max(secs, 1)
}

// CredentialsError is a failed password check on an existing account.
type CredentialsError struct {
	RemainingAttempts int
}

func (e *CredentialsError) Error() string { return ErrInvalidCredentials.Error() }
func (e *CredentialsError) Unwrap() error { return ErrInvalidCredentials }

// DependentsError blocks deleting a category that still has products.
type DependentsError struct {
	ProductCount int
}

func (e *DependentsError) Error() string { return ErrHasDependents.Error() }
func (e *DependentsError) Unwrap() error { return ErrHasDependents }
