package transport

import (
	"errors"
	"net/http"
	"strconv"
	"unicode"
	"unicode/utf8"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"go.uber.org/zap"
)

// errorKinds maps service error kinds to HTTP status codes. Order matters
// only for readability; kinds do not wrap each other.
var errorKinds = []struct {
	kind   error
	status int
}{
	{service.ErrValidation, http.StatusBadRequest},
	{service.ErrWeakPassword, http.StatusBadRequest},
	{service.ErrDuplicateEmail, http.StatusBadRequest},
	{service.ErrDuplicateName, http.StatusBadRequest},
	{service.ErrHasDependents, http.StatusBadRequest},
	{service.ErrEmptyCart, http.StatusBadRequest},
	{service.ErrMissingField, http.StatusBadRequest},
	{service.ErrOutOfStock, http.StatusBadRequest},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrInvalidToken, http.StatusUnauthorized},
	{service.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrAccountLocked, http.StatusForbidden},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrProductNotFound, http.StatusNotFound},
	{service.ErrRateLimited, http.StatusTooManyRequests},
}

// StatusFor returns the HTTP status for a service error, 500 for unknown errors.
func StatusFor(err error) int {
	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// errorResponder turns service errors into the JSON error envelope.
type errorResponder struct {
	logger *zap.Logger
	// production hides the underlying cause of internal errors.
	production bool
}

// respond writes err. fallback is the client message for unexpected failures.
func (e errorResponder) respond(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		e.logger.Error(fallback,
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		resp := middleware.ErrorResponse{Message: fallback}
		if !e.production {
			resp.Error = err.Error()
		}
		middleware.RespondWithJSON(w, status, resp)
		return
	}

	resp := middleware.ErrorResponse{Message: clientMessage(err)}

	var rateErr *service.RateLimitError
	if errors.As(err, &rateErr) {
		resp.Message = "Too many login attempts. Please try again later."
		resp.RetryAfter = rateErr.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(resp.RetryAfter))
	}
	var credErr *service.CredentialsError
	if errors.As(err, &credErr) {
		resp.RemainingAttempts = credErr.RemainingAttempts
	}
	var depErr *service.DependentsError
	if errors.As(err, &depErr) {
		resp.ProductCount = depErr.ProductCount
	}

	middleware.RespondWithJSON(w, status, resp)
}

// clientMessage prefers an explicit detail message and otherwise capitalizes
// the error kind's text.
func clientMessage(err error) string {
	var detailErr *service.DetailError
	if errors.As(err, &detailErr) {
		return detailErr.Message
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			return capitalize(k.kind.Error())
		}
	}
	return capitalize(err.Error())
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
