package transport

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Guards are the middleware a handler needs to protect its routes.
type Guards struct {
	Authenticate func(http.Handler) http.Handler
	RequireAdmin func(http.Handler) http.Handler
}

// decode reads a JSON body into dst and writes the 400 response itself when
// it fails. It reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, logger *zap.Logger, dst any) bool {
	err := middleware.DecodeAndValidate(r, dst)
	if err == nil {
		return true
	}
	logger.Debug("Request validation failed", zap.Error(err), zap.String("path", r.URL.Path))

	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return false
	}
	if errors.Is(err, middleware.ErrMalformedBody) {
		middleware.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	middleware.RespondWithError(w, http.StatusBadRequest, "Validation error")
	return false
}

// pathID parses the {id} URL parameter. A malformed ID cannot name any
// record, so it is reported with notFound.
func pathID(w http.ResponseWriter, r *http.Request, notFound string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, notFound)
		return uuid.Nil, false
	}
	return id, true
}

// currentUser returns the authenticated user ID set by the auth middleware.
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "No token provided")
		return uuid.Nil, false
	}
	return userID, true
}

// queryInt reads a positive integer query parameter; anything else yields 0
// so the service applies its default.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// listResponse is the paginated listing shape. The collection key differs
// per resource, so handlers build it with a map.
func listResponse(key string, items any, totalItems, totalPages, currentPage int) map[string]any {
	return map[string]any{
		key:           items,
		"totalItems":  totalItems,
		"totalPages":  totalPages,
		"currentPage": currentPage,
	}
}

// orEmpty keeps empty collections serialized as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
