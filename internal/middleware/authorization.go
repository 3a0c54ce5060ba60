package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminChecker looks up whether a user currently holds the admin role.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// RequireAdmin middleware ensures the authenticated user has the admin role.
// The role is read from storage on every request, so demotions apply immediately.
func RequireAdmin(checker AdminChecker, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r.Context())
			if !ok {
				logger.Warn("User ID not found in context")
				RespondWithError(w, http.StatusUnauthorized, "No token provided")
				return
			}

			admin, err := checker.IsAdmin(r.Context(), userID)
			if err != nil {
				logger.Error("Failed to check user role", zap.Error(err), zap.String("user_id", userID.String()))
				RespondWithError(w, http.StatusInternalServerError, "Unable to validate user role")
				return
			}

			if !admin {
				logger.Warn("Non-admin user attempted to access admin endpoint",
					zap.String("user_id", userID.String()),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, "Require Admin Role!")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
