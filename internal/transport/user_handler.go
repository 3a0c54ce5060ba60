package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UpdateProfileRequest is a partial profile edit; absent fields are left alone
type UpdateProfileRequest struct {
	Name       *string `json:"name" validate:"omitnil,min=1,max=100"`
	Email      *string `json:"email" validate:"omitnil,email"`
	Phone      *string `json:"phone" validate:"omitnil,max=20"`
	Address    *string `json:"address"`
	City       *string `json:"city" validate:"omitnil,max=50"`
	State      *string `json:"state" validate:"omitnil,max=50"`
	PostalCode *string `json:"postalCode" validate:"omitnil,max=20"`
	Country    *string `json:"country" validate:"omitnil,max=50"`
}

// ChangePasswordRequest represents the change password payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"omitempty,eqfield=NewPassword"`
}

// UserHandler handles HTTP requests for account management
type UserHandler struct {
	authService service.AuthService
	userService service.UserService
	errors      errorResponder
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(authService service.AuthService, userService service.UserService, logger *zap.Logger, production bool) *UserHandler {
	return &UserHandler{
		authService: authService,
		userService: userService,
		errors:      errorResponder{logger: logger, production: production},
		logger:      logger,
	}
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, guards Guards) {
	r.Route("/api/users", func(r chi.Router) {
		r.Use(guards.Authenticate)

		r.Put("/profile", h.UpdateProfile)
		r.Post("/change-password", h.ChangePassword)
		r.Delete("/{id}", h.DeleteAccount)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(guards.RequireAdmin)
			r.Get("/", h.ListUsers)
			r.Put("/{id}/unlock", h.UnlockUser)
		})
	})
}

// UpdateProfile handles partial profile updates of the caller
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, service.ProfileUpdate{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	})
	if err != nil {
		h.errors.respond(w, r, err, "Failed to update profile")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

// ChangePassword verifies the current password and stores a new one
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	if err := h.authService.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		h.errors.respond(w, r, err, "Failed to change password")
		return
	}

	h.logger.Info("Password changed", zap.String("user_id", userID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

// ListUsers returns a page of users, optionally filtered by name or email
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.userService.ListUsers(r.Context(), queryInt(r, "page"), queryInt(r, "limit"), r.URL.Query().Get("search"))
	if err != nil {
		h.errors.respond(w, r, err, "Failed to fetch users")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK,
		listResponse("users", orEmpty(page.Items), page.TotalItems, page.TotalPages, page.CurrentPage))
}

// DeleteAccount soft-deletes an account; users may delete only themselves
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := currentUser(w, r)
	if !ok {
		return
	}
	targetID, ok := pathID(w, r, "User not found")
	if !ok {
		return
	}

	if err := h.userService.DeleteAccount(r.Context(), requesterID, targetID); err != nil {
		h.errors.respond(w, r, err, "Failed to delete account")
		return
	}

	h.logger.Info("Account deleted",
		zap.String("user_id", targetID.String()),
		zap.String("requested_by", requesterID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

// UnlockUser clears a lockout set by repeated failed logins
func (h *UserHandler) UnlockUser(w http.ResponseWriter, r *http.Request) {
	targetID, ok := pathID(w, r, "User not found")
	if !ok {
		return
	}

	if err := h.userService.UnlockUser(r.Context(), targetID); err != nil {
		h.errors.respond(w, r, err, "Failed to unlock user")
		return
	}

	h.logger.Info("Account unlocked", zap.String("user_id", targetID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Account unlocked successfully"})
}
