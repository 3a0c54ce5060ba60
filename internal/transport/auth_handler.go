package transport

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	Phone      string `json:"phone" validate:"max=20"`
	Address    string `json:"address"`
	City       string `json:"city" validate:"max=50"`
	State      string `json:"state" validate:"max=50"`
	PostalCode string `json:"postalCode" validate:"max=20"`
	Country    string `json:"country" validate:"max=50"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh request payload
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Message      string       `json:"message,omitempty"`
	User         *domain.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
}

// RefreshResponse represents the token refresh response
type RefreshResponse struct {
	Token string `json:"token"`
}

// AuthHandler handles HTTP requests for sign-up, sign-in and sessions
type AuthHandler struct {
	authService service.AuthService
	errors      errorResponder
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger, production bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		errors:      errorResponder{logger: logger, production: production},
		logger:      logger,
	}
}

// RegisterRoutes registers all auth routes
func (h *AuthHandler) RegisterRoutes(r chi.Router, guards Guards) {
	r.Route("/api/auth", func(r chi.Router) {
		// Public routes
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh-token", h.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(guards.Authenticate)
			r.Get("/me", h.Me)
			r.Post("/logout", h.Logout)
		})
	})
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	res, err := h.authService.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Profile: domain.ProfileFields{
			Phone:      req.Phone,
			Address:    req.Address,
			City:       req.City,
			State:      req.State,
			PostalCode: req.PostalCode,
			Country:    req.Country,
		},
	})
	if err != nil {
		h.errors.respond(w, r, err, "Failed to register user. Please try again.")
		return
	}

	h.logger.Info("User registered successfully", zap.String("user_id", res.User.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, AuthResponse{
		Message:      "User registered successfully",
		User:         res.User,
		Token:        res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

// Login handles user authentication. The attempt is counted before the body
// is looked at, so malformed requests spend the client's budget as well.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.ConsumeLoginAttempt(r.Context(), middleware.ClientIP(r)); err != nil {
		h.errors.respond(w, r, err, "Failed to login")
		return
	}

	var req LoginRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	res, err := h.authService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debug("Login failed", zap.Error(err))
		h.errors.respond(w, r, err, "Failed to login")
		return
	}

	h.logger.Info("User logged in successfully", zap.String("user_id", res.User.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, AuthResponse{
		User:         res.User,
		Token:        res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

// RefreshToken exchanges a refresh token for a new access token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	token, err := h.authService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			middleware.RespondWithError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		h.errors.respond(w, r, err, "Failed to refresh token")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, RefreshResponse{Token: token})
}

// Me returns the authenticated user's profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.authService.GetCurrentUser(r.Context(), userID)
	if err != nil {
		h.errors.respond(w, r, err, "Failed to fetch user")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, user)
}

// Logout revokes the caller's refresh token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.authService.Logout(r.Context(), userID); err != nil {
		h.errors.respond(w, r, err, "Failed to logout")
		return
	}

	h.logger.Info("User logged out successfully", zap.String("user_id", userID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
