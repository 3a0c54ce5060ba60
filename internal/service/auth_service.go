package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/ratelimit"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at registration and password change.
const MinPasswordLength = 6

// RegisterInput carries the registration form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Profile  domain.ProfileFields
}

// AuthResult is a signed-in user with a fresh token pair.
type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

// AuthService defines credential and session operations
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, clientIP, email, password string) (*AuthResult, error)
	// ConsumeLoginAttempt spends one attempt of the client's login budget.
	// Authenticate checks credentials without touching the budget. Together
	// they make up Login for callers that must count rejected requests too.
	ConsumeLoginAttempt(ctx context.Context, clientIP string) error
	Authenticate(ctx context.Context, email, password string) (*AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, userID uuid.UUID) error
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
}

type authService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	tokens           *TokenManager
	loginLimiter     ratelimit.Limiter
	security         config.SecurityConfig
	logger           *zap.Logger
	now              func() time.Time
}

// NewAuthService creates a new instance of AuthService
func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	tokens *TokenManager,
	loginLimiter ratelimit.Limiter,
	security config.SecurityConfig,
	logger *zap.Logger,
) AuthService {
	return &authService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		tokens:           tokens,
		loginLimiter:     loginLimiter,
		security:         security,
		logger:           logger,
		now:              time.Now,
	}
}

// Register creates a new user account with hashed password and signs it in
func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	// Check if user already exists
	existingUser, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, ErrDuplicateEmail
	}

	if !strongEnough(in.Password) {
		return nil, ErrWeakPassword
	}

	hashedPassword, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	country := in.Profile.Country
	if country == "" {
		country = domain.DefaultCountry
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hashedPassword,
		Role:         domain.RoleUser,
		Phone:        in.Profile.Phone,
		Address:      in.Profile.Address,
		City:         in.Profile.City,
		State:        in.Profile.State,
		PostalCode:   in.Profile.PostalCode,
		Country:      country,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// a concurrent registration won the race for the email
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issueSession(ctx, user)
}

// Login authenticates a user and returns JWT tokens. Every call counts
// against the client's login budget, whatever its outcome.
func (s *authService) Login(ctx context.Context, clientIP, email, password string) (*AuthResult, error) {
	if err := s.ConsumeLoginAttempt(ctx, clientIP); err != nil {
		return nil, err
	}
	return s.Authenticate(ctx, email, password)
}

// Authenticate applies the lockout policy and issues a session on success.
func (s *authService) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.IsLocked {
		return nil, detail(ErrAccountLocked, "Account is locked. Please contact support.")
	}

	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		attempts, locked, err := s.userRepo.RecordFailedLogin(ctx, user.ID, s.security.LockoutThreshold)
		if err != nil {
			return nil, fmt.Errorf("failed to record failed login: %w", err)
		}
		if locked {
			s.logger.Warn("Account locked after repeated failed logins",
				zap.String("user_id", user.ID.String()),
				zap.Int("attempts", attempts),
			)
			return nil, detail(ErrAccountLocked,
				"Account has been locked due to too many failed attempts. Please contact support.")
		}
		return nil, &CredentialsError{RemainingAttempts: s.security.LockoutThreshold - attempts}
	}

	loginAt := s.now()
	if err := s.userRepo.RecordSuccessfulLogin(ctx, user.ID, loginAt); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.FailedLoginAttempts = 0
	user.LastLogin = &loginAt

	return s.issueSession(ctx, user)
}

func (s *authService) ConsumeLoginAttempt(ctx context.Context, clientIP string) error {
	res, err := s.loginLimiter.Allow(ctx, "login:"+clientIP)
	if err != nil {
		// On limiter backend error, allow the attempt to proceed
		s.logger.Error("Login rate limiter unavailable", zap.Error(err))
		return nil
	}
	if !res.Allowed {
		s.logger.Warn("Login rate limit exceeded", zap.String("client_ip", clientIP))
		return &RateLimitError{RetryAfter: res.RetryAfter}
	}
	return nil
}

// RefreshToken generates a new access token from the user's current refresh token
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		if IsExpiredToken(err) {
			s.logger.Info("Refresh token expired")
		} else {
			s.logger.Warn("Refresh token rejected", zap.Error(err))
		}
		return "", ErrInvalidToken
	}

	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	stored, err := s.refreshTokenRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find refresh token: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored.TokenHash), []byte(HashToken(refreshToken))) != 1 {
		return "", ErrInvalidToken
	}
	if !s.now().Before(stored.ExpiresAt) {
		return "", ErrInvalidToken
	}

	accessToken, err := s.tokens.IssueAccess(userID)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout invalidates the stored refresh token
func (s *authService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.refreshTokenRepo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *authService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, detail(ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ChangePassword re-hashes the password and ends every refresh session.
// Access tokens already issued stay valid until they expire.
func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.verifyPassword(user.PasswordHash, currentPassword); err != nil {
		return detail(ErrInvalidCredentials, "Current password is incorrect")
	}
	if !strongEnough(newPassword) {
		return ErrWeakPassword
	}

	hashedPassword, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hashedPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return s.Logout(ctx, userID)
}

// strongEnough counts characters, not bytes.
func strongEnough(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength
}

// issueSession signs a token pair and makes the refresh token the user's only active one
func (s *authService) issueSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	accessToken, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, expiresAt, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	record := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: HashToken(refreshToken),
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	}
	if err := s.refreshTokenRepo.Replace(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthResult{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// hashPassword hashes a password using bcrypt with the configured cost
func (s *authService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), s.security.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", detail(ErrValidation, "Password must be at most 72 bytes long")
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// verifyPassword verifies a password against a bcrypt hash
func (s *authService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
