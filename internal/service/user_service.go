package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// ProfileUpdate is a partial profile edit; nil fields keep their value.
type ProfileUpdate struct {
	Name       *string
	Email      *string
	Phone      *string
	Address    *string
	City       *string
	State      *string
	PostalCode *string
	Country    *string
}

// UserService defines account management beyond sign-in
type UserService interface {
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*domain.User, error)
	ListUsers(ctx context.Context, page, limit int, search string) (*Page[*domain.User], error)
	DeleteAccount(ctx context.Context, requesterID, targetID uuid.UUID) error
	UnlockUser(ctx context.Context, targetID uuid.UUID) error
	UnlockByEmail(ctx context.Context, email string) (*domain.User, error)
	// IsAdmin reports whether the user exists and holds the admin role.
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

type userService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new instance of UserService
func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

var errUserNotFound = detail(ErrNotFound, "User not found")

func (s *userService) find(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*domain.User, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Email != nil && *update.Email != user.Email {
		existing, err := s.userRepo.FindByEmail(ctx, *update.Email)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil {
			return nil, ErrDuplicateEmail
		}
	}

	apply(&user.Name, update.Name)
	apply(&user.Email, update.Email)
	apply(&user.Phone, update.Phone)
	apply(&user.Address, update.Address)
	apply(&user.City, update.City)
	apply(&user.State, update.State)
	apply(&user.PostalCode, update.PostalCode)
	apply(&user.Country, update.Country)

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserAlreadyExists):
			return nil, ErrDuplicateEmail
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int, search string) (*Page[*domain.User], error) {
	p := normalizePage(page, limit)
	users, total, err := s.userRepo.List(ctx, search, p)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return newPage(users, total, p), nil
}

// DeleteAccount soft-deletes targetID. Users may delete themselves; admins may delete anyone.
func (s *userService) DeleteAccount(ctx context.Context, requesterID, targetID uuid.UUID) error {
	if requesterID != targetID {
		admin, err := s.IsAdmin(ctx, requesterID)
		if err != nil {
			return err
		}
		if !admin {
			return detail(ErrForbidden, "Not authorized to delete this account")
		}
	}

	if err := s.userRepo.SoftDelete(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errUserNotFound
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// UnlockUser clears the lockout state set by repeated failed logins
func (s *userService) UnlockUser(ctx context.Context, targetID uuid.UUID) error {
	if err := s.userRepo.Unlock(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errUserNotFound
		}
		return fmt.Errorf("failed to unlock user: %w", err)
	}
	return nil
}

func (s *userService) UnlockByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if err := s.UnlockUser(ctx, user.ID); err != nil {
		return nil, err
	}
	user.IsLocked, user.FailedLoginAttempts = false, 0
	return user, nil
}

func (s *userService) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	return user.IsAdmin(), nil
}

func apply[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
