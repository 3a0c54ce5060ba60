package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a customer or administrator account. Credential fields never serialize.
type User struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	Name                string     `json:"name" db:"name"`
	Email               string     `json:"email" db:"email"`
	PasswordHash        string     `json:"-" db:"password_hash"`
	Role                Role       `json:"role" db:"role"`
	Phone               string     `json:"phone,omitempty" db:"phone"`
	Address             string     `json:"address,omitempty" db:"address"`
	City                string     `json:"city,omitempty" db:"city"`
	State               string     `json:"state,omitempty" db:"state"`
	PostalCode          string     `json:"postalCode,omitempty" db:"postal_code"`
	Country             string     `json:"country" db:"country"`
	IsActive            bool       `json:"isActive" db:"is_active"`
	LastLogin           *time.Time `json:"lastLogin,omitempty" db:"last_login"`
	FailedLoginAttempts int        `json:"failedLoginAttempts" db:"failed_login_attempts"`
	IsLocked            bool       `json:"isLocked" db:"is_locked"`

	// Reset columns exist in the schema; no flow writes them yet.
	PasswordResetToken   *string    `json:"-" db:"password_reset_token"`
	PasswordResetExpires *time.Time `json:"-" db:"password_reset_expires"`
	CreatedAt            time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time  `json:"updatedAt" db:"updated_at"`
	DeletedAt            *time.Time `json:"-" db:"deleted_at"`
}

// IsAdmin reports whether the account may use admin endpoints.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Summary returns the public identity fields used in auth responses and order listings.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// UserSummary is the trimmed user shape embedded in other resources.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
	Role  Role      `json:"role,omitempty"`
}

// ProfileFields are the optional contact fields accepted at registration and profile update.
type ProfileFields struct {
	Phone      string
	Address    string
	City       string
	State      string
	PostalCode string
	Country    string
}

// RefreshToken is the server-side record of an issued refresh token.
// Only the SHA-256 hash of the token is stored.
type RefreshToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
}
