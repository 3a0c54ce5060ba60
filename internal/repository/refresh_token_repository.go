package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/database"
	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
)

// RefreshTokenRepository stores the single active refresh token of each user.
type RefreshTokenRepository interface {
	// Replace revokes any active token of the user and stores the new one.
	Replace(ctx context.Context, token *domain.RefreshToken) error
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.RefreshToken, error)
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

type refreshTokenRepository struct {
	db *sql.DB
	tx database.TxManager
}

// NewRefreshTokenRepository creates a new instance of RefreshTokenRepository
func NewRefreshTokenRepository(db *sql.DB, tx database.TxManager) RefreshTokenRepository {
	return &refreshTokenRepository{db: db, tx: tx}
}

func (r *refreshTokenRepository) Replace(ctx context.Context, token *domain.RefreshToken) error {
	return r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := r.RevokeAllForUser(ctx, token.UserID); err != nil {
			return err
		}

		query := `
			INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, revoked)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err := database.Conn(ctx, r.db).ExecContext(
			ctx,
			query,
			token.ID,
			token.UserID,
			token.TokenHash,
			token.ExpiresAt,
			token.CreatedAt,
			token.Revoked,
		)
		if err != nil {
			return fmt.Errorf("failed to create refresh token: %w", err)
		}
		return nil
	})
}

// FindActiveByUser returns the non-revoked token of the user
func (r *refreshTokenRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at, revoked
		FROM refresh_tokens
		WHERE user_id = $1 AND NOT revoked
	`

	refreshToken := &domain.RefreshToken{}
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(
		&refreshToken.ID,
		&refreshToken.UserID,
		&refreshToken.TokenHash,
		&refreshToken.ExpiresAt,
		&refreshToken.CreatedAt,
		&refreshToken.Revoked,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}

	return refreshToken, nil
}

// RevokeAllForUser marks every token of the user as revoked. Revoking nothing is not an error.
func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}
