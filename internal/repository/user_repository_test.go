package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_EmailIsUniqueEvenAfterSoftDelete(t *testing.T) {
	db := requireDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	email := uniqueEmail()
	user := newTestUser(email)
	require.NoError(t, repo.Create(ctx, user))

	err := repo.Create(ctx, newTestUser(email))
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	require.NoError(t, repo.SoftDelete(ctx, user.ID))
	_, err = repo.FindByEmail(ctx, email)
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = repo.Create(ctx, newTestUser(email))
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	assert.ErrorIs(t, repo.SoftDelete(ctx, user.ID), ErrUserNotFound)
}

func TestUserRepository_LockoutCounter(t *testing.T) {
	db := requireDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newTestUser(uniqueEmail())
	require.NoError(t, repo.Create(ctx, user))

	for i := 1; i <= 4; i++ {
		attempts, locked, err := repo.RecordFailedLogin(ctx, user.ID, 5)
		require.NoError(t, err)
		assert.Equal(t, i, attempts)
		assert.False(t, locked)
	}

	attempts, locked, err := repo.RecordFailedLogin(ctx, user.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, attempts)
	assert.True(t, locked)

	require.NoError(t, repo.Unlock(ctx, user.ID))
	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, found.IsLocked)
	assert.Zero(t, found.FailedLoginAttempts)

	_, _, err = repo.RecordFailedLogin(ctx, user.ID, 5)
	require.NoError(t, err)
	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.RecordSuccessfulLogin(ctx, user.ID, at))

	found, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, found.FailedLoginAttempts)
	require.NotNil(t, found.LastLogin)
	assert.True(t, found.LastLogin.Equal(at))

	_, _, err = repo.RecordFailedLogin(ctx, uuid.New(), 5)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_ProfileAndPassword(t *testing.T) {
	db := requireDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newTestUser(uniqueEmail())
	require.NoError(t, repo.Create(ctx, user))

	user.Name = "Renamed"
	user.City = "Karimabad"
	user.Phone = "+92-300-0000000"
	require.NoError(t, repo.UpdateProfile(ctx, user))
	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "$2a$10$replacementhashvalue"))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", found.Name)
	assert.Equal(t, "Karimabad", found.City)
	assert.Equal(t, "+92-300-0000000", found.Phone)
	assert.Empty(t, found.Address)
	assert.Equal(t, "$2a$10$replacementhashvalue", found.PasswordHash)
}

func TestUserRepository_ListSearchAndPaging(t *testing.T) {
	db := requireDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	marker := "pager" + uuid.NewString()[:6]
	for i := 0; i < 3; i++ {
		u := newTestUser(marker + "-" + uuid.NewString()[:4] + "@example.com")
		require.NoError(t, repo.Create(ctx, u))
	}
	deleted := newTestUser(marker + "-gone@example.com")
	require.NoError(t, repo.Create(ctx, deleted))
	require.NoError(t, repo.SoftDelete(ctx, deleted.ID))

	users, total, err := repo.List(ctx, marker, Pagination{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, users, 2)

	users, _, err = repo.List(ctx, strings.ToUpper(marker), Pagination{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestProperty_StoredUsersRoundTrip(t *testing.T) {
	db := requireDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)

	properties.Property("created users are found by email and id", prop.ForAll(
		func(local string, name string) bool {
			email := local + "-" + uuid.NewString()[:8] + "@example.com"
			user := newTestUser(email)
			user.Name = name

			if err := repo.Create(ctx, user); err != nil {
				t.Logf("create: %v", err)
				return false
			}

			byEmail, err := repo.FindByEmail(ctx, email)
			if err != nil {
				return false
			}
			byID, err := repo.FindByID(ctx, user.ID)
			if err != nil {
				return false
			}
			return byEmail.ID == user.ID &&
				byID.Email == email &&
				byID.Name == name &&
				byID.Role == domain.RoleUser &&
				!byID.IsLocked
		},
		gen.RegexMatch(`^[a-z][a-z0-9]{2,15}$`),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" && len(s) <= 100 }),
	))

	properties.TestingRun(t)
}

func TestRefreshTokenRepository_SingleActiveToken(t *testing.T) {
	db := requireDB(t)
	users := NewUserRepository(db)
	tokens := NewRefreshTokenRepository(db, database.NewTxManager(db))
	ctx := context.Background()

	user := newTestUser(uniqueEmail())
	require.NoError(t, users.Create(ctx, user))

	issue := func(hash string) *domain.RefreshToken {
		return &domain.RefreshToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			TokenHash: hash,
			ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
			CreatedAt: time.Now(),
		}
	}

	require.NoError(t, tokens.Replace(ctx, issue("first")))
	require.NoError(t, tokens.Replace(ctx, issue("second")))

	active, err := tokens.FindActiveByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", active.TokenHash)

	require.NoError(t, tokens.RevokeAllForUser(ctx, user.ID))
	_, err = tokens.FindActiveByUser(ctx, user.ID)
	assert.True(t, errors.Is(err, ErrRefreshTokenNotFound))

	// Revoking with nothing active is a no-op.
	assert.NoError(t, tokens.RevokeAllForUser(ctx, user.ID))
}
