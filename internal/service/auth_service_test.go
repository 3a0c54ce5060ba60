package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/ratelimit"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

// Property: registration stores a bcrypt hash, never the plaintext
func TestProperty_RegistrationCreatesHashedPasswords(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("passwords are hashed with bcrypt and not stored as plaintext", prop.ForAll(
		func(email string, password string) bool {
			f := newFixture(t, 100)
			ctx := context.Background()

			res, err := f.auth.Register(ctx, RegisterInput{Name: "Shopper", Email: email, Password: password})
			if err != nil {
				t.Logf("FAIL: registration failed: %v", err)
				return false
			}

			stored, err := f.users.FindByEmail(ctx, email)
			if err != nil {
				t.Logf("FAIL: could not find stored user: %v", err)
				return false
			}
			if stored.PasswordHash == password || res.User.PasswordHash != stored.PasswordHash {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)) == nil
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{6,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: passwords shorter than six characters are always rejected and nothing is stored
func TestProperty_ShortPasswordsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("weak passwords never create an account", prop.ForAll(
		func(password string) bool {
			f := newFixture(t, 100)
			ctx := context.Background()

			_, err := f.auth.Register(ctx, RegisterInput{Name: "Shopper", Email: "weak@example.com", Password: password})
			if !errors.Is(err, ErrWeakPassword) {
				return false
			}
			_, err = f.users.FindByEmail(ctx, "weak@example.com")
			return err != nil
		},
		gen.OneGenOf(
			gen.RegexMatch(`[A-Za-z0-9]{0,5}`),
			// multi-byte characters: five of them still fall short
			gen.IntRange(0, 5).Map(func(n int) string { return strings.Repeat("é", n) }),
			gen.IntRange(0, 5).Map(func(n int) string { return strings.Repeat("密", n) }),
		),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRegister_CountsPasswordCharacters(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, RegisterInput{Name: "Shopper", Email: "accents@example.com", Password: "ééé"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	res, err := f.auth.Register(ctx, RegisterInput{Name: "Shopper", Email: "accents@example.com", Password: "éééééé"})
	require.NoError(t, err)
	assert.Equal(t, "accents@example.com", res.User.Email)
}

func TestRegister_IssuesTokenPair(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	res, err := f.auth.Register(ctx, RegisterInput{Name: "Amina", Email: "amina@example.com", Password: "secret1"})
	require.NoError(t, err)

	id, err := f.tokenManager.ParseAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id)

	id, err = f.tokenManager.ParseRefresh(res.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id)

	// tokens are signed with different secrets
	_, err = f.tokenManager.ParseAccess(res.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	stored, err := f.tokens.FindActiveByUser(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, HashToken(res.RefreshToken), stored.TokenHash)
	assert.Equal(t, "Pakistan", res.User.Country)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t, 5)
	f.register(t, "a@x.com", "secret1")

	_, err := f.auth.Register(context.Background(), RegisterInput{Name: "Other", Email: "a@x.com", Password: "another"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestLogin_LocksAccountOnFifthFailure(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	user := f.register(t, "a@x.com", "correct-password")

	for i := 1; i <= 4; i++ {
		_, err := f.auth.Login(ctx, "10.0.0.1", "a@x.com", "wrong")
		var credErr *CredentialsError
		require.ErrorAs(t, err, &credErr)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, 5-i, credErr.RemainingAttempts)
	}

	_, err := f.auth.Login(ctx, "10.0.0.1", "a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrAccountLocked)

	stored, err := f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsLocked)
	assert.Equal(t, 5, stored.FailedLoginAttempts)

	// the correct password no longer helps
	_, err = f.auth.Login(ctx, "10.0.0.1", "a@x.com", "correct-password")
	assert.ErrorIs(t, err, ErrAccountLocked)

	require.NoError(t, f.account.UnlockUser(ctx, user.ID))
	_, err = f.auth.Login(ctx, "10.0.0.1", "a@x.com", "correct-password")
	assert.NoError(t, err)
}

func TestLogin_SuccessResetsFailureCounter(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	user := f.register(t, "a@x.com", "correct-password")

	for i := 0; i < 3; i++ {
		_, err := f.auth.Login(ctx, "10.0.0.1", "a@x.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	res, err := f.auth.Login(ctx, "10.0.0.1", "a@x.com", "correct-password")
	require.NoError(t, err)
	assert.NotNil(t, res.User.LastLogin)

	stored, err := f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.FailedLoginAttempts)
	assert.False(t, stored.IsLocked)
	assert.NotNil(t, stored.LastLogin)
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newFixture(t, 5)
	_, err := f.auth.Login(context.Background(), "10.0.0.1", "nobody@x.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	var credErr *CredentialsError
	assert.False(t, errors.As(err, &credErr), "unknown emails reveal no attempt count")
}

func TestLogin_RateLimitedPerClient(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	f.register(t, "a@x.com", "correct-password")

	for i := 0; i < 5; i++ {
		_, err := f.auth.Login(ctx, "10.0.0.1", "nobody@x.com", "x")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := f.auth.Login(ctx, "10.0.0.1", "a@x.com", "correct-password")
	var limited *RateLimitError
	require.ErrorAs(t, err, &limited)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Positive(t, limited.RetryAfterSeconds())

	// a different client is unaffected
	_, err = f.auth.Login(ctx, "10.0.0.2", "a@x.com", "correct-password")
	assert.NoError(t, err)
}

func TestRefreshToken_OnlyLatestTokenIsAccepted(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	f.register(t, "a@x.com", "correct-password")

	first, err := f.auth.Login(ctx, "10.0.0.1", "a@x.com", "correct-password")
	require.NoError(t, err)

	access, err := f.auth.RefreshToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	id, err := f.tokenManager.ParseAccess(access)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, id)

	second, err := f.auth.Login(ctx, "10.0.0.1", "a@x.com", "correct-password")
	require.NoError(t, err)

	_, err = f.auth.RefreshToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = f.auth.RefreshToken(ctx, second.RefreshToken)
	assert.NoError(t, err)

	_, err = f.auth.RefreshToken(ctx, second.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = f.auth.RefreshToken(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	f.register(t, "a@x.com", "correct-password")

	res, err := f.auth.Login(ctx, "10.0.0.1", "a@x.com", "correct-password")
	require.NoError(t, err)
	require.NoError(t, f.auth.Logout(ctx, res.User.ID))

	_, err = f.auth.RefreshToken(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	user := f.register(t, "a@x.com", "old-password")
	session, err := f.auth.Login(ctx, "10.0.0.1", "a@x.com", "old-password")
	require.NoError(t, err)

	err = f.auth.ChangePassword(ctx, user.ID, "not-it", "new-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = f.auth.ChangePassword(ctx, user.ID, "old-password", "ééééé")
	assert.ErrorIs(t, err, ErrWeakPassword, "ten bytes but five characters")

	err = f.auth.ChangePassword(ctx, user.ID, "old-password", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	require.NoError(t, f.auth.ChangePassword(ctx, user.ID, "old-password", "new-password"))

	_, err = f.auth.RefreshToken(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh sessions end on password change")

	_, err = f.auth.Login(ctx, "10.0.0.1", "a@x.com", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "10.0.0.1", "a@x.com", "new-password")
	assert.NoError(t, err)
}

func TestGetCurrentUser_DeletedAccount(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	user := f.register(t, "a@x.com", "secret1")

	got, err := f.auth.GetCurrentUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)

	require.NoError(t, f.account.DeleteAccount(ctx, user.ID, user.ID))
	_, err = f.auth.GetCurrentUser(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.auth.GetCurrentUser(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConsumeLoginAttempt_SeparateFromAuthenticate(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.register(t, "a@x.com", "correct-password")

	for i := 0; i < 2; i++ {
		require.NoError(t, f.auth.ConsumeLoginAttempt(ctx, "10.0.0.9"))
	}
	var limited *RateLimitError
	assert.ErrorAs(t, f.auth.ConsumeLoginAttempt(ctx, "10.0.0.9"), &limited)

	// Authenticate alone never spends budget
	for i := 0; i < 3; i++ {
		_, err := f.auth.Authenticate(ctx, "a@x.com", "correct-password")
		require.NoError(t, err)
	}
	_, err := f.auth.Login(ctx, "10.0.0.9", "a@x.com", "correct-password")
	assert.ErrorAs(t, err, &limited)
}

func TestRefreshToken_LogsExpiryAndForgery(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	user := f.register(t, "a@x.com", "correct-password")

	core, logs := observer.New(zapcore.DebugLevel)
	tokens := NewTokenManager(testJWT)
	auth := NewAuthService(f.users, f.tokens, tokens, ratelimit.NewMemoryLimiter(100, time.Minute),
		config.SecurityConfig{BcryptCost: bcrypt.MinCost, LockoutThreshold: 5}, zap.New(core))

	issued := time.Now()
	tokens.now = func() time.Time { return issued }
	refresh, _, err := tokens.IssueRefresh(user.ID)
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(8 * 24 * time.Hour) }
	_, err = auth.RefreshToken(ctx, refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 1, logs.FilterMessage("Refresh token expired").Len())

	_, err = auth.RefreshToken(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 1, logs.FilterMessage("Refresh token rejected").Len())
}
