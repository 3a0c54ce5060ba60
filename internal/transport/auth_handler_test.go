package transport

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterThenMe(t *testing.T) {
	api := newTestAPI(t, false)

	w := api.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: map[string]string{
		"name": "A", "email": "a@x.com", "password": "secret1",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	reg := decodeJSON[AuthResponse](t, w)
	assert.Equal(t, "User registered successfully", reg.Message)
	assert.NotEmpty(t, reg.Token)
	assert.NotEmpty(t, reg.RefreshToken)

	me := api.do(t, call{method: http.MethodGet, path: "/api/auth/me", token: reg.Token})
	require.Equal(t, http.StatusOK, me.Code)
	assert.NotContains(t, me.Body.String(), "password")

	body := decodeJSON[map[string]any](t, me)
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, "user", body["role"])
}

func TestRegisterRejections(t *testing.T) {
	api := newTestAPI(t, false)
	api.signUp(t, "taken@x.com")

	tests := []struct {
		name    string
		body    map[string]string
		message string
	}{
		{"duplicate email", map[string]string{"name": "B", "email": "taken@x.com", "password": "secret1"}, "Email is already in use"},
		{"weak password", map[string]string{"name": "B", "email": "b@x.com", "password": "12345"}, "Password must be at least 6 characters long"},
		{"invalid email", map[string]string{"name": "B", "email": "nope", "password": "secret1"}, "Validation error"},
		{"missing name", map[string]string{"email": "c@x.com", "password": "secret1"}, "Validation error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: tt.body})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, decodeJSON[map[string]any](t, w)["message"])
		})
	}
}

func TestLoginLockoutOverHTTP(t *testing.T) {
	api := newTestAPI(t, false)
	api.signUp(t, "victim@x.com")

	wrong := map[string]string{"email": "victim@x.com", "password": "wrong-password"}
	for attempt := 1; attempt <= 4; attempt++ {
		w := api.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: wrong, ip: "10.0.0.1"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		body := decodeJSON[map[string]any](t, w)
		assert.Equal(t, "Invalid email or password", body["message"])
		assert.EqualValues(t, 5-attempt, body["remainingAttempts"])
	}

	fifth := api.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: wrong, ip: "10.0.0.1"})
	require.Equal(t, http.StatusForbidden, fifth.Code)
	assert.Equal(t,
		"Account has been locked due to too many failed attempts. Please contact support.",
		decodeJSON[map[string]any](t, fifth)["message"])

	// the correct password from a fresh address is still refused
	right := api.do(t, call{method: http.MethodPost, path: "/api/auth/login", ip: "10.0.0.2",
		body: map[string]string{"email": "victim@x.com", "password": "secret1"}})
	require.Equal(t, http.StatusForbidden, right.Code)
	assert.Equal(t, "Account is locked. Please contact support.", decodeJSON[map[string]any](t, right)["message"])
}

func TestLoginRateLimitedPerIP(t *testing.T) {
	api := newTestAPI(t, false)

	unknown := map[string]string{"email": "ghost@x.com", "password": "whatever"}
	for i := 0; i < 5; i++ {
		w := api.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: unknown, ip: "10.1.1.1"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := api.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: unknown, ip: "10.1.1.1"})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "Too many login attempts. Please try again later.", body["message"])
	assert.Greater(t, body["retryAfter"], float64(0))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	other := api.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: unknown, ip: "10.1.1.2"})
	assert.Equal(t, http.StatusUnauthorized, other.Code)
}

func TestLoginMalformedBodiesSpendBudget(t *testing.T) {
	api := newTestAPI(t, false)

	malformed := []any{
		map[string]string{"email": "not-an-email", "password": "x"},
		map[string]string{},
		"just a string",
		map[string]int{"email": 7},
		map[string]string{"password": "only-password"},
	}
	for _, body := range malformed {
		w := api.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: body, ip: "10.2.2.2"})
		require.Equal(t, http.StatusBadRequest, w.Code)
	}

	w := api.do(t, call{method: http.MethodPost, path: "/api/auth/login", ip: "10.2.2.2",
		body: map[string]string{"email": "ghost@x.com", "password": "whatever"}})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	api := newTestAPI(t, false)

	w := api.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: map[string]string{
		"name": "R", "email": "r@x.com", "password": "secret1",
	}})
	require.Equal(t, http.StatusCreated, w.Code)
	reg := decodeJSON[AuthResponse](t, w)

	refreshed := api.do(t, call{method: http.MethodPost, path: "/api/auth/refresh-token",
		body: map[string]string{"refreshToken": reg.RefreshToken}})
	require.Equal(t, http.StatusOK, refreshed.Code)
	assert.NotEmpty(t, decodeJSON[RefreshResponse](t, refreshed).Token)

	out := api.do(t, call{method: http.MethodPost, path: "/api/auth/logout", token: reg.Token})
	require.Equal(t, http.StatusOK, out.Code)

	revoked := api.do(t, call{method: http.MethodPost, path: "/api/auth/refresh-token",
		body: map[string]string{"refreshToken": reg.RefreshToken}})
	assert.Equal(t, http.StatusUnauthorized, revoked.Code)
	assert.Equal(t, "Invalid refresh token", decodeJSON[map[string]any](t, revoked)["message"])

	missing := api.do(t, call{method: http.MethodPost, path: "/api/auth/refresh-token", body: map[string]string{}})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestProperty_SuccessResponsesNeverLeakCredentials(t *testing.T) {
	properties := gopter.NewProperties(nil)
	api := newTestAPI(t, false)

	properties.Property("register and me bodies never carry password material", prop.ForAll(
		func(n int, suffix string) bool {
			w := api.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: map[string]string{
				"name": "Leak", "email": fmt.Sprintf("leak%d@x.com", n), "password": "secret-" + suffix,
			}})
			if w.Code != http.StatusCreated {
				// the same generated email twice is a duplicate, which is fine
				return w.Code == http.StatusBadRequest
			}
			reg := decodeJSON[AuthResponse](t, w)
			me := api.do(t, call{method: http.MethodGet, path: "/api/auth/me", token: reg.Token})

			for _, body := range []string{w.Body.String(), me.Body.String()} {
				if strings.Contains(body, `"password`) || strings.Contains(body, "$2a$") {
					return false
				}
			}
			return me.Code == http.StatusOK
		},
		gen.IntRange(0, 1_000_000),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
