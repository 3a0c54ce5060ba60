package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/ratelimit"
	"storefront/internal/repository/memory"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// testAPI serves every handler against one in-memory store.
type testAPI struct {
	router  http.Handler
	users   *memory.Users
	catalog service.CatalogService
}

func newTestAPI(t testing.TB, production bool) *testAPI {
	t.Helper()

	store := memory.NewStore()
	users := memory.NewUsers(store)
	products := memory.NewProducts(store)
	logger := zap.NewNop()

	tokens := service.NewTokenManager(config.JWTConfig{
		Secret:        "handler-access-secret",
		RefreshSecret: "handler-refresh-secret",
		AccessExpiry:  time.Hour,
		RefreshExpiry: 24 * time.Hour,
	})
	security := config.SecurityConfig{BcryptCost: bcrypt.MinCost, LockoutThreshold: 5}

	auth := service.NewAuthService(users, memory.NewRefreshTokens(store), tokens,
		ratelimit.NewMemoryLimiter(5, 15*time.Minute), security, logger)
	account := service.NewUserService(users)
	catalog := service.NewCatalogService(products, memory.NewCategories(store), memory.NewReviews(store))
	orders := service.NewOrderService(memory.NewOrders(store), products, users, memory.NewTxManager(store), logger)

	guards := Guards{
		Authenticate: middleware.AuthMiddleware(tokens, logger),
		RequireAdmin: middleware.RequireAdmin(account, logger),
	}

	r := chi.NewRouter()
	NewAuthHandler(auth, logger, production).RegisterRoutes(r, guards)
	NewUserHandler(auth, account, logger, production).RegisterRoutes(r, guards)
	NewProductHandler(catalog, logger, production).RegisterRoutes(r, guards)
	NewCategoryHandler(catalog, logger, production).RegisterRoutes(r, guards)
	NewOrderHandler(orders, logger, production).RegisterRoutes(r, guards)

	return &testAPI{router: r, users: users, catalog: catalog}
}

type call struct {
	method string
	path   string
	body   any
	token  string
	ip     string
}

func (a *testAPI) do(t testing.TB, c call) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.ip != "" {
		req.RemoteAddr = c.ip + ":40000"
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t testing.TB, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// signUp registers a customer and returns the access token.
func (a *testAPI) signUp(t testing.TB, email string) string {
	t.Helper()
	w := a.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: map[string]string{
		"name": "Shopper", "email": email, "password": "secret1",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeJSON[AuthResponse](t, w).Token
}

// signInAdmin stores an admin account directly and logs it in.
func (a *testAPI) signInAdmin(t testing.TB) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-password"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, a.users.Create(context.Background(), &domain.User{
		ID:           uuid.New(),
		Name:         "Admin User",
		Email:        "admin@hunza.test",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Country:      domain.DefaultCountry,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}))

	w := a.do(t, call{method: http.MethodPost, path: "/api/auth/login", ip: "10.9.9.9", body: map[string]string{
		"email": "admin@hunza.test", "password": "admin-password",
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decodeJSON[AuthResponse](t, w).Token
}
