package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/ratelimit"
	"storefront/internal/repository/memory"
	"storefront/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(t testing.TB) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Env: "test", UploadDir: t.TempDir()},
		RateLimit: config.RateLimitConfig{
			LoginLimit:  5,
			LoginWindow: 15 * time.Minute,
		},
		JWT: config.JWTConfig{
			Secret:        "router-access",
			RefreshSecret: "router-refresh",
			AccessExpiry:  time.Hour,
			RefreshExpiry: time.Hour,
		},
		Security: config.SecurityConfig{BcryptCost: bcrypt.MinCost, LockoutThreshold: 5},
	}
}

func memoryServices(cfg *config.Config) Services {
	store := memory.NewStore()
	users := memory.NewUsers(store)
	products := memory.NewProducts(store)
	tokens := service.NewTokenManager(cfg.JWT)
	logger := zap.NewNop()
	login, api := newLimiters(cfg.RateLimit, nil)

	return Services{
		Auth:       service.NewAuthService(users, memory.NewRefreshTokens(store), tokens, login, cfg.Security, logger),
		Users:      service.NewUserService(users),
		Catalog:    service.NewCatalogService(products, memory.NewCategories(store), memory.NewReviews(store)),
		Orders:     service.NewOrderService(memory.NewOrders(store), products, users, memory.NewTxManager(store), logger),
		Tokens:     tokens,
		APILimiter: api,
	}
}

func get(t testing.TB, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRouterBasics(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Server.UploadDir, "apricot.jpg"), []byte("jpeg-bytes"), 0o644))
	router := NewRouter(cfg, zap.NewNop(), memoryServices(cfg))

	root := get(t, router, "/")
	require.Equal(t, http.StatusOK, root.Code)
	assert.JSONEq(t, `{"message":"Welcome to Hunza E-Store API"}`, root.Body.String())

	health := get(t, router, "/health")
	assert.Equal(t, http.StatusOK, health.Code)

	upload := get(t, router, "/uploads/apricot.jpg")
	require.Equal(t, http.StatusOK, upload.Code)
	assert.Equal(t, "jpeg-bytes", upload.Body.String())

	products := get(t, router, "/api/products")
	assert.Equal(t, http.StatusOK, products.Code)
	assert.Equal(t, "nosniff", products.Header().Get("X-Content-Type-Options"))

	missing := get(t, router, "/api/nothing-here")
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.JSONEq(t, `{"message":"Route not found"}`, missing.Body.String())

	protected := get(t, router, "/api/orders/my-orders")
	assert.Equal(t, http.StatusUnauthorized, protected.Code)
}

func TestHealthReportsDatabaseDown(t *testing.T) {
	cfg := testConfig(t)
	svc := memoryServices(cfg)
	svc.Health = func(context.Context) map[string]string {
		return map[string]string{"status": "down", "error": "db down: refused"}
	}

	w := get(t, NewRouter(cfg, zap.NewNop(), svc), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
}

func TestAPILimiterApplies(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.APILimit = 2
	router := NewRouter(cfg, zap.NewNop(), memoryServices(cfg))

	assert.Equal(t, http.StatusOK, get(t, router, "/api/categories").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/api/categories").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, router, "/api/categories").Code)

	// health checks are outside the API budget
	assert.Equal(t, http.StatusOK, get(t, router, "/health").Code)
}

func TestNewLimitersBackends(t *testing.T) {
	cfg := config.RateLimitConfig{LoginLimit: 5, LoginWindow: time.Minute}

	login, api := newLimiters(cfg, nil)
	assert.IsType(t, &ratelimit.MemoryLimiter{}, login)
	assert.Nil(t, api)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg.APILimit = 100
	login, api = newLimiters(cfg, client)
	assert.IsType(t, &ratelimit.RedisLimiter{}, login)
	assert.IsType(t, &ratelimit.RedisLimiter{}, api)

	res, err := login.Allow(context.Background(), "login:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
}

func loginFrom(t testing.TB, h http.Handler, remoteAddr, forwardedFor string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"nobody@example.com","password":"wrong-password"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Real-IP", forwardedFor)
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestLoginLimiter_IgnoresForwardedHeadersFromClients(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg, zap.NewNop(), memoryServices(cfg))

	var codes []int
	for i := 0; i < 6; i++ {
		codes = append(codes, loginFrom(t, router, "203.0.113.7:5555", "10.0.0."+string(rune('0'+i))))
	}

	assert.Equal(t, []int{401, 401, 401, 401, 401, 429}, codes)
}

func TestLoginLimiter_HonorsForwardedHeadersFromTrustedProxy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.TrustedProxies = []string{"203.0.113.0/24"}
	router := NewRouter(cfg, zap.NewNop(), memoryServices(cfg))

	// each forwarded client gets its own budget behind the proxy
	for i := 0; i < 6; i++ {
		code := loginFrom(t, router, "203.0.113.7:5555", "10.0.0."+string(rune('0'+i)))
		assert.Equal(t, http.StatusUnauthorized, code, "client %d", i)
	}

	// the same forwarded client still runs out
	for i := 0; i < 4; i++ {
		loginFrom(t, router, "203.0.113.7:5555", "10.0.0.0")
	}
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(t, router, "203.0.113.7:5555", "10.0.0.0"))
}
