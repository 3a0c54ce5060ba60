package service

import (
	"context"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/ratelimit"
	"storefront/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var testJWT = config.JWTConfig{
	Secret:        "test-access-secret",
	RefreshSecret: "test-refresh-secret",
	AccessExpiry:  24 * time.Hour,
	RefreshExpiry: 7 * 24 * time.Hour,
}

// fixture wires every service against one in-memory store.
type fixture struct {
	store      *memory.Store
	users      *memory.Users
	tokens     *memory.RefreshTokens
	categories *memory.Categories
	products   *memory.Products
	reviews    *memory.Reviews
	orders     *memory.Orders

	tokenManager *TokenManager
	auth         AuthService
	account      UserService
	catalog      CatalogService
	checkout     OrderService
}

func newFixture(t testing.TB, loginLimit int) *fixture {
	t.Helper()

	store := memory.NewStore()
	f := &fixture{
		store:        store,
		users:        memory.NewUsers(store),
		tokens:       memory.NewRefreshTokens(store),
		categories:   memory.NewCategories(store),
		products:     memory.NewProducts(store),
		reviews:      memory.NewReviews(store),
		orders:       memory.NewOrders(store),
		tokenManager: NewTokenManager(testJWT),
	}

	security := config.SecurityConfig{BcryptCost: bcrypt.MinCost, LockoutThreshold: 5}
	limiter := ratelimit.NewMemoryLimiter(loginLimit, 15*time.Minute)
	logger := zap.NewNop()

	f.auth = NewAuthService(f.users, f.tokens, f.tokenManager, limiter, security, logger)
	f.account = NewUserService(f.users)
	f.catalog = NewCatalogService(f.products, f.categories, f.reviews)
	f.checkout = NewOrderService(f.orders, f.products, f.users, memory.NewTxManager(store), logger)
	return f
}

func (f *fixture) register(t testing.TB, email, password string) *domain.User {
	t.Helper()
	res, err := f.auth.Register(context.Background(), RegisterInput{Name: "Shopper", Email: email, Password: password})
	require.NoError(t, err)
	return res.User
}

func (f *fixture) makeAdmin(t testing.TB, email string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-password"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := &domain.User{
		ID:           uuid.New(),
		Name:         "Admin User",
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Country:      domain.DefaultCountry,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, f.users.Create(context.Background(), admin))
	return admin
}

func (f *fixture) category(t testing.TB, name string) *domain.Category {
	t.Helper()
	c, err := f.catalog.CreateCategory(context.Background(), CategoryInput{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) product(t testing.TB, categoryID uuid.UUID, name, price string, inStock bool) *domain.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), ProductInput{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		CategoryID: categoryID,
		InStock:    &inStock,
	})
	require.NoError(t, err)
	return p
}
