package seed

import (
	"context"
	"testing"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var adminConfig = config.SeedConfig{
	AdminEmail:    "Admin@Example.com",
	AdminPassword: "change-me-please",
	AdminName:     "Admin User",
}

func newMemorySeeder() (*Seeder, *memory.Users, *memory.Products) {
	store := memory.NewStore()
	users := memory.NewUsers(store)
	products := memory.NewProducts(store)
	return NewSeeder(users, memory.NewCategories(store), products, bcrypt.MinCost, zap.NewNop()), users, products
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	seeder, users, products := newMemorySeeder()

	first, err := seeder.Run(ctx, adminConfig)
	require.NoError(t, err)
	assert.Equal(t, Report{AdminCreated: true, CategoriesCreated: len(Categories), ProductsCreated: len(Products)}, first)

	second, err := seeder.Run(ctx, adminConfig)
	require.NoError(t, err)
	assert.Equal(t, Report{}, second)

	admin, err := users.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("change-me-please")))

	featured, err := products.ListFeatured(ctx, 20)
	require.NoError(t, err)
	assert.Len(t, featured, 6)

	_, total, err := products.List(ctx, repository.ProductFilter{
		CategorySlug: "dried-fruits",
		Page:         repository.Pagination{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestRunWithoutAdminPassword(t *testing.T) {
	seeder, _, _ := newMemorySeeder()

	_, err := seeder.Run(context.Background(), config.SeedConfig{AdminEmail: "admin@example.com"})
	assert.ErrorIs(t, err, ErrAdminPasswordMissing)
}

func TestSeedProductsReferenceSeedCategories(t *testing.T) {
	slugs := map[string]bool{}
	for _, c := range Categories {
		assert.Equal(t, domain.Slugify(c.Name), c.Slug)
		slugs[c.Slug] = true
	}
	skus := map[string]bool{}
	for _, p := range Products {
		assert.True(t, slugs[p.CategorySlug], p.Name)
		assert.True(t, p.Price.IsPositive(), p.Name)
		assert.False(t, skus[p.SKU], "duplicate sku %s", p.SKU)
		skus[p.SKU] = true
	}
}
