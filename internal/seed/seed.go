// Package seed loads the starter catalog and the first admin account.
// Every step checks for existing rows first, so running it again is harmless.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrAdminPasswordMissing is returned when the admin account must be created
// but no password was configured.
var ErrAdminPasswordMissing = errors.New("SEED_ADMIN_PASSWORD is required to create the admin user")

// Report counts what a run inserted.
type Report struct {
	AdminCreated      bool
	CategoriesCreated int
	ProductsCreated   int
}

type Seeder struct {
	users      repository.UserRepository
	categories repository.CategoryRepository
	products   repository.ProductRepository
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

func NewSeeder(
	users repository.UserRepository,
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	bcryptCost int,
	logger *zap.Logger,
) *Seeder {
	return &Seeder{
		users:      users,
		categories: categories,
		products:   products,
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        time.Now,
	}
}

// Run seeds the admin user, then categories, then products.
func (s *Seeder) Run(ctx context.Context, admin config.SeedConfig) (Report, error) {
	var report Report

	created, err := s.seedAdmin(ctx, admin)
	if err != nil {
		return report, err
	}
	report.AdminCreated = created

	categoryIDs := make(map[string]uuid.UUID, len(Categories))
	for _, c := range Categories {
		id, created, err := s.seedCategory(ctx, c)
		if err != nil {
			return report, err
		}
		categoryIDs[c.Slug] = id
		if created {
			report.CategoriesCreated++
		}
	}

	for _, p := range Products {
		categoryID, ok := categoryIDs[p.CategorySlug]
		if !ok {
			return report, fmt.Errorf("seed product %q names unknown category %q", p.Name, p.CategorySlug)
		}
		created, err := s.seedProduct(ctx, p, categoryID)
		if err != nil {
			return report, err
		}
		if created {
			report.ProductsCreated++
		}
	}

	s.logger.Info("Database seeding completed",
		zap.Bool("admin_created", report.AdminCreated),
		zap.Int("categories_created", report.CategoriesCreated),
		zap.Int("products_created", report.ProductsCreated),
	)
	return report, nil
}

func (s *Seeder) seedAdmin(ctx context.Context, cfg config.SeedConfig) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return false, fmt.Errorf("failed to look up admin user: %w", err)
	}
	if cfg.AdminPassword == "" {
		return false, ErrAdminPasswordMissing
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), s.bcryptCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := s.now()
	admin := &domain.User{
		ID:           uuid.New(),
		Name:         cfg.AdminName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Country:      domain.DefaultCountry,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		// a soft-deleted account still owns the address
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			s.logger.Warn("Admin email belongs to a deleted account, skipping", zap.String("email", email))
			return false, nil
		}
		return false, fmt.Errorf("failed to create admin user: %w", err)
	}

	s.logger.Info("Admin user created", zap.String("email", email))
	return true, nil
}

func (s *Seeder) seedCategory(ctx context.Context, c CategorySeed) (uuid.UUID, bool, error) {
	existing, err := s.categories.FindBySlug(ctx, c.Slug, false)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, repository.ErrCategoryNotFound) {
		return uuid.Nil, false, fmt.Errorf("failed to look up category %q: %w", c.Slug, err)
	}

	now := s.now()
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        c.Name,
		Description: c.Description,
		Slug:        c.Slug,
		ImageURL:    c.ImageURL,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to create category %q: %w", c.Slug, err)
	}

	s.logger.Info("Category created", zap.String("slug", c.Slug))
	return category.ID, true, nil
}

// seedProduct keys idempotency on the SKU, which the store keeps unique.
func (s *Seeder) seedProduct(ctx context.Context, p ProductSeed, categoryID uuid.UUID) (bool, error) {
	now := s.now()
	sku := p.SKU
	weight := p.Weight
	product := &domain.Product{
		ID:              uuid.New(),
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price,
		CategoryID:      categoryID,
		ImageURL:        p.ImageURL,
		InStock:         true,
		Quantity:        p.Quantity,
		Weight:          &weight,
		SKU:             &sku,
		FeaturedProduct: p.Featured,
		Rating:          p.Rating,
		Origin:          domain.DefaultOrigin,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicateSKU) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create product %q: %w", p.Name, err)
	}

	s.logger.Info("Product created", zap.String("sku", p.SKU))
	return true, nil
}
