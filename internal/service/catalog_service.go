package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeaturedLimit caps the featured products listing.
const FeaturedLimit = 8

// ProductQuery is a catalog listing request as received from the client.
type ProductQuery struct {
	Category string
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Page     int
	Limit    int
	Sort     string
	Order    string
}

// ProductInput creates a product. Nil optional fields take their defaults.
type ProductInput struct {
	Name            string
	Description     string
	Price           decimal.Decimal
	CategoryID      uuid.UUID
	ImageURL        string
	InStock         *bool
	Quantity        int
	Weight          *decimal.Decimal
	SKU             *string
	FeaturedProduct bool
	Origin          string
}

// ProductPatch is a partial product edit; nil fields keep their value.
type ProductPatch struct {
	Name            *string
	Description     *string
	Price           *decimal.Decimal
	CategoryID      *uuid.UUID
	ImageURL        *string
	InStock         *bool
	Quantity        *int
	Weight          *decimal.Decimal
	SKU             *string
	FeaturedProduct *bool
	Origin          *string
	IsActive        *bool
}

// CategoryInput creates a category.
type CategoryInput struct {
	Name        string
	Description string
	ImageURL    string
	IsActive    *bool
}

// CategoryPatch is a partial category edit; nil fields keep their value.
type CategoryPatch struct {
	Name        *string
	Description *string
	ImageURL    *string
	IsActive    *bool
}

// CatalogService defines product and category operations
type CatalogService interface {
	ListProducts(ctx context.Context, q ProductQuery) (*Page[*domain.Product], error)
	GetFeaturedProducts(ctx context.Context) ([]*domain.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	ListCategories(ctx context.Context, activeOnly bool) ([]*domain.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, patch CategoryPatch) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	reviewRepo   repository.ReviewRepository
	now          func() time.Time
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	reviewRepo repository.ReviewRepository,
) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		reviewRepo:   reviewRepo,
		now:          time.Now,
	}
}

var (
	errProductMissing  = detail(ErrNotFound, "Product not found")
	errCategoryMissing = detail(ErrNotFound, "Category not found")
)

func (s *catalogService) ListProducts(ctx context.Context, q ProductQuery) (*Page[*domain.Product], error) {
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, detail(ErrValidation, "minPrice must not exceed maxPrice")
	}

	p := normalizePage(q.Page, q.Limit)
	order := repository.SortOrderDesc
	if strings.EqualFold(q.Order, string(repository.SortOrderAsc)) {
		order = repository.SortOrderAsc
	}

	products, total, err := s.productRepo.List(ctx, repository.ProductFilter{
		CategorySlug: q.Category,
		Search:       q.Search,
		MinPrice:     q.MinPrice,
		MaxPrice:     q.MaxPrice,
		InStockOnly:  q.InStock,
		SortBy:       q.Sort,
		SortOrder:    order,
		Page:         p,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return newPage(products, total, p), nil
}

func (s *catalogService) GetFeaturedProducts(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.productRepo.ListFeatured(ctx, FeaturedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list featured products: %w", err)
	}
	return products, nil
}

// GetProductByID returns the product with its category and approved reviews
func (s *catalogService) GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, errProductMissing
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	reviews, err := s.reviewRepo.ListApprovedByProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}
	product.Reviews = reviews

	return product, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, detail(ErrValidation, "Product name is required")
	}
	if !in.Price.IsPositive() {
		return nil, detail(ErrValidation, "Price must be greater than 0")
	}
	if in.Quantity < 0 {
		return nil, detail(ErrValidation, "Quantity must not be negative")
	}

	origin := in.Origin
	if origin == "" {
		origin = domain.DefaultOrigin
	}
	inStock := true
	if in.InStock != nil {
		inStock = *in.InStock
	}

	now := s.now()
	product := &domain.Product{
		ID:              uuid.New(),
		Name:            in.Name,
		Description:     in.Description,
		Price:           in.Price,
		CategoryID:      in.CategoryID,
		ImageURL:        in.ImageURL,
		InStock:         inStock,
		Quantity:        in.Quantity,
		Weight:          in.Weight,
		SKU:             in.SKU,
		FeaturedProduct: in.FeaturedProduct,
		Rating:          decimal.Zero,
		Origin:          origin,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, mapProductWriteError(err)
	}

	return s.reload(ctx, product.ID)
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, errProductMissing
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if patch.Price != nil && !patch.Price.IsPositive() {
		return nil, detail(ErrValidation, "Price must be greater than 0")
	}
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return nil, detail(ErrValidation, "Quantity must not be negative")
	}

	apply(&product.Name, patch.Name)
	apply(&product.Description, patch.Description)
	apply(&product.Price, patch.Price)
	apply(&product.CategoryID, patch.CategoryID)
	apply(&product.ImageURL, patch.ImageURL)
	apply(&product.InStock, patch.InStock)
	apply(&product.Quantity, patch.Quantity)
	apply(&product.FeaturedProduct, patch.FeaturedProduct)
	apply(&product.Origin, patch.Origin)
	apply(&product.IsActive, patch.IsActive)
	if patch.Weight != nil {
		product.Weight = patch.Weight
	}
	if patch.SKU != nil {
		product.SKU = patch.SKU
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, mapProductWriteError(err)
	}

	return s.reload(ctx, id)
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return errProductMissing
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (s *catalogService) reload(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload product: %w", err)
	}
	return product, nil
}

func mapProductWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrCategoryReference):
		return detail(ErrValidation, "Category does not exist")
	case errors.Is(err, repository.ErrDuplicateSKU):
		return detail(ErrValidation, "SKU is already in use")
	case errors.Is(err, repository.ErrProductNotFound):
		return errProductMissing
	}
	return fmt.Errorf("failed to save product: %w", err)
}

func (s *catalogService) ListCategories(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	categories, err := s.categoryRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetCategoryBySlug returns an active category with its active products
func (s *catalogService) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	category, err := s.categoryRepo.FindBySlug(ctx, slug, true)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, errCategoryMissing
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	products, err := s.productRepo.ListActiveByCategory(ctx, category.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load category products: %w", err)
	}
	category.Products = make([]domain.Product, 0, len(products))
	for _, p := range products {
		p.Category = nil
		category.Products = append(category.Products, *p)
	}

	return category, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	slug, err := s.claimName(ctx, in.Name, uuid.Nil)
	if err != nil {
		return nil, err
	}

	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	now := s.now()
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		Slug:        slug,
		ImageURL:    in.ImageURL,
		IsActive:    isActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrCategoryAlreadyExists) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return category, nil
}

// UpdateCategory applies patch; a rename also changes the slug
func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, patch CategoryPatch) (*domain.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, errCategoryMissing
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	if patch.Name != nil && *patch.Name != category.Name {
		slug, err := s.claimName(ctx, *patch.Name, id)
		if err != nil {
			return nil, err
		}
		category.Name, category.Slug = *patch.Name, slug
	}
	apply(&category.Description, patch.Description)
	apply(&category.ImageURL, patch.ImageURL)
	apply(&category.IsActive, patch.IsActive)

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryAlreadyExists):
			return nil, ErrDuplicateName
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, errCategoryMissing
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	return category, nil
}

// DeleteCategory soft-deletes a category that no live product references
func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.categoryRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return errCategoryMissing
		}
		return fmt.Errorf("failed to get category: %w", err)
	}

	count, err := s.categoryRepo.CountProducts(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count category products: %w", err)
	}
	if count > 0 {
		return &DependentsError{ProductCount: count}
	}

	if err := s.categoryRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return errCategoryMissing
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

// claimName validates a category name and returns its slug when neither is taken
func (s *catalogService) claimName(ctx context.Context, name string, excludeID uuid.UUID) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", detail(ErrValidation, "Category name is required")
	}
	slug := domain.Slugify(name)
	if slug == "" || slug == "-" {
		return "", detail(ErrValidation, "Category name must contain letters or digits")
	}

	taken, err := s.categoryRepo.ExistsByNameOrSlug(ctx, name, slug, excludeID)
	if err != nil {
		return "", fmt.Errorf("failed to check category name: %w", err)
	}
	if taken {
		return "", ErrDuplicateName
	}
	return slug, nil
}
