package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/database"
	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicateSKU      = errors.New("product with this SKU already exists")
	ErrCategoryReference = errors.New("product references a missing category")
)

// ProductFilter narrows a catalog listing. Zero values mean "no constraint".
type ProductFilter struct {
	CategorySlug string
	Search       string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	InStockOnly  bool
	SortBy       string
	SortOrder    SortOrder
	Page         Pagination
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// FindByIDs loads the live products among ids in one query.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)
	ListFeatured(ctx context.Context, limit int) ([]*domain.Product, error)
	ListActiveByCategory(ctx context.Context, categoryID uuid.UUID) ([]*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Sortable listing fields, keyed by their API name.
var productSortFields = map[string]string{
	"createdAt": "p.created_at",
	"price":     "p.price",
	"name":      "p.name",
	"rating":    "p.rating",
}

const productSelect = `
	SELECT p.id, p.name, p.description, p.price, p.category_id, p.image_url, p.in_stock,
	       p.quantity, p.weight, p.sku, p.featured_product, p.rating, p.num_reviews, p.origin,
	       p.is_active, p.created_at, p.updated_at,
	       c.id, c.name, c.slug
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var (
		product               domain.Product
		imageURL, sku, origin sql.NullString
		weight                decimal.NullDecimal
		catID                 uuid.NullUUID
		catName, catSlug      sql.NullString
	)
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.CategoryID,
		&imageURL,
		&product.InStock,
		&product.Quantity,
		&weight,
		&sku,
		&product.FeaturedProduct,
		&product.Rating,
		&product.NumReviews,
		&origin,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
		&catID,
		&catName,
		&catSlug,
	)
	if err != nil {
		return nil, err
	}
	product.ImageURL, product.Origin = imageURL.String, origin.String
	if weight.Valid {
		w := weight.Decimal
		product.Weight = &w
	}
	if sku.Valid {
		s := sku.String
		product.SKU = &s
	}
	if catID.Valid {
		product.Category = &domain.CategorySummary{ID: catID.UUID, Name: catName.String, Slug: catSlug.String}
	}
	return &product, nil
}

func scanProducts(rows *sql.Rows) ([]*domain.Product, error) {
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullString(*s)
}

func mapProductWriteError(err error, action string) error {
	if isUniqueViolation(err, "products_sku_key") {
		return ErrDuplicateSKU
	}
	if pgErrorCode(err) == foreignKeyViolation {
		return ErrCategoryReference
	}
	return fmt.Errorf("failed to %s product: %w", action, err)
}

// Create inserts a new product
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, category_id, image_url, in_stock, quantity,
			weight, sku, featured_product, rating, num_reviews, origin, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := database.Conn(ctx, r.db).ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.CategoryID,
		nullString(product.ImageURL),
		product.InStock,
		product.Quantity,
		nullDecimal(product.Weight),
		nullStringPtr(product.SKU),
		product.FeaturedProduct,
		product.Rating,
		product.NumReviews,
		nullString(product.Origin),
		product.IsActive,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return mapProductWriteError(err, "create")
	}

	return nil
}

// Update writes every editable column of an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, category_id = $5, image_url = $6,
		    in_stock = $7, quantity = $8, weight = $9, sku = $10, featured_product = $11,
		    origin = $12, is_active = $13
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := database.Conn(ctx, r.db).ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.CategoryID,
		nullString(product.ImageURL),
		product.InStock,
		product.Quantity,
		nullDecimal(product.Weight),
		nullStringPtr(product.SKU),
		product.FeaturedProduct,
		nullString(product.Origin),
		product.IsActive,
	)
	if err != nil {
		return mapProductWriteError(err, "update")
	}

	return expectOneRow(result, ErrProductNotFound)
}

func (r *productRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE products SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return expectOneRow(result, ErrProductNotFound)
}

// FindByID retrieves a live product with its category summary
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := productSelect + ` WHERE p.id = $1 AND p.deleted_at IS NULL`

	product, err := scanProduct(database.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return []*domain.Product{}, nil
	}

	query := productSelect + ` WHERE p.id = ANY($1::uuid[]) AND p.deleted_at IS NULL`
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, uuidArray(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	return scanProducts(rows)
}

// List retrieves active products matching filter, with the total match count
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error) {
	// Validate sort field to prevent SQL injection
	sortColumn, ok := productSortFields[filter.SortBy]
	if !ok {
		sortColumn = productSortFields["createdAt"]
	}
	sortOrder := filter.SortOrder
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	where := &whereBuilder{}
	where.addRaw("p.deleted_at IS NULL")
	where.addRaw("p.is_active")
	if filter.CategorySlug != "" {
		where.add("c.slug = $%d AND c.deleted_at IS NULL", filter.CategorySlug)
	}
	if filter.Search != "" {
		where.add("(p.name ILIKE $%[1]d OR p.description ILIKE $%[1]d)", "%"+filter.Search+"%")
	}
	if filter.MinPrice != nil {
		where.add("p.price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where.add("p.price <= $%d", *filter.MaxPrice)
	}
	if filter.InStockOnly {
		where.addRaw("p.in_stock")
	}

	conn := database.Conn(ctx, r.db)

	countQuery := `SELECT COUNT(*) FROM products p LEFT JOIN categories c ON c.id = p.category_id ` + where.String()
	var total int
	if err := conn.QueryRowContext(ctx, countQuery, where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`%s %s ORDER BY %s %s, p.id LIMIT $%d OFFSET $%d`,
		productSelect, where.String(), sortColumn, sortOrder, where.next(), where.next()+1)
	args := append(where.args, filter.Page.Limit, filter.Page.offset())

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) ListFeatured(ctx context.Context, limit int) ([]*domain.Product, error) {
	query := productSelect + `
		WHERE p.featured_product AND p.is_active AND p.deleted_at IS NULL
		ORDER BY p.created_at DESC
		LIMIT $1
	`
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list featured products: %w", err)
	}
	return scanProducts(rows)
}

func (r *productRepository) ListActiveByCategory(ctx context.Context, categoryID uuid.UUID) ([]*domain.Product, error) {
	query := productSelect + `
		WHERE p.category_id = $1 AND p.is_active AND p.deleted_at IS NULL
		ORDER BY p.name ASC
	`
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list category products: %w", err)
	}
	return scanProducts(rows)
}
