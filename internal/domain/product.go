package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	Description     string           `json:"description" db:"description"`
	Price           decimal.Decimal  `json:"price" db:"price"`
	CategoryID      uuid.UUID        `json:"categoryId" db:"category_id"`
	ImageURL        string           `json:"imageUrl,omitempty" db:"image_url"`
	InStock         bool             `json:"inStock" db:"in_stock"`
	Quantity        int              `json:"quantity" db:"quantity"`
	Weight          *decimal.Decimal `json:"weight,omitempty" db:"weight"`
	SKU             *string          `json:"sku,omitempty" db:"sku"`
	FeaturedProduct bool             `json:"featuredProduct" db:"featured_product"`
	Rating          decimal.Decimal  `json:"rating" db:"rating"`
	NumReviews      int              `json:"numReviews" db:"num_reviews"`
	Origin          string           `json:"origin,omitempty" db:"origin"`
	IsActive        bool             `json:"isActive" db:"is_active"`
	CreatedAt       time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time        `json:"updatedAt" db:"updated_at"`
	DeletedAt       *time.Time       `json:"-" db:"deleted_at"`

	Category *CategorySummary `json:"category,omitempty"`
	Reviews  []Review         `json:"reviews,omitempty"`
}

// DefaultOrigin is applied to products created without an origin.
const DefaultOrigin = "Hunza, Pakistan"

// ProductSummary is the product shape embedded in order items.
type ProductSummary struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	ImageURL string          `json:"imageUrl,omitempty"`
	Price    decimal.Decimal `json:"price"`
}

// Category represents a product category
type Category struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description,omitempty" db:"description"`
	Slug        string     `json:"slug" db:"slug"`
	ImageURL    string     `json:"imageUrl,omitempty" db:"image_url"`
	IsActive    bool       `json:"isActive" db:"is_active"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
	DeletedAt   *time.Time `json:"-" db:"deleted_at"`

	Products []Product `json:"products,omitempty"`
}

// CategorySummary is the category shape embedded in product listings.
type CategorySummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// Review is a customer rating of a product.
type Review struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	ProductID  uuid.UUID  `json:"productId" db:"product_id"`
	UserID     uuid.UUID  `json:"userId" db:"user_id"`
	Rating     int        `json:"rating" db:"rating"`
	Title      string     `json:"title,omitempty" db:"title"`
	Comment    string     `json:"comment" db:"comment"`
	IsApproved bool       `json:"-" db:"is_approved"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	DeletedAt  *time.Time `json:"-" db:"deleted_at"`

	User *UserSummary `json:"user,omitempty"`
}

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugSpaces   = regexp.MustCompile(`\s+`)
	slugDashRuns = regexp.MustCompile(`-+`)
)

// Slugify derives the URL slug of a category name: lowercased, punctuation
// removed, whitespace turned into dashes and dash runs collapsed.
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	return slugDashRuns.ReplaceAllString(s, "-")
}
