package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateProductRequest represents the product creation payload
type CreateProductRequest struct {
	Name            string           `json:"name" validate:"required,max=200"`
	Description     string           `json:"description" validate:"required"`
	Price           *decimal.Decimal `json:"price" validate:"required"`
	CategoryID      uuid.UUID        `json:"categoryId" validate:"required"`
	ImageURL        string           `json:"imageUrl"`
	InStock         *bool            `json:"inStock"`
	Quantity        int              `json:"quantity" validate:"gte=0"`
	Weight          *decimal.Decimal `json:"weight"`
	SKU             *string          `json:"sku" validate:"omitnil,max=64"`
	FeaturedProduct bool             `json:"featuredProduct"`
	Origin          string           `json:"origin" validate:"max=100"`
}

// UpdateProductRequest is a partial product edit
type UpdateProductRequest struct {
	Name            *string          `json:"name" validate:"omitnil,min=1,max=200"`
	Description     *string          `json:"description"`
	Price           *decimal.Decimal `json:"price"`
	CategoryID      *uuid.UUID       `json:"categoryId"`
	ImageURL        *string          `json:"imageUrl"`
	InStock         *bool            `json:"inStock"`
	Quantity        *int             `json:"quantity" validate:"omitnil,gte=0"`
	Weight          *decimal.Decimal `json:"weight"`
	SKU             *string          `json:"sku" validate:"omitnil,max=64"`
	FeaturedProduct *bool            `json:"featuredProduct"`
	Origin          *string          `json:"origin" validate:"omitnil,max=100"`
	IsActive        *bool            `json:"isActive"`
}

// ProductHandler handles HTTP requests for the product catalog
type ProductHandler struct {
	catalog service.CatalogService
	errors  errorResponder
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog service.CatalogService, logger *zap.Logger, production bool) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		errors:  errorResponder{logger: logger, production: production},
		logger:  logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, guards Guards) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/featured", h.GetFeatured)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(guards.Authenticate, guards.RequireAdmin)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})
}

// ListProducts handles filtered and paginated product listing
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.ProductQuery{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		InStock:  q.Get("inStock") == "true",
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
		Sort:     q.Get("sort"),
		Order:    q.Get("order"),
	}

	var ok bool
	if query.MinPrice, ok = queryDecimal(w, r, "minPrice"); !ok {
		return
	}
	if query.MaxPrice, ok = queryDecimal(w, r, "maxPrice"); !ok {
		return
	}

	page, err := h.catalog.ListProducts(r.Context(), query)
	if err != nil {
		h.errors.respond(w, r, err, "Failed to fetch products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK,
		listResponse("products", orEmpty(page.Items), page.TotalItems, page.TotalPages, page.CurrentPage))
}

// GetFeatured returns the featured products shown on the storefront home page
func (h *ProductHandler) GetFeatured(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.GetFeaturedProducts(r.Context())
	if err != nil {
		h.errors.respond(w, r, err, "Failed to fetch featured products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orEmpty(products))
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Product not found")
	if !ok {
		return
	}

	product, err := h.catalog.GetProductByID(r.Context(), id)
	if err != nil {
		h.errors.respond(w, r, err, "Failed to fetch product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), service.ProductInput{
		Name:            req.Name,
		Description:     req.Description,
		Price:           *req.Price,
		CategoryID:      req.CategoryID,
		ImageURL:        req.ImageURL,
		InStock:         req.InStock,
		Quantity:        req.Quantity,
		Weight:          req.Weight,
		SKU:             req.SKU,
		FeaturedProduct: req.FeaturedProduct,
		Origin:          req.Origin,
	})
	if err != nil {
		h.errors.respond(w, r, err, "Failed to create product")
		return
	}

	h.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "Product created successfully",
		"product": product,
	})
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Product not found")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, service.ProductPatch{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		CategoryID:      req.CategoryID,
		ImageURL:        req.ImageURL,
		InStock:         req.InStock,
		Quantity:        req.Quantity,
		Weight:          req.Weight,
		SKU:             req.SKU,
		FeaturedProduct: req.FeaturedProduct,
		Origin:          req.Origin,
		IsActive:        req.IsActive,
	})
	if err != nil {
		h.errors.respond(w, r, err, "Failed to update product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Product updated successfully",
		"product": product,
	})
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Product not found")
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		h.errors.respond(w, r, err, "Failed to delete product")
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

// queryDecimal parses an optional decimal query parameter and answers 400
// when it is present but malformed.
func queryDecimal(w http.ResponseWriter, r *http.Request, key string) (*decimal.Decimal, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{{Field: key, Message: "Must be a number"}})
		return nil, false
	}
	return &d, true
}
