package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

type Categories struct{ store *Store }

func NewCategories(store *Store) *Categories { return &Categories{store: store} }

var _ repository.CategoryRepository = (*Categories)(nil)

func (c *Categories) clash(name, slug string, except uuid.UUID) bool {
	for _, existing := range c.store.t.categories {
		if existing.ID != except && (existing.Name == name || existing.Slug == slug) {
			return true
		}
	}
	return false
}

func (c *Categories) Create(ctx context.Context, category *domain.Category) error {
	c.store.wlock(ctx)
	defer c.store.wunlock(ctx)
	if c.clash(category.Name, category.Slug, category.ID) {
		return repository.ErrCategoryAlreadyExists
	}
	stored := *category
	stored.Products = nil
	c.store.t.categories[category.ID] = stored
	return nil
}

func (c *Categories) Update(ctx context.Context, category *domain.Category) error {
	c.store.wlock(ctx)
	defer c.store.wunlock(ctx)
	current, ok := c.store.t.categories[category.ID]
	if !ok || current.DeletedAt != nil {
		return repository.ErrCategoryNotFound
	}
	if c.clash(category.Name, category.Slug, category.ID) {
		return repository.ErrCategoryAlreadyExists
	}
	current.Name, current.Description, current.Slug = category.Name, category.Description, category.Slug
	current.ImageURL, current.IsActive = category.ImageURL, category.IsActive
	c.store.t.categories[category.ID] = current
	return nil
}

func (c *Categories) SoftDelete(ctx context.Context, id uuid.UUID) error {
	c.store.wlock(ctx)
	defer c.store.wunlock(ctx)
	current, ok := c.store.t.categories[id]
	if !ok || current.DeletedAt != nil {
		return repository.ErrCategoryNotFound
	}
	current.DeletedAt = c.store.deletedAt()
	c.store.t.categories[id] = current
	return nil
}

func (c *Categories) List(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	c.store.rlock(ctx)
	defer c.store.runlock(ctx)
	out := []*domain.Category{}
	for _, category := range c.store.t.categories {
		if category.DeletedAt != nil || (activeOnly && !category.IsActive) {
			continue
		}
		out = append(out, &category)
	}
	slices.SortFunc(out, func(a, b *domain.Category) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (c *Categories) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c.store.rlock(ctx)
	defer c.store.runlock(ctx)
	category, ok := c.store.t.categories[id]
	if !ok || category.DeletedAt != nil {
		return nil, repository.ErrCategoryNotFound
	}
	return &category, nil
}

func (c *Categories) FindBySlug(ctx context.Context, slug string, activeOnly bool) (*domain.Category, error) {
	c.store.rlock(ctx)
	defer c.store.runlock(ctx)
	for _, category := range c.store.t.categories {
		if category.Slug == slug && category.DeletedAt == nil && (!activeOnly || category.IsActive) {
			return &category, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (c *Categories) ExistsByNameOrSlug(ctx context.Context, name, slug string, excludeID uuid.UUID) (bool, error) {
	c.store.rlock(ctx)
	defer c.store.runlock(ctx)
	return c.clash(name, slug, excludeID), nil
}

func (c *Categories) CountProducts(ctx context.Context, id uuid.UUID) (int, error) {
	c.store.rlock(ctx)
	defer c.store.runlock(ctx)
	n := 0
	for _, p := range c.store.t.products {
		if p.CategoryID == id && p.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

type Products struct{ store *Store }

func NewProducts(store *Store) *Products { return &Products{store: store} }

var _ repository.ProductRepository = (*Products)(nil)

// withCategory returns a copy of p carrying its category summary.
func (r *Products) withCategory(p domain.Product) *domain.Product {
	if c, ok := r.store.t.categories[p.CategoryID]; ok {
		p.Category = &domain.CategorySummary{ID: c.ID, Name: c.Name, Slug: c.Slug}
	}
	p.Reviews = nil
	return &p
}

func (r *Products) checkWrite(p *domain.Product) error {
	if _, ok := r.store.t.categories[p.CategoryID]; !ok {
		return repository.ErrCategoryReference
	}
	if p.SKU == nil {
		return nil
	}
	for _, existing := range r.store.t.products {
		if existing.ID != p.ID && existing.SKU != nil && *existing.SKU == *p.SKU {
			return repository.ErrDuplicateSKU
		}
	}
	return nil
}

func (r *Products) Create(ctx context.Context, product *domain.Product) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if err := r.checkWrite(product); err != nil {
		return err
	}
	stored := *product
	stored.Category, stored.Reviews = nil, nil
	r.store.t.products[product.ID] = stored
	return nil
}

func (r *Products) Update(ctx context.Context, product *domain.Product) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	current, ok := r.store.t.products[product.ID]
	if !ok || current.DeletedAt != nil {
		return repository.ErrProductNotFound
	}
	if err := r.checkWrite(product); err != nil {
		return err
	}
	stored := *product
	stored.Category, stored.Reviews = nil, nil
	stored.Rating, stored.NumReviews = current.Rating, current.NumReviews
	stored.CreatedAt, stored.UpdatedAt = current.CreatedAt, r.store.Now()
	r.store.t.products[product.ID] = stored
	return nil
}

func (r *Products) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	current, ok := r.store.t.products[id]
	if !ok || current.DeletedAt != nil {
		return repository.ErrProductNotFound
	}
	current.DeletedAt = r.store.deletedAt()
	r.store.t.products[id] = current
	return nil
}

func (r *Products) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	p, ok := r.store.t.products[id]
	if !ok || p.DeletedAt != nil {
		return nil, repository.ErrProductNotFound
	}
	return r.withCategory(p), nil
}

func (r *Products) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := []*domain.Product{}
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		p, ok := r.store.t.products[id]
		if !ok || p.DeletedAt != nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, r.withCategory(p))
	}
	return out, nil
}

func (r *Products) List(ctx context.Context, f repository.ProductFilter) ([]*domain.Product, int, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	matched := []*domain.Product{}
	for _, p := range r.store.t.products {
		if p.DeletedAt != nil || !p.IsActive {
			continue
		}
		if f.CategorySlug != "" {
			c, ok := r.store.t.categories[p.CategoryID]
			if !ok || c.Slug != f.CategorySlug || c.DeletedAt != nil {
				continue
			}
		}
		if f.Search != "" && !containsFold(p.Name, f.Search) && !containsFold(p.Description, f.Search) {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		if f.InStockOnly && !p.InStock {
			continue
		}
		matched = append(matched, r.withCategory(p))
	}

	slices.SortFunc(matched, func(a, b *domain.Product) int {
		var c int
		switch f.SortBy {
		case "price":
			c = a.Price.Cmp(b.Price)
		case "name":
			c = strings.Compare(a.Name, b.Name)
		case "rating":
			c = a.Rating.Cmp(b.Rating)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if f.SortOrder != repository.SortOrderAsc {
			c = -c
		}
		return cmp.Or(c, strings.Compare(a.ID.String(), b.ID.String()))
	})

	return page(matched, f.Page.Page, f.Page.Limit), len(matched), nil
}

func (r *Products) ListFeatured(ctx context.Context, limit int) ([]*domain.Product, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := []*domain.Product{}
	for _, p := range r.store.t.products {
		if p.FeaturedProduct && p.IsActive && p.DeletedAt == nil {
			out = append(out, r.withCategory(p))
		}
	}
	slices.SortFunc(out, func(a, b *domain.Product) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return page(out, 1, limit), nil
}

func (r *Products) ListActiveByCategory(ctx context.Context, categoryID uuid.UUID) ([]*domain.Product, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := []*domain.Product{}
	for _, p := range r.store.t.products {
		if p.CategoryID == categoryID && p.IsActive && p.DeletedAt == nil {
			out = append(out, r.withCategory(p))
		}
	}
	slices.SortFunc(out, func(a, b *domain.Product) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

type Reviews struct{ store *Store }

func NewReviews(store *Store) *Reviews { return &Reviews{store: store} }

var _ repository.ReviewRepository = (*Reviews)(nil)

func (r *Reviews) Create(ctx context.Context, review *domain.Review) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	stored := *review
	stored.User = nil
	r.store.t.reviews[review.ID] = stored
	return nil
}

func (r *Reviews) ListApprovedByProduct(ctx context.Context, productID uuid.UUID) ([]domain.Review, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := []domain.Review{}
	for _, review := range r.store.t.reviews {
		if review.ProductID != productID || !review.IsApproved || review.DeletedAt != nil {
			continue
		}
		if u, ok := r.store.t.users[review.UserID]; ok && u.DeletedAt == nil {
			review.User = &domain.UserSummary{ID: u.ID, Name: u.Name}
		}
		out = append(out, review)
	}
	slices.SortFunc(out, func(a, b domain.Review) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}
