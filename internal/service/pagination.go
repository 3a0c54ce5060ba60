package service

import "storefront/internal/repository"

const (
	defaultPageSize = 10
	maxPageSize     = 100
	// maxPage keeps (page-1)*limit far from integer overflow.
	maxPage = 1_000_000
)

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items       []T
	TotalItems  int
	TotalPages  int
	CurrentPage int
}

func normalizePage(page, limit int) repository.Pagination {
	page = min(max(page, 1), maxPage)
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return repository.Pagination{Page: page, Limit: limit}
}

func newPage[T any](items []T, total int, p repository.Pagination) *Page[T] {
	return &Page[T]{
		Items:       items,
		TotalItems:  total,
		TotalPages:  (total + p.Limit - 1) / p.Limit,
		CurrentPage: p.Page,
	}
}
