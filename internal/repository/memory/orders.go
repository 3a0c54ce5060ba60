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

type Orders struct{ store *Store }

func NewOrders(store *Store) *Orders { return &Orders{store: store} }

var _ repository.OrderRepository = (*Orders)(nil)

func (o *Orders) Create(ctx context.Context, order *domain.Order) error {
	o.store.wlock(ctx)
	defer o.store.wunlock(ctx)
	for _, existing := range o.store.t.orders {
		if existing.OrderNumber == order.OrderNumber {
			return repository.ErrOrderNumberTaken
		}
	}
	stored := *order
	stored.Items, stored.User = nil, nil
	o.store.t.orders[order.ID] = stored
	return nil
}

func (o *Orders) AddItem(ctx context.Context, item *domain.OrderItem) error {
	o.store.wlock(ctx)
	defer o.store.wunlock(ctx)
	stored := *item
	stored.Product = nil
	o.store.t.items[item.ID] = stored
	return nil
}

func (o *Orders) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o.store.rlock(ctx)
	defer o.store.runlock(ctx)
	order, ok := o.store.t.orders[id]
	if !ok || order.DeletedAt != nil {
		return nil, repository.ErrOrderNotFound
	}
	return o.hydrate(order, true), nil
}

func (o *Orders) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	o.store.rlock(ctx)
	defer o.store.runlock(ctx)
	out := []*domain.Order{}
	for _, order := range o.store.t.orders {
		if order.UserID == userID && order.DeletedAt == nil {
			out = append(out, o.hydrate(order, true))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (o *Orders) List(ctx context.Context, status domain.OrderStatus, p repository.Pagination) ([]*domain.Order, int, error) {
	o.store.rlock(ctx)
	defer o.store.runlock(ctx)
	out := []*domain.Order{}
	for _, order := range o.store.t.orders {
		if order.DeletedAt != nil || (status != "" && order.Status != status) {
			continue
		}
		out = append(out, o.hydrate(order, false))
	}
	sortNewestFirst(out)
	return page(out, p.Page, p.Limit), len(out), nil
}

func (o *Orders) UpdateStatus(ctx context.Context, order *domain.Order) error {
	o.store.wlock(ctx)
	defer o.store.wunlock(ctx)
	current, ok := o.store.t.orders[order.ID]
	if !ok || current.DeletedAt != nil {
		return repository.ErrOrderNotFound
	}
	current.Status, current.PaymentStatus, current.TrackingNumber = order.Status, order.PaymentStatus, order.TrackingNumber
	current.UpdatedAt = o.store.Now()
	o.store.t.orders[order.ID] = current
	return nil
}

func (o *Orders) hydrate(order domain.Order, withItems bool) *domain.Order {
	if u, ok := o.store.t.users[order.UserID]; ok {
		order.User = &domain.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	if !withItems {
		return &order
	}
	order.Items = []domain.OrderItem{}
	for _, item := range o.store.t.items {
		if item.OrderID != order.ID {
			continue
		}
		if p, ok := o.store.t.products[item.ProductID]; ok {
			item.Product = &domain.ProductSummary{ID: p.ID, Name: p.Name, ImageURL: p.ImageURL, Price: p.Price}
		}
		order.Items = append(order.Items, item)
	}
	slices.SortFunc(order.Items, func(a, b domain.OrderItem) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.ID.String(), b.ID.String()))
	})
	return &order
}

func sortNewestFirst(orders []*domain.Order) {
	slices.SortFunc(orders, func(a, b *domain.Order) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), strings.Compare(a.ID.String(), b.ID.String()))
	})
}
