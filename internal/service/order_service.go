package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/database"
	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartItem is one requested line of a checkout.
type CartItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// CheckoutInput is the checkout form. Client-sent prices are never part of it.
type CheckoutInput struct {
	Items           []CartItem
	ShippingAddress string
	City            string
	State           string
	PostalCode      string
	Country         string
	Phone           string
	Email           string
	Notes           string
	PaymentMethod   string
	ShippingFee     decimal.Decimal
}

// StatusUpdate is a partial admin edit of an order; nil fields keep their value.
type StatusUpdate struct {
	Status         *string
	PaymentStatus  *string
	TrackingNumber *string
}

// OrderService defines checkout and order management
type OrderService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, in CheckoutInput) (*domain.Order, error)
	GetOrderByID(ctx context.Context, id, requesterID uuid.UUID) (*domain.Order, error)
	GetUserOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) (*domain.Order, error)
	GetAllOrders(ctx context.Context, page, limit int, status string) (*Page[*domain.Order], error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	tx          database.TxManager
	logger      *zap.Logger
	now         func() time.Time
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	tx database.TxManager,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		tx:          tx,
		logger:      logger,
		now:         time.Now,
	}
}

var errOrderMissing = detail(ErrNotFound, "Order not found")

// CreateOrder prices the cart from stored product data and writes the order
// with all of its items in one transaction.
func (s *orderService) CreateOrder(ctx context.Context, userID uuid.UUID, in CheckoutInput) (*domain.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := checkShipping(in); err != nil {
		return nil, err
	}

	paymentMethod := domain.PaymentCashOnDelivery
	if in.PaymentMethod != "" {
		paymentMethod = domain.PaymentMethod(in.PaymentMethod)
		if !paymentMethod.Valid() {
			return nil, detail(ErrValidation, "Invalid payment method: %s", in.PaymentMethod)
		}
	}
	if in.ShippingFee.IsNegative() {
		return nil, detail(ErrValidation, "Shipping fee must not be negative")
	}

	ids := make([]uuid.UUID, 0, len(in.Items))
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return nil, detail(ErrValidation, "Quantity for product %s must be at least 1", item.ProductID)
		}
		ids = append(ids, item.ProductID)
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[uuid.UUID]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	now := s.now()
	order := &domain.Order{
		ID:              uuid.New(),
		OrderNumber:     domain.NewOrderNumber(now),
		UserID:          userID,
		Status:          domain.OrderStatusPending,
		PaymentMethod:   paymentMethod,
		PaymentStatus:   domain.PaymentStatusPending,
		ShippingFee:     in.ShippingFee,
		ShippingAddress: in.ShippingAddress,
		City:            in.City,
		State:           in.State,
		PostalCode:      in.PostalCode,
		Country:         in.Country,
		Phone:           in.Phone,
		Email:           in.Email,
		Notes:           in.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if order.Country == "" {
		order.Country = domain.DefaultCountry
	}

	total := decimal.Zero
	order.Items = make([]domain.OrderItem, 0, len(in.Items))
	for _, item := range in.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, detail(ErrProductNotFound, "Product with ID %s not found", item.ProductID)
		}
		if !product.InStock {
			return nil, detail(ErrOutOfStock, "Product %s is out of stock", product.Name)
		}

		line := domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Price:     product.Price,
			Name:      product.Name,
			ImageURL:  product.ImageURL,
		}
		total = total.Add(line.Subtotal())
		order.Items = append(order.Items, line)
	}
	order.TotalAmount = total.Add(order.ShippingFee)

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.orderRepo.Create(ctx, order); err != nil {
			return err
		}
		for i := range order.Items {
			if err := s.orderRepo.AddItem(ctx, &order.Items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", userID.String()),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)

	return order, nil
}

// checkShipping reports the first missing shipping field
func checkShipping(in CheckoutInput) error {
	fields := []struct {
		name  string
		value string
	}{
		{"shippingAddress", in.ShippingAddress},
		{"city", in.City},
		{"state", in.State},
		{"postalCode", in.PostalCode},
		{"phone", in.Phone},
		{"email", in.Email},
	}
	for _, f := range fields {
		if f.value == "" {
			return detail(ErrMissingField, "%s is required", f.name)
		}
	}
	return nil
}

// GetOrderByID returns the order to its owner or to an admin
func (s *orderService) GetOrderByID(ctx context.Context, id, requesterID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, errOrderMissing
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order.UserID != requesterID {
		requester, err := s.userRepo.FindByID(ctx, requesterID)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to get requester: %w", err)
		}
		if requester == nil || !requester.IsAdmin() {
			return nil, detail(ErrForbidden, "Not authorized to view this order")
		}
	}

	return order, nil
}

func (s *orderService) GetUserOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, errOrderMissing
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if update.Status != nil && *update.Status != "" {
		status := domain.OrderStatus(*update.Status)
		if !status.Valid() {
			return nil, detail(ErrValidation, "Invalid order status: %s", *update.Status)
		}
		order.Status = status
	}
	if update.PaymentStatus != nil && *update.PaymentStatus != "" {
		paymentStatus := domain.PaymentStatus(*update.PaymentStatus)
		if !paymentStatus.Valid() {
			return nil, detail(ErrValidation, "Invalid payment status: %s", *update.PaymentStatus)
		}
		order.PaymentStatus = paymentStatus
	}
	if update.TrackingNumber != nil && *update.TrackingNumber != "" {
		order.TrackingNumber = *update.TrackingNumber
	}

	if err := s.orderRepo.UpdateStatus(ctx, order); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, errOrderMissing
		}
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	s.logger.Info("Order updated",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(order.Status)),
		zap.String("payment_status", string(order.PaymentStatus)),
	)

	return order, nil
}

func (s *orderService) GetAllOrders(ctx context.Context, page, limit int, status string) (*Page[*domain.Order], error) {
	if status != "" && !domain.OrderStatus(status).Valid() {
		return nil, detail(ErrValidation, "Invalid order status: %s", status)
	}

	p := normalizePage(page, limit)
	orders, total, err := s.orderRepo.List(ctx, domain.OrderStatus(status), p)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return newPage(orders, total, p), nil
}
