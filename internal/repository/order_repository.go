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
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderNumberTaken = errors.New("order number already in use")
)

// OrderRepository persists orders and their line items. Create and AddItem are
// meant to run inside one TxManager transaction.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	AddItem(ctx context.Context, item *domain.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	List(ctx context.Context, status domain.OrderStatus, page Pagination) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, order *domain.Order) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderSelect = `
	SELECT o.id, o.order_number, o.user_id, o.total_amount, o.status, o.payment_method,
	       o.payment_status, o.shipping_fee, o.shipping_address, o.city, o.state, o.postal_code,
	       o.country, o.phone, o.email, o.notes, o.tracking_number, o.created_at, o.updated_at,
	       u.id, u.name, u.email
	FROM orders o
	LEFT JOIN users u ON u.id = o.user_id
`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var (
		order                 domain.Order
		notes, tracking       sql.NullString
		ownerID               uuid.NullUUID
		ownerName, ownerEmail sql.NullString
	)
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.TotalAmount,
		&order.Status,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.ShippingFee,
		&order.ShippingAddress,
		&order.City,
		&order.State,
		&order.PostalCode,
		&order.Country,
		&order.Phone,
		&order.Email,
		&notes,
		&tracking,
		&order.CreatedAt,
		&order.UpdatedAt,
		&ownerID,
		&ownerName,
		&ownerEmail,
	)
	if err != nil {
		return nil, err
	}
	order.Notes, order.TrackingNumber = notes.String, tracking.String
	if ownerID.Valid {
		order.User = &domain.UserSummary{ID: ownerID.UUID, Name: ownerName.String, Email: ownerEmail.String}
	}
	return &order, nil
}

// Create inserts the order row
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, order_number, user_id, total_amount, status, payment_method,
			payment_status, shipping_fee, shipping_address, city, state, postal_code, country,
			phone, email, notes, tracking_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := database.Conn(ctx, r.db).ExecContext(
		ctx,
		query,
		order.ID,
		order.OrderNumber,
		order.UserID,
		order.TotalAmount,
		order.Status,
		order.PaymentMethod,
		order.PaymentStatus,
		order.ShippingFee,
		order.ShippingAddress,
		order.City,
		order.State,
		order.PostalCode,
		order.Country,
		order.Phone,
		order.Email,
		nullString(order.Notes),
		nullString(order.TrackingNumber),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "orders_order_number_key") {
			return ErrOrderNumberTaken
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// AddItem inserts one line of an order
func (r *orderRepository) AddItem(ctx context.Context, item *domain.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price, name, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := database.Conn(ctx, r.db).ExecContext(
		ctx,
		query,
		item.ID,
		item.OrderID,
		item.ProductID,
		item.Quantity,
		item.Price,
		item.Name,
		nullString(item.ImageURL),
	)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}

	return nil
}

// FindByID retrieves a live order with its items and owner
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	conn := database.Conn(ctx, r.db)

	order, err := scanOrder(conn.QueryRowContext(ctx, orderSelect+` WHERE o.id = $1 AND o.deleted_at IS NULL`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	if err := r.attachItems(ctx, conn, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// ListByUser returns the user's orders newest first, each with its items
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	conn := database.Conn(ctx, r.db)

	rows, err := conn.QueryContext(ctx, orderSelect+`
		WHERE o.user_id = $1 AND o.deleted_at IS NULL
		ORDER BY o.created_at DESC, o.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user orders: %w", err)
	}
	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, conn, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// List pages through all orders newest first, optionally filtered by status
func (r *orderRepository) List(ctx context.Context, status domain.OrderStatus, page Pagination) ([]*domain.Order, int, error) {
	where := &whereBuilder{}
	where.addRaw("o.deleted_at IS NULL")
	if status != "" {
		where.add("o.status = $%d", status)
	}

	conn := database.Conn(ctx, r.db)

	var total int
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders o "+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`%s %s ORDER BY o.created_at DESC, o.id LIMIT $%d OFFSET $%d`,
		orderSelect, where.String(), where.next(), where.next()+1)
	args := append(where.args, page.Limit, page.offset())

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	orders, err := scanOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// UpdateStatus writes the admin-managed fields of an order
func (r *orderRepository) UpdateStatus(ctx context.Context, order *domain.Order) error {
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE orders
		SET status = $2, payment_status = $3, tracking_number = $4
		WHERE id = $1 AND deleted_at IS NULL
	`, order.ID, order.Status, order.PaymentStatus, nullString(order.TrackingNumber))
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return expectOneRow(result, ErrOrderNotFound)
}

func scanOrders(rows *sql.Rows) ([]*domain.Order, error) {
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

// attachItems loads the items of all orders in one query. The product summary
// reflects the current product row, even when it has since been soft-deleted.
func (r *orderRepository) attachItems(ctx context.Context, conn database.DBTX, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		o.Items = []domain.OrderItem{}
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, oi.name, oi.image_url,
		       p.id, p.name, p.image_url, p.price
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1::uuid[])
		ORDER BY oi.name, oi.id
	`, uuidArray(ids))
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item                      domain.OrderItem
			imageURL                  sql.NullString
			productID                 uuid.NullUUID
			productName, productImage sql.NullString
			productPrice              decimal.NullDecimal
		)
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&item.Name,
			&imageURL,
			&productID,
			&productName,
			&productImage,
			&productPrice,
		); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		item.ImageURL = imageURL.String
		if productID.Valid {
			item.Product = &domain.ProductSummary{
				ID:       productID.UUID,
				Name:     productName.String,
				ImageURL: productImage.String,
				Price:    productPrice.Decimal,
			}
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}
	return nil
}
