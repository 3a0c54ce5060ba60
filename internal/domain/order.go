package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentCreditCard     PaymentMethod = "credit_card"
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentCreditCard, PaymentBankTransfer:
		return true
	}
	return false
}

// DefaultCountry is used when checkout omits the country.
const DefaultCountry = "Pakistan"

// Order is a placed checkout. Items and User are populated by reads that join them.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderNumber     string          `json:"orderNumber" db:"order_number"`
	UserID          uuid.UUID       `json:"userId" db:"user_id"`
	TotalAmount     decimal.Decimal `json:"totalAmount" db:"total_amount"`
	Status          OrderStatus     `json:"status" db:"status"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" db:"payment_method"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" db:"payment_status"`
	ShippingFee     decimal.Decimal `json:"shippingFee" db:"shipping_fee"`
	ShippingAddress string          `json:"shippingAddress" db:"shipping_address"`
	City            string          `json:"city" db:"city"`
	State           string          `json:"state" db:"state"`
	PostalCode      string          `json:"postalCode" db:"postal_code"`
	Country         string          `json:"country" db:"country"`
	Phone           string          `json:"phone" db:"phone"`
	Email           string          `json:"email" db:"email"`
	Notes           string          `json:"notes,omitempty" db:"notes"`
	TrackingNumber  string          `json:"trackingNumber,omitempty" db:"tracking_number"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
	DeletedAt       *time.Time      `json:"-" db:"deleted_at"`

	Items []OrderItem  `json:"items,omitempty"`
	User  *UserSummary `json:"user,omitempty"`
}

// OrderItem is one purchased line. Name, Price and ImageURL are copied from the
// product at checkout and never change afterwards.
type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"orderId" db:"order_id"`
	ProductID uuid.UUID       `json:"productId" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Name      string          `json:"name" db:"name"`
	ImageURL  string          `json:"imageUrl,omitempty" db:"image_url"`

	Product *ProductSummary `json:"product,omitempty"`
}

// Subtotal is the line total at the snapshotted price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewOrderNumber formats an order number from the last six digits of the
// creation time in Unix milliseconds.
func NewOrderNumber(createdAt time.Time) string {
	return fmt.Sprintf("ORD-%06d", createdAt.UnixMilli()%1_000_000)
}
