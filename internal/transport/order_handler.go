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

// CartItemRequest is one requested line. Any price sent by the client is ignored.
type CartItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=1"`
}

// CreateOrderRequest represents the checkout payload. Shipping fields are
// checked by the order service so the first missing one is reported by name.
type CreateOrderRequest struct {
	Items           []CartItemRequest `json:"items" validate:"dive"`
	ShippingAddress string            `json:"shippingAddress"`
	City            string            `json:"city"`
	State           string            `json:"state"`
	PostalCode      string            `json:"postalCode"`
	Country         string            `json:"country"`
	Phone           string            `json:"phone"`
	Email           string            `json:"email" validate:"omitempty,email"`
	Notes           string            `json:"notes"`
	PaymentMethod   string            `json:"paymentMethod"`
	ShippingFee     decimal.Decimal   `json:"shippingFee"`
}

// UpdateOrderStatusRequest is a partial admin edit of an order
type UpdateOrderStatusRequest struct {
	Status         *string `json:"status"`
	PaymentStatus  *string `json:"paymentStatus"`
	TrackingNumber *string `json:"trackingNumber" validate:"omitnil,max=100"`
}

// OrderHandler handles HTTP requests for checkout and order management
type OrderHandler struct {
	orderService service.OrderService
	errors       errorResponder
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger, production bool) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		errors:       errorResponder{logger: logger, production: production},
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, guards Guards) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(guards.Authenticate)

		r.Post("/", h.CreateOrder)
		r.Get("/my-orders", h.GetMyOrders)
		r.Get("/{id}", h.GetOrder)

		r.Group(func(r chi.Router) {
			r.Use(guards.RequireAdmin)
			r.Get("/", h.ListOrders)
			r.Put("/{id}/status", h.UpdateStatus)
		})
	})
}

// CreateOrder handles checkout of the caller's cart
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	items := make([]service.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.CartItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.orderService.CreateOrder(r.Context(), userID, service.CheckoutInput{
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		City:            req.City,
		State:           req.State,
		PostalCode:      req.PostalCode,
		Country:         req.Country,
		Phone:           req.Phone,
		Email:           req.Email,
		Notes:           req.Notes,
		PaymentMethod:   req.PaymentMethod,
		ShippingFee:     req.ShippingFee,
	})
	if err != nil {
		h.errors.respond(w, r, err, "Failed to create order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "Order created successfully",
		"order":   order,
	})
}

// GetMyOrders returns the caller's orders, newest first
func (h *OrderHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.orderService.GetUserOrders(r.Context(), userID)
	if err != nil {
		h.errors.respond(w, r, err, "Failed to fetch orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orEmpty(orders))
}

// GetOrder returns one order to its owner or an admin
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "Order not found")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrderByID(r.Context(), id, userID)
	if err != nil {
		h.errors.respond(w, r, err, "Failed to fetch order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Order not found")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	order, err := h.orderService.UpdateOrderStatus(r.Context(), id, service.StatusUpdate{
		Status:         req.Status,
		PaymentStatus:  req.PaymentStatus,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		h.errors.respond(w, r, err, "Failed to update order")
		return
	}

	h.logger.Info("Order updated",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(order.Status)),
		zap.String("payment_status", string(order.PaymentStatus)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Order updated successfully",
		"order":   order,
	})
}

// ListOrders returns a page of all orders, optionally filtered by ?status=
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, err := h.orderService.GetAllOrders(r.Context(), queryInt(r, "page"), queryInt(r, "limit"), r.URL.Query().Get("status"))
	if err != nil {
		h.errors.respond(w, r, err, "Failed to fetch orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK,
		listResponse("orders", orEmpty(page.Items), page.TotalItems, page.TotalPages, page.CurrentPage))
}
