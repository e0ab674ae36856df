package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/checkout"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/domain"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type OrderService interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	Detail(ctx context.Context, id uuid.UUID) (*domain.Order, []domain.OrderLine, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
}

type CheckoutService interface {
	Checkout(ctx context.Context, userID int64, card checkout.CardDetails, deliveryDate string) (uuid.UUID, error)
}

type OrderHandler struct {
	orders   OrderService
	checkout CheckoutService
	timeout  time.Duration
}

func NewOrderHandler(orders OrderService, checkout CheckoutService, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		checkout: checkout,
		timeout:  timeout,
	}
}

type CheckoutRequestDTO struct {
	CardNumber   string `json:"card_number"`
	CardHolder   string `json:"card_holder"`
	CardExpiry   string `json:"card_expiry"`
	CardCVV      string `json:"card_cvv"`
	DeliveryDate string `json:"delivery_date"`
}

type CheckoutResponseDTO struct {
	OrderID string `json:"order_id"`
}

type OrderItemDTO struct {
	ProductID      int64  `json:"product_id"`
	ProductName    string `json:"product_name"`
	Price          string `json:"price"`
	PriceFormatted string `json:"price_formatted"`
	Quantity       int    `json:"quantity"`
	Message        string `json:"message,omitempty"`
}

type OrderResponseDTO struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	Progress       float64        `json:"progress"`
	Total          string         `json:"total"`
	TotalFormatted string         `json:"total_formatted"`
	DeliveryDate   string         `json:"delivery_date,omitempty"`
	CreatedAt      string         `json:"created_at"`
	Items          []OrderItemDTO `json:"items,omitempty"`
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

func convertOrder(o domain.Order) OrderResponseDTO {
	return OrderResponseDTO{
		ID:             o.ID.String(),
		Status:         o.Status.String(),
		Progress:       o.Status.Progress(),
		Total:          o.Total.String(),
		TotalFormatted: pricing.FormatCLP(o.Total),
		DeliveryDate:   o.DeliveryDate,
		CreatedAt:      o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func convertOrderLines(lines []domain.OrderLine) []OrderItemDTO {
	items := make([]OrderItemDTO, 0, len(lines))
	for _, line := range lines {
		items = append(items, OrderItemDTO{
			ProductID:      line.ProductID,
			ProductName:    line.ProductName,
			Price:          line.ProductPrice.String(),
			PriceFormatted: pricing.FormatCLP(line.ProductPrice),
			Quantity:       line.Quantity,
			Message:        line.Message,
		})
	}
	return items
}

// POST /api/v1/checkout
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	orderID, err := h.checkout.Checkout(ctx, userID, checkout.CardDetails{
		Number: req.CardNumber,
		Holder: req.CardHolder,
		Expiry: req.CardExpiry,
		CVV:    req.CardCVV,
	}, req.DeliveryDate)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{OrderID: orderID.String()})
}

// GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.orders.ListByUser(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}

	respondJSON(w, http.StatusOK, dtos)
}

// GET /api/v1/orders/{order_id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	order, lines, err := h.orders.Detail(ctx, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// don't leak other users' orders
	if order.UserID != userID {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}

	dto := convertOrder(*order)
	dto.Items = convertOrderLines(lines)
	respondJSON(w, http.StatusOK, dto)
}

// GET /api/v1/admin/orders
func (h *OrderHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.ListAll(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}

	respondJSON(w, http.StatusOK, dtos)
}

// PATCH /api/v1/admin/orders/{order_id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.orders.UpdateStatus(ctx, orderID, domain.OrderStatus(req.Status)); err != nil {
		handleServiceError(w, err)
		return
	}

	order, lines, err := h.orders.Detail(ctx, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	dto := convertOrder(*order)
	dto.Items = convertOrderLines(lines)
	respondJSON(w, http.StatusOK, dto)
}
