package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/domain"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/pricing"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// CartService is the slice of the cart service the handler uses.
type CartService interface {
	ListLines(ctx context.Context, userID int64) ([]domain.CartLine, error)
	AddToCart(ctx context.Context, userID int64, product domain.Product, quantity int, message string) error
	SetQuantity(ctx context.Context, userID, lineID int64, quantity int) error
	SetMessage(ctx context.Context, userID, lineID int64, message string) error
	RemoveLine(ctx context.Context, userID, lineID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

type UserGetter interface {
	Get(ctx context.Context, id int64) (*domain.UserProfile, error)
}

type Pricer interface {
	ComputeSummary(lines []domain.CartLine, user *domain.UserProfile) domain.PricingSummary
}

type CartHandler struct {
	cart    CartService
	users   UserGetter
	pricer  Pricer
	timeout time.Duration
}

func NewCartHandler(cart CartService, users UserGetter, pricer Pricer, timeout time.Duration) *CartHandler {
	return &CartHandler{
		cart:    cart,
		users:   users,
		pricer:  pricer,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	ProductPrice string `json:"product_price"`
	ImageName    string `json:"image_name"`
	Quantity     int    `json:"quantity"`
	Message      string `json:"message"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type UpdateMessageRequestDTO struct {
	Message string `json:"message"`
}

type CartLineDTO struct {
	ID             int64  `json:"id"`
	ProductID      int64  `json:"product_id"`
	ProductName    string `json:"product_name"`
	Price          string `json:"price"`
	PriceFormatted string `json:"price_formatted"`
	ImageName      string `json:"image_name,omitempty"`
	Quantity       int    `json:"quantity"`
	Message        string `json:"message,omitempty"`
}

type SummaryDTO struct {
	Subtotal          string `json:"subtotal"`
	Discount          string `json:"discount"`
	Total             string `json:"total"`
	SubtotalFormatted string `json:"subtotal_formatted"`
	DiscountFormatted string `json:"discount_formatted"`
	TotalFormatted    string `json:"total_formatted"`
}

type CartResponseDTO struct {
	Items   []CartLineDTO `json:"items"`
	Summary SummaryDTO    `json:"summary"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	h.renderCart(ctx, w, userID, http.StatusOK)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	price, err := decimal.NewFromString(req.ProductPrice)
	if err != nil || price.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_price", "product_price must be a non-negative number")
		return
	}

	product := domain.Product{
		ID:        req.ProductID,
		Name:      req.ProductName,
		Price:     price,
		ImageName: req.ImageName,
	}

	if err := h.cart.AddToCart(ctx, userID, product, req.Quantity, req.Message); err != nil {
		handleServiceError(w, err)
		return
	}

	h.renderCart(ctx, w, userID, http.StatusCreated)
}

// PATCH /api/v1/cart/items/{line_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	lineID, ok := lineIDFromURL(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// zero removes the line, so only the upper bound is checked here
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	if err := h.cart.SetQuantity(ctx, userID, lineID, req.Quantity); err != nil {
		handleServiceError(w, err)
		return
	}

	h.renderCart(ctx, w, userID, http.StatusOK)
}

// PATCH /api/v1/cart/items/{line_id}/message
func (h *CartHandler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	lineID, ok := lineIDFromURL(w, r)
	if !ok {
		return
	}

	var req UpdateMessageRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.cart.SetMessage(ctx, userID, lineID, req.Message); err != nil {
		handleServiceError(w, err)
		return
	}

	h.renderCart(ctx, w, userID, http.StatusOK)
}

// DELETE /api/v1/cart/items/{line_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	lineID, ok := lineIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.cart.RemoveLine(ctx, userID, lineID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.renderCart(ctx, w, userID, http.StatusOK)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.cart.ClearCart(ctx, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.renderCart(ctx, w, userID, http.StatusOK)
}

// renderCart responds with the current cart and its priced summary. The
// discounts depend on the user profile, so an unknown user still gets the
// undiscounted summary.
func (h *CartHandler) renderCart(ctx context.Context, w http.ResponseWriter, userID int64, status int) {
	lines, err := h.cart.ListLines(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	user, err := h.users.Get(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		user = nil // anonymous pricing, no discounts
	} else if err != nil {
		handleServiceError(w, err)
		return
	}

	summary := h.pricer.ComputeSummary(lines, user)

	items := make([]CartLineDTO, 0, len(lines))
	for _, line := range lines {
		items = append(items, CartLineDTO{
			ID:             line.ID,
			ProductID:      line.ProductID,
			ProductName:    line.ProductName,
			Price:          line.ProductPrice.String(),
			PriceFormatted: pricing.FormatCLP(line.ProductPrice),
			ImageName:      line.ImageName,
			Quantity:       line.Quantity,
			Message:        line.Message,
		})
	}

	respondJSON(w, status, CartResponseDTO{
		Items: items,
		Summary: SummaryDTO{
			Subtotal:          summary.Subtotal.String(),
			Discount:          summary.Discount.String(),
			Total:             summary.Total.String(),
			SubtotalFormatted: pricing.FormatCLP(summary.Subtotal),
			DiscountFormatted: pricing.FormatCLP(summary.Discount),
			TotalFormatted:    pricing.FormatCLP(summary.Total),
		},
	})
}

func lineIDFromURL(w http.ResponseWriter, r *http.Request) (int64, bool) {
	lineIDStr := chi.URLParam(r, "line_id")
	lineID, err := strconv.ParseInt(lineIDStr, 10, 64)
	if err != nil || lineID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_line_id", "line_id must be a positive integer")
		return 0, false
	}
	return lineID, true
}
