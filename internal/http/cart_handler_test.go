package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/domain"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/pricing"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// --- Mocks ---

type CartServiceMock struct {
	lines []domain.CartLine
	err   error

	addedProduct  domain.Product
	addedQuantity int
	addedMessage  string
	setQuantity   int
	setMessage    string
	lastLineID    int64
	cleared       bool
	removed       bool
}

func (m *CartServiceMock) ListLines(context.Context, int64) ([]domain.CartLine, error) {
	return m.lines, m.err
}

func (m *CartServiceMock) AddToCart(_ context.Context, _ int64, product domain.Product, quantity int, message string) error {
	if m.err != nil {
		return m.err
	}
	m.addedProduct = product
	m.addedQuantity = quantity
	m.addedMessage = message
	return nil
}

func (m *CartServiceMock) SetQuantity(_ context.Context, _ int64, lineID int64, quantity int) error {
	m.lastLineID = lineID
	m.setQuantity = quantity
	return m.err
}

func (m *CartServiceMock) SetMessage(_ context.Context, _ int64, lineID int64, message string) error {
	m.lastLineID = lineID
	m.setMessage = message
	return m.err
}

func (m *CartServiceMock) RemoveLine(_ context.Context, _ int64, lineID int64) error {
	m.lastLineID = lineID
	m.removed = true
	return m.err
}

func (m *CartServiceMock) ClearCart(context.Context, int64) error {
	m.cleared = true
	return m.err
}

type UserGetterMock struct {
	user *domain.UserProfile
	err  error
}

func (m *UserGetterMock) Get(context.Context, int64) (*domain.UserProfile, error) {
	return m.user, m.err
}

// --- helpers ---

func withUser(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), "user_id", int64(1))
	return r.WithContext(ctx)
}

func withLineID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("line_id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func cartHandler(cart *CartServiceMock) *CartHandler {
	users := &UserGetterMock{user: &domain.UserProfile{ID: 1, Birthdate: "01-01-1990"}}
	return NewCartHandler(cart, users, pricing.NewEngine(), 5*time.Second)
}

func sampleLines() []domain.CartLine {
	return []domain.CartLine{
		{ID: 1, UserID: 1, ProductID: 7, ProductName: "Torta de chocolate",
			ProductPrice: decimal.NewFromInt(12990), Quantity: 1, Message: "feliz cumple"},
		{ID: 2, UserID: 1, ProductID: 9, ProductName: "Pie de limón",
			ProductPrice: decimal.NewFromInt(9990), Quantity: 1},
	}
}

// --- GetCart tests ---

func TestGetCart_Success(t *testing.T) {
	handler := cartHandler(&CartServiceMock{lines: sampleLines()})
	recorder := httptest.NewRecorder()
	request := withUser(httptest.NewRequest("GET", "/api/v1/cart", nil))

	handler.GetCart(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, recorder.Code)
	}

	var response CartResponseDTO
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(response.Items))
	}
	if response.Items[0].ProductName != "Torta de chocolate" {
		t.Errorf("expected 'Torta de chocolate', got '%s'", response.Items[0].ProductName)
	}
	if response.Summary.Subtotal != "22980" {
		t.Errorf("expected subtotal '22980', got '%s'", response.Summary.Subtotal)
	}
	if response.Summary.TotalFormatted != "$22.980" {
		t.Errorf("expected total_formatted '$22.980', got '%s'", response.Summary.TotalFormatted)
	}
}

func TestGetCart_EmptyCartIsArrayNotNull(t *testing.T) {
	handler := cartHandler(&CartServiceMock{})
	recorder := httptest.NewRecorder()
	request := withUser(httptest.NewRequest("GET", "/api/v1/cart", nil))

	handler.GetCart(recorder, request)

	body := recorder.Body.String()
	if strings.Contains(body, `"items":null`) {
		t.Error("expected empty JSON array [], got null")
	}
}

func TestGetCart_UnknownUserPricesAnonymous(t *testing.T) {
	users := &UserGetterMock{err: repository.ErrUserNotFound}
	handler := NewCartHandler(&CartServiceMock{lines: sampleLines()}, users, pricing.NewEngine(), 5*time.Second)

	recorder := httptest.NewRecorder()
	request := withUser(httptest.NewRequest("GET", "/api/v1/cart", nil))

	handler.GetCart(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, recorder.Code)
	}

	var response CartResponseDTO
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.Summary.Discount != "0" {
		t.Errorf("expected no discount for an anonymous cart, got '%s'", response.Summary.Discount)
	}
}

func TestGetCart_UserLookupFailure(t *testing.T) {
	users := &UserGetterMock{err: errors.New("database is locked")}
	handler := NewCartHandler(&CartServiceMock{lines: sampleLines()}, users, pricing.NewEngine(), 5*time.Second)

	recorder := httptest.NewRecorder()
	request := withUser(httptest.NewRequest("GET", "/api/v1/cart", nil))

	handler.GetCart(recorder, request)

	// a storage failure must not silently price the cart as anonymous
	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("expected %d, got %d", http.StatusInternalServerError, recorder.Code)
	}
}

func TestGetCart_Unauthorized(t *testing.T) {
	handler := cartHandler(&CartServiceMock{})
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/api/v1/cart", nil)
	// No user_id in context

	handler.GetCart(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected %d, got %d", http.StatusUnauthorized, recorder.Code)
	}
}

// --- AddItem tests ---

func TestAddItem_Success(t *testing.T) {
	mock := &CartServiceMock{}
	handler := cartHandler(mock)

	body := `{"product_id":7,"product_name":"Torta de chocolate","product_price":"12990","quantity":2,"message":"feliz cumple"}`
	recorder := httptest.NewRecorder()
	request := withUser(httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(body)))

	handler.AddItem(recorder, request)

	if recorder.Code != http.StatusCreated {
		t.Errorf("expected %d, got %d", http.StatusCreated, recorder.Code)
	}
	if mock.addedProduct.ID != 7 {
		t.Errorf("expected product id 7, got %d", mock.addedProduct.ID)
	}
	if !mock.addedProduct.Price.Equal(decimal.NewFromInt(12990)) {
		t.Errorf("expected price 12990, got %s", mock.addedProduct.Price)
	}
	if mock.addedQuantity != 2 {
		t.Errorf("expected quantity 2, got %d", mock.addedQuantity)
	}
	if mock.addedMessage != "feliz cumple" {
		t.Errorf("expected message 'feliz cumple', got '%s'", mock.addedMessage)
	}
}

func TestAddItem_Validation(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		expectedCode string
	}{
		{"invalid JSON", `{not json`, "invalid_request"},
		{"zero product id", `{"product_id":0,"product_price":"100","quantity":1}`, "invalid_product_id"},
		{"zero quantity", `{"product_id":1,"product_price":"100","quantity":0}`, "invalid_quantity"},
		{"quantity above limit", `{"product_id":1,"product_price":"100","quantity":100}`, "invalid_quantity"},
		{"unparseable price", `{"product_id":1,"product_price":"gratis","quantity":1}`, "invalid_price"},
		{"negative price", `{"product_id":1,"product_price":"-5","quantity":1}`, "invalid_price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := cartHandler(&CartServiceMock{})
			recorder := httptest.NewRecorder()
			request := withUser(httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(tt.body)))

			handler.AddItem(recorder, request)

			if recorder.Code != http.StatusBadRequest {
				t.Errorf("expected %d, got %d", http.StatusBadRequest, recorder.Code)
			}

			var response ErrorResponse
			json.NewDecoder(recorder.Body).Decode(&response)
			if response.Code != tt.expectedCode {
				t.Errorf("expected code '%s', got '%s'", tt.expectedCode, response.Code)
			}
		})
	}
}

// --- UpdateQuantity tests ---

func TestUpdateQuantity_Success(t *testing.T) {
	mock := &CartServiceMock{}
	handler := cartHandler(mock)

	recorder := httptest.NewRecorder()
	request := withLineID(withUser(httptest.NewRequest("PATCH", "/api/v1/cart/items/3", strings.NewReader(`{"quantity":5}`))), "3")

	handler.UpdateQuantity(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, recorder.Code)
	}
	if mock.lastLineID != 3 {
		t.Errorf("expected line id 3, got %d", mock.lastLineID)
	}
	if mock.setQuantity != 5 {
		t.Errorf("expected quantity 5, got %d", mock.setQuantity)
	}
}

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	mock := &CartServiceMock{}
	handler := cartHandler(mock)

	recorder := httptest.NewRecorder()
	request := withLineID(withUser(httptest.NewRequest("PATCH", "/api/v1/cart/items/3", strings.NewReader(`{"quantity":0}`))), "3")

	handler.UpdateQuantity(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, recorder.Code)
	}
	if mock.setQuantity != 0 {
		t.Errorf("expected quantity 0 passed through, got %d", mock.setQuantity)
	}
}

func TestUpdateQuantity_InvalidLineID(t *testing.T) {
	handler := cartHandler(&CartServiceMock{})

	recorder := httptest.NewRecorder()
	request := withLineID(withUser(httptest.NewRequest("PATCH", "/api/v1/cart/items/abc", strings.NewReader(`{"quantity":5}`))), "abc")

	handler.UpdateQuantity(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

// --- UpdateMessage tests ---

func TestUpdateMessage_Success(t *testing.T) {
	mock := &CartServiceMock{}
	handler := cartHandler(mock)

	recorder := httptest.NewRecorder()
	request := withLineID(withUser(httptest.NewRequest("PATCH", "/api/v1/cart/items/2/message", strings.NewReader(`{"message":"para Pedro"}`))), "2")

	handler.UpdateMessage(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, recorder.Code)
	}
	if mock.lastLineID != 2 {
		t.Errorf("expected line id 2, got %d", mock.lastLineID)
	}
	if mock.setMessage != "para Pedro" {
		t.Errorf("expected message 'para Pedro', got '%s'", mock.setMessage)
	}
}

// --- RemoveItem / ClearCart tests ---

func TestRemoveItem_Success(t *testing.T) {
	mock := &CartServiceMock{}
	handler := cartHandler(mock)

	recorder := httptest.NewRecorder()
	request := withLineID(withUser(httptest.NewRequest("DELETE", "/api/v1/cart/items/1", nil)), "1")

	handler.RemoveItem(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, recorder.Code)
	}
	if !mock.removed {
		t.Error("expected RemoveLine to be called")
	}
}

func TestClearCart_Success(t *testing.T) {
	mock := &CartServiceMock{}
	handler := cartHandler(mock)

	recorder := httptest.NewRecorder()
	request := withUser(httptest.NewRequest("DELETE", "/api/v1/cart", nil))

	handler.ClearCart(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, recorder.Code)
	}
	if !mock.cleared {
		t.Error("expected ClearCart to be called")
	}
}
