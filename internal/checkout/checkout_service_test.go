package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/domain"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/pricing"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUsers struct {
	user *domain.UserProfile
	err  error
}

func (m *mockUsers) Get(context.Context, int64) (*domain.UserProfile, error) {
	return m.user, m.err
}

type mockCart struct {
	lines     []domain.CartLine
	err       error
	refreshed int
}

func (m *mockCart) ListLines(context.Context, int64) ([]domain.CartLine, error) {
	return m.lines, m.err
}

func (m *mockCart) Refresh(context.Context, int64) {
	m.refreshed++
}

type mockOrders struct {
	order *domain.Order
	lines []domain.OrderLine
	err   error
}

func (m *mockOrders) Create(_ context.Context, order *domain.Order, lines []domain.OrderLine) (uuid.UUID, error) {
	if m.err != nil {
		return uuid.Nil, m.err
	}
	order.ID = uuid.New()
	m.order = order
	m.lines = lines
	return order.ID, nil
}

func validCard() CardDetails {
	return CardDetails{Number: "4111 1111 1111 1111", Holder: "Amanda Soto", Expiry: "12/27", CVV: "123"}
}

func cartLines() []domain.CartLine {
	return []domain.CartLine{
		{ID: 1, UserID: 1, ProductID: 7, ProductName: "Torta de chocolate",
			ProductPrice: decimal.NewFromInt(12990), Quantity: 1, Message: "feliz cumple"},
		{ID: 2, UserID: 1, ProductID: 9, ProductName: "Pie de limón",
			ProductPrice: decimal.NewFromInt(9990), Quantity: 2},
		{ID: 3, UserID: 1, ProductID: 4, ProductName: "Brazo de reina",
			ProductPrice: decimal.NewFromInt(7990), Quantity: 1},
	}
}

func testService(users *mockUsers, cart *mockCart, orders *mockOrders) *Service {
	engine := pricing.NewEngineWithClock(func() time.Time {
		return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	})
	return NewService(users, cart, engine, orders)
}

func TestCheckout(t *testing.T) {
	users := &mockUsers{user: &domain.UserProfile{ID: 1, Birthdate: "01-01-1990"}}
	cart := &mockCart{lines: cartLines()}
	orders := &mockOrders{}
	svc := testService(users, cart, orders)

	orderID, err := svc.Checkout(context.Background(), 1, validCard(), "24-12-2025")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, orderID)

	require.NotNil(t, orders.order)
	assert.Equal(t, domain.OrderStatusPreparing, orders.order.Status)
	assert.Equal(t, "24-12-2025", orders.order.DeliveryDate)
	// 12990 + 2*9990 + 7990, no discounts for this user
	assert.True(t, decimal.NewFromInt(40960).Equal(orders.order.Total), "got %s", orders.order.Total)

	require.Len(t, orders.lines, 3)
	assert.Equal(t, "feliz cumple", orders.lines[0].Message)
	assert.Equal(t, 2, orders.lines[1].Quantity)

	assert.Equal(t, 1, cart.refreshed, "cart readers must see the cleared cart")
}

func TestCheckout_DiscountedTotalIsSnapshotted(t *testing.T) {
	users := &mockUsers{user: &domain.UserProfile{
		ID:                   1,
		Birthdate:            "10-03-1965", // 60 years old at the fixed clock
		HasPromoCodeDiscount: true,
	}}
	cart := &mockCart{lines: []domain.CartLine{
		{ProductID: 7, ProductPrice: decimal.NewFromInt(10000), Quantity: 1},
	}}
	orders := &mockOrders{}
	svc := testService(users, cart, orders)

	_, err := svc.Checkout(context.Background(), 1, validCard(), "")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4000).Equal(orders.order.Total), "got %s", orders.order.Total)
}

func TestCheckout_EmptyCart(t *testing.T) {
	users := &mockUsers{user: &domain.UserProfile{ID: 1}}
	svc := testService(users, &mockCart{}, &mockOrders{})

	_, err := svc.Checkout(context.Background(), 1, validCard(), "")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_BlockedUser(t *testing.T) {
	users := &mockUsers{user: &domain.UserProfile{ID: 1, IsBlocked: true}}
	cart := &mockCart{lines: cartLines()}
	svc := testService(users, cart, &mockOrders{})

	_, err := svc.Checkout(context.Background(), 1, validCard(), "")
	assert.ErrorIs(t, err, ErrAccountBlocked)
}

func TestCheckout_UnknownUser(t *testing.T) {
	users := &mockUsers{err: repository.ErrUserNotFound}
	svc := testService(users, &mockCart{lines: cartLines()}, &mockOrders{})

	_, err := svc.Checkout(context.Background(), 1, validCard(), "")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestValidateCard(t *testing.T) {
	tests := []struct {
		name    string
		number  string
		wantErr bool
	}{
		{"sixteen digits", "4111111111111111", false},
		{"spaces allowed", "4111 1111 1111 1111", false},
		{"dashes allowed", "4111-1111-1111-1111", false},
		{"thirteen digits", "4111111111111", false},
		{"nineteen digits", "4111111111111111111", false},
		{"too short", "411111111111", true},
		{"too long", "41111111111111111111", true},
		{"letters", "4111a11111111111", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCard(CardDetails{Number: tt.number})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCard)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
