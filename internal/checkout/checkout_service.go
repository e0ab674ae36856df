package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrEmptyCart      = errors.New("cart is empty, nothing to checkout")
	ErrAccountBlocked = errors.New("account is blocked")
	ErrInvalidCard    = errors.New("card number is not valid")
)

// CartReader is the slice of the cart service checkout needs.
type CartReader interface {
	ListLines(ctx context.Context, userID int64) ([]domain.CartLine, error)
	Refresh(ctx context.Context, userID int64)
}

type UserReader interface {
	Get(ctx context.Context, id int64) (*domain.UserProfile, error)
}

type OrderCreator interface {
	Create(ctx context.Context, order *domain.Order, lines []domain.OrderLine) (uuid.UUID, error)
}

type Pricer interface {
	ComputeSummary(lines []domain.CartLine, user *domain.UserProfile) domain.PricingSummary
}

// CardDetails is what the payment form collects. Only the number is checked,
// and only for shape: the payment step is a simulation boundary, no
// processor is ever contacted.
type CardDetails struct {
	Number string
	Holder string
	Expiry string
	CVV    string
}

type Service struct {
	users  UserReader
	cart   CartReader
	pricer Pricer
	orders OrderCreator
}

func NewService(users UserReader, cart CartReader, pricer Pricer, orders OrderCreator) *Service {
	return &Service{
		users:  users,
		cart:   cart,
		pricer: pricer,
		orders: orders,
	}
}

// Checkout prices the user's cart, runs the payment simulation and creates
// the order directly into PREPARING. The order header, its line snapshots
// and the cart clear commit as one transaction in the order service.
func (s *Service) Checkout(ctx context.Context, userID int64, card CardDetails, deliveryDate string) (uuid.UUID, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.IsBlocked {
		return uuid.Nil, ErrAccountBlocked
	}

	lines, err := s.cart.ListLines(ctx, userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(lines) == 0 {
		return uuid.Nil, ErrEmptyCart
	}

	if err := validateCard(card); err != nil {
		return uuid.Nil, err
	}

	summary := s.pricer.ComputeSummary(lines, user)

	order := &domain.Order{
		UserID:       userID,
		DeliveryDate: strings.TrimSpace(deliveryDate),
		Status:       domain.OrderStatusPreparing,
		Total:        summary.Total,
	}

	snapshots := make([]domain.OrderLine, 0, len(lines))
	for _, line := range lines {
		snapshots = append(snapshots, domain.OrderLine{
			ProductID:    line.ProductID,
			ProductName:  line.ProductName,
			ProductPrice: line.ProductPrice,
			ImageName:    line.ImageName,
			Quantity:     line.Quantity,
			Message:      line.Message,
		})
	}

	orderID, err := s.orders.Create(ctx, order, snapshots)
	if err != nil {
		return uuid.Nil, err
	}

	log.Printf("order %v created for user %d, total %s", orderID, userID, summary.Total)

	// cart rows were cleared inside the order transaction; refresh cache
	// and watchers so readers see the empty cart
	s.cart.Refresh(ctx, userID)

	return orderID, nil
}

// validateCard accepts any 13-19 digit number, spaces and dashes allowed.
func validateCard(card CardDetails) error {
	number := strings.ReplaceAll(card.Number, " ", "")
	number = strings.ReplaceAll(number, "-", "")

	if len(number) < 13 || len(number) > 19 {
		return ErrInvalidCard
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return ErrInvalidCard
		}
	}

	return nil
}
