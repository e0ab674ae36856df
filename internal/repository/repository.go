package repository

import (
	"context"
	"errors"
	"time"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrCartLineNotFound = errors.New("cart line not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrRUNTaken         = errors.New("an account with this RUN already exists")
	ErrEmailTaken       = errors.New("an account with this email already exists")
)

// CartRepository defines the cart line storage operations the services need.
type CartRepository interface {
	GetLine(ctx context.Context, id int64) (*domain.CartLine, error)
	FindLine(ctx context.Context, userID, productID int64, message string) (*domain.CartLine, error)
	ListLines(ctx context.Context, userID int64) ([]domain.CartLine, error)
	InsertLine(ctx context.Context, line *domain.CartLine) error
	UpdateLine(ctx context.Context, line *domain.CartLine) error
	DeleteLine(ctx context.Context, id int64) error
	ClearCart(ctx context.Context, userID int64) error
}

// OrderRepository defines order storage. CreateOrder must persist the order
// header, its line snapshots, and the cart clear in one transaction.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order, lines []domain.OrderLine) error
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	ListAllOrders(ctx context.Context) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
}

// UserRepository stores account profiles together with their credential
// record (see internal/auth for the record format).
type UserRepository interface {
	InsertUser(ctx context.Context, user *domain.UserProfile, credential string) error
	GetUser(ctx context.Context, id int64) (*domain.UserProfile, error)
	GetUserByLogin(ctx context.Context, login string) (*domain.UserProfile, string, error)
}

// OutboxEvent is a lifecycle event recorded in the same transaction as the
// state change it describes, published asynchronously by the outbox poller.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)

type OutboxRepository interface {
	GetUnpublishedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id int64) error
}
