package orders

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/domain"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/repository"
	"github.com/google/uuid"
)

var ErrInvalidStatus = errors.New("unknown order status")

// Service owns the order lifecycle: atomic creation from a cart snapshot,
// status updates and read projections.
type Service struct {
	repo repository.OrderRepository

	watchMu   sync.Mutex
	watchers  map[int64]map[int]chan []domain.Order
	nextWatch int
}

func NewService(repo repository.OrderRepository) *Service {
	return &Service{
		repo:     repo,
		watchers: make(map[int64]map[int]chan []domain.Order),
	}
}

// Create persists the order header, its line snapshots and the cart clear in
// one transaction and returns the generated order id. Orders from the
// checkout path arrive already in PREPARING; an empty status falls back to
// the documented initial state.
func (s *Service) Create(ctx context.Context, order *domain.Order, lines []domain.OrderLine) (uuid.UUID, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}

	if err := s.repo.CreateOrder(ctx, order, lines); err != nil {
		log.Printf("repo create order error: %v", err)
		return uuid.Nil, err
	}

	s.notify(ctx, order.UserID)
	return order.ID, nil
}

// UpdateStatus overwrites the status of an existing order. Any transition is
// accepted, including backwards ones; only the status value itself is
// validated. See DESIGN.md for why the permissive behavior is kept.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	if err := s.repo.UpdateOrderStatus(ctx, id, status); err != nil {
		return err
	}

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		log.Printf("order lookup after status update error: %v", err)
		return nil
	}

	s.notify(ctx, order.UserID)
	return nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.repo.ListAllOrders(ctx)
}

// Detail returns the order header with its immutable line snapshots.
func (s *Service) Detail(ctx context.Context, id uuid.UUID) (*domain.Order, []domain.OrderLine, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	lines, err := s.repo.ListOrderLines(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return order, lines, nil
}

// WatchUser streams the user's order list: the current snapshot first, then
// a fresh one whenever an order is created or changes status. Slow consumers
// only ever see the latest snapshot.
func (s *Service) WatchUser(ctx context.Context, userID int64) <-chan []domain.Order {
	ch := make(chan []domain.Order, 1)

	s.watchMu.Lock()
	id := s.nextWatch
	s.nextWatch++
	if s.watchers[userID] == nil {
		s.watchers[userID] = make(map[int]chan []domain.Order)
	}
	s.watchers[userID][id] = ch
	s.watchMu.Unlock()

	if orders, err := s.repo.ListOrdersByUser(ctx, userID); err == nil {
		// a concurrent notify may already have delivered a fresher
		// snapshot; never block the caller on a full buffer
		select {
		case ch <- orders:
		default:
		}
	} else {
		log.Printf("watch initial snapshot error: %v", err)
	}

	go func() {
		<-ctx.Done()
		s.watchMu.Lock()
		delete(s.watchers[userID], id)
		s.watchMu.Unlock()
		close(ch)
	}()

	return ch
}

func (s *Service) notify(ctx context.Context, userID int64) {
	s.watchMu.Lock()
	hasWatchers := len(s.watchers[userID]) > 0
	s.watchMu.Unlock()
	if !hasWatchers {
		return
	}

	orders, err := s.repo.ListOrdersByUser(ctx, userID)
	if err != nil {
		log.Printf("watch snapshot error: %v", err)
		return
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, ch := range s.watchers[userID] {
		select {
		case ch <- orders:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- orders:
			default:
			}
		}
	}
}
