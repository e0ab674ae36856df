package cart

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/cache"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/domain"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/repository"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product id must be positive")
)

// Service maintains each user's cart as a deduplicated set of lines keyed by
// (product, normalized message). AddToCart and SetMessage perform
// check-then-act lookups, so all mutations for one user are serialized
// behind a per-user lock; different users proceed in parallel.
type Service struct {
	repo  repository.CartRepository
	cache cache.CartCache
	sfg   singleflight.Group // Prevents cache stampede

	mu        sync.Mutex
	userLocks map[int64]*sync.Mutex

	watchMu   sync.Mutex
	watchers  map[int64]map[int]chan []domain.CartLine
	nextWatch int
}

func NewService(repo repository.CartRepository, cache cache.CartCache) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		userLocks: make(map[int64]*sync.Mutex),
		watchers:  make(map[int64]map[int]chan []domain.CartLine),
	}
}

// ListLines returns the user's cart snapshot, newest line last. Reads go
// through the cache; concurrent misses for the same user collapse into one
// repository query.
func (s *Service) ListLines(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	v, err, _ := s.sfg.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		lines, err := s.cache.Get(ctx, userID)
		if err == nil {
			return lines, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		lines, err = s.repo.ListLines(ctx, userID)
		if err != nil {
			return nil, err
		}

		go func() {
			if err := s.cache.Set(context.Background(), userID, lines); err != nil {
				log.Printf("cache set error: %v", err)
			}
		}()

		return lines, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]domain.CartLine), nil
}

// AddToCart adds quantity of a product with a personalization message. When
// a line for the same (product, normalized message) already exists the
// quantities are summed into it; a duplicate line is never created.
func (s *Service) AddToCart(ctx context.Context, userID int64, product domain.Product, quantity int, message string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if product.ID <= 0 {
		return ErrInvalidProduct
	}

	unlock := s.lockUser(userID)
	defer unlock()

	normalized := domain.NormalizeMessage(message)

	existing, err := s.repo.FindLine(ctx, userID, product.ID, normalized)
	switch {
	case err == nil:
		existing.Quantity += quantity
		existing.Message = normalized
		if err := s.repo.UpdateLine(ctx, existing); err != nil {
			log.Printf("repo update line error: %v", err)
			return err
		}
	case errors.Is(err, repository.ErrCartLineNotFound):
		line := &domain.CartLine{
			UserID:       userID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductPrice: product.Price,
			ImageName:    product.ImageName,
			Quantity:     quantity,
			Message:      normalized,
		}
		if err := s.repo.InsertLine(ctx, line); err != nil {
			log.Printf("repo insert line error: %v", err)
			return err
		}
	default:
		return err
	}

	s.Refresh(ctx, userID)
	return nil
}

// SetQuantity replaces a line's quantity outright. A non-positive quantity
// removes the line. A line owned by another user is left untouched: the
// ownership check fails closed as a silent no-op.
func (s *Service) SetQuantity(ctx context.Context, userID, lineID int64, quantity int) error {
	unlock := s.lockUser(userID)
	defer unlock()

	line, err := s.repo.GetLine(ctx, lineID)
	if errors.Is(err, repository.ErrCartLineNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if line.UserID != userID {
		return nil
	}

	if quantity <= 0 {
		if err := s.repo.DeleteLine(ctx, lineID); err != nil {
			log.Printf("repo delete line error: %v", err)
			return err
		}
	} else {
		line.Quantity = quantity
		if err := s.repo.UpdateLine(ctx, line); err != nil {
			log.Printf("repo update line error: %v", err)
			return err
		}
	}

	s.Refresh(ctx, userID)
	return nil
}

// SetMessage rewrites a line's personalization message. Because the message
// is part of the dedup key this is a re-keying operation: when another line
// already holds the new key the quantities merge into it (sum-preserving)
// and the source line is deleted.
func (s *Service) SetMessage(ctx context.Context, userID, lineID int64, newMessage string) error {
	unlock := s.lockUser(userID)
	defer unlock()

	line, err := s.repo.GetLine(ctx, lineID)
	if errors.Is(err, repository.ErrCartLineNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if line.UserID != userID {
		return nil
	}

	normalized := domain.NormalizeMessage(newMessage)
	if normalized == line.Message {
		return nil
	}

	collision, err := s.repo.FindLine(ctx, userID, line.ProductID, normalized)
	switch {
	case err == nil && collision.ID != line.ID:
		collision.Quantity += line.Quantity
		if err := s.repo.UpdateLine(ctx, collision); err != nil {
			log.Printf("repo merge line error: %v", err)
			return err
		}
		if err := s.repo.DeleteLine(ctx, line.ID); err != nil {
			log.Printf("repo delete merged line error: %v", err)
			return err
		}
	case err == nil:
		// same line, nothing to re-key
		return nil
	case errors.Is(err, repository.ErrCartLineNotFound):
		line.Message = normalized
		if err := s.repo.UpdateLine(ctx, line); err != nil {
			log.Printf("repo update line error: %v", err)
			return err
		}
	default:
		return err
	}

	s.Refresh(ctx, userID)
	return nil
}

func (s *Service) RemoveLine(ctx context.Context, userID, lineID int64) error {
	unlock := s.lockUser(userID)
	defer unlock()

	line, err := s.repo.GetLine(ctx, lineID)
	if errors.Is(err, repository.ErrCartLineNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if line.UserID != userID {
		return nil
	}

	if err := s.repo.DeleteLine(ctx, lineID); err != nil {
		log.Printf("repo delete line error: %v", err)
		return err
	}

	s.Refresh(ctx, userID)
	return nil
}

func (s *Service) ClearCart(ctx context.Context, userID int64) error {
	unlock := s.lockUser(userID)
	defer unlock()

	if err := s.repo.ClearCart(ctx, userID); err != nil {
		log.Printf("repo clear cart error: %v", err)
		return err
	}

	s.Refresh(ctx, userID)
	return nil
}

// WatchLines returns a stream of cart snapshots for the user: the current
// snapshot first, then a fresh one after every mutation. Slow consumers only
// ever see the latest snapshot. The channel closes when ctx ends.
func (s *Service) WatchLines(ctx context.Context, userID int64) <-chan []domain.CartLine {
	ch := make(chan []domain.CartLine, 1)

	s.watchMu.Lock()
	id := s.nextWatch
	s.nextWatch++
	if s.watchers[userID] == nil {
		s.watchers[userID] = make(map[int]chan []domain.CartLine)
	}
	s.watchers[userID][id] = ch
	s.watchMu.Unlock()

	if lines, err := s.ListLines(ctx, userID); err == nil {
		// a concurrent Refresh may already have delivered a fresher
		// snapshot; never block the caller on a full buffer
		select {
		case ch <- lines:
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

// Refresh invalidates the cached snapshot and pushes the current state to
// watchers. Checkout calls this after order creation clears the cart rows.
func (s *Service) Refresh(ctx context.Context, userID int64) {
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache delete error: %v", err)
	}

	lines, err := s.repo.ListLines(ctx, userID)
	if err != nil {
		log.Printf("watch snapshot error: %v", err)
		return
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, ch := range s.watchers[userID] {
		// latest-wins: drop the undelivered snapshot, keep the new one
		select {
		case ch <- lines:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- lines:
			default:
			}
		}
	}
}

func (s *Service) lockUser(userID int64) func() {
	s.mu.Lock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
