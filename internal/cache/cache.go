package cache

import (
	"context"
	"errors"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/domain"
)

// CartCache holds per-user cart snapshots so repeated reads (the app
// re-prices the cart on every change) skip the database.
type CartCache interface {
	Get(ctx context.Context, userID int64) ([]domain.CartLine, error)
	Set(ctx context.Context, userID int64, lines []domain.CartLine) error
	Delete(ctx context.Context, userID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
