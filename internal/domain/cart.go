package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog snapshot a cart line is created from. Lines copy
// these fields at add-time and never re-read the catalog.
type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	ImageName string
}

// CartLine is one product + personalization message combination in a user's
// cart. At most one line exists per (user, product, normalized message).
type CartLine struct {
	ID           int64 // 0 until persisted
	UserID       int64
	ProductID    int64
	ProductName  string
	ProductPrice decimal.Decimal
	ImageName    string
	Quantity     int
	Message      string
	CreatedAt    time.Time
}

// NormalizeMessage returns the canonical form of a personalization message:
// surrounding whitespace trimmed, "no message" represented as the empty
// string, never as a distinct null value.
func NormalizeMessage(message string) string {
	return strings.TrimSpace(message)
}
