package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	// OrderStatusPending is the documented initial state. The checkout path
	// creates orders directly into PREPARING after the payment simulation
	// succeeds, so PENDING is reachable only through administrative updates.
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusPreparing      OrderStatus = "PREPARING"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// trackingSequence is the non-cancelled status progression used for the
// 4-step tracking display.
var trackingSequence = []OrderStatus{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusOutForDelivery,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Progress maps a status to its fractional position in the tracking
// sequence: 0, 1/3, 2/3, 1. CANCELLED yields 0 and is a distinct terminal
// branch, never a point on the 4-step bar.
func (s OrderStatus) Progress() float64 {
	for i, step := range trackingSequence {
		if s == step {
			return float64(i) / float64(len(trackingSequence)-1)
		}
	}
	return 0
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

type Order struct {
	ID           uuid.UUID
	UserID       int64
	CreatedAt    time.Time
	DeliveryDate string
	Status       OrderStatus
	Total        decimal.Decimal // snapshot of PricingSummary.Total at creation
}

// OrderLine is an immutable snapshot of a cart line at the moment the order
// was placed. Later catalog edits never change it.
type OrderLine struct {
	ID           int64
	OrderID      uuid.UUID
	ProductID    int64
	ProductName  string
	ProductPrice decimal.Decimal
	ImageName    string
	Quantity     int
	Message      string
}
