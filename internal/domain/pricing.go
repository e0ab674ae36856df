package domain

import "github.com/shopspring/decimal"

// PricingSummary is the derived result of pricing a cart. It is never
// persisted; it is recomputed on every pricing request.
type PricingSummary struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}
