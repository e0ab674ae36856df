package domain

// UserProfile carries the account fields the pricing engine reads. The
// account registry owns the full record; pricing only consumes it.
type UserProfile struct {
	ID        int64
	Name      string
	RUN       string
	Email     string
	Birthdate string // "DD-MM-YYYY"

	HasAgeDiscount       bool
	HasPromoCodeDiscount bool
	IsEligibleStudent    bool
	IsBlocked            bool
}
