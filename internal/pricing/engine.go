package pricing

import (
	"strconv"
	"strings"
	"time"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

const seniorAge = 50

var (
	seniorRate = decimal.NewFromFloat(0.50)
	promoRate  = decimal.NewFromFloat(0.10)
	maxRate    = decimal.NewFromInt(1)
)

// Engine computes pricing summaries. It is pure over its inputs and safe for
// concurrent use; the clock is injectable so birthday and age rules can be
// tested on a fixed date.
type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// ComputeSummary prices a cart for the given user. A nil user gets no
// discount. Rule order: the student-birthday rule short-circuits everything,
// otherwise the senior and promo rates stack and are clamped to [0, 1].
func (e *Engine) ComputeSummary(lines []domain.CartLine, user *domain.UserProfile) domain.PricingSummary {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.ProductPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if !subtotal.IsPositive() {
		return domain.PricingSummary{
			Subtotal: subtotal,
			Discount: decimal.Zero,
			Total:    decimal.Zero,
		}
	}

	if user != nil && user.IsEligibleStudent && e.isBirthdayToday(user.Birthdate) {
		return domain.PricingSummary{
			Subtotal: subtotal,
			Discount: subtotal,
			Total:    decimal.Zero,
		}
	}

	rate := decimal.Zero
	if user != nil {
		if user.HasAgeDiscount || e.age(user.Birthdate) >= seniorAge {
			rate = rate.Add(seniorRate)
		}
		if user.HasPromoCodeDiscount {
			rate = rate.Add(promoRate)
		}
	}

	rate = clampRate(rate)

	discount := subtotal.Mul(rate)
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return domain.PricingSummary{
		Subtotal: subtotal,
		Discount: discount,
		Total:    total,
	}
}

// clampRate keeps an accumulated discount rate inside [0, 1]. The current
// rules sum to at most 0.60, the clamp is a safety invariant.
func clampRate(rate decimal.Decimal) decimal.Decimal {
	if rate.GreaterThan(maxRate) {
		return maxRate
	}
	if rate.IsNegative() {
		return decimal.Zero
	}
	return rate
}

// parseBirthdate splits a "DD-MM-YYYY" string. Malformed input means the
// date-based rules simply do not apply, so no error is returned.
func parseBirthdate(birthdate string) (day, month, year int, ok bool) {
	parts := strings.Split(birthdate, "-")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}

	day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, 0, false
	}
	month, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, 0, false
	}
	year, err = strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return 0, 0, 0, false
	}

	if day < 1 || day > 31 || month < 1 || month > 12 || year < 1 {
		return 0, 0, 0, false
	}

	return day, month, year, true
}

func (e *Engine) isBirthdayToday(birthdate string) bool {
	day, month, _, ok := parseBirthdate(birthdate)
	if !ok {
		return false
	}

	now := e.now()
	return now.Day() == day && now.Month() == time.Month(month)
}

// age computes full years from the birthdate to today. The year difference
// is decremented when today's day-of-year has not reached the birthday's
// day-of-year in the current year, which keeps leap years and month
// boundaries correct.
func (e *Engine) age(birthdate string) int {
	day, month, year, ok := parseBirthdate(birthdate)
	if !ok {
		return 0
	}

	now := e.now()
	years := now.Year() - year

	birthdayThisYear := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location())
	if now.YearDay() < birthdayThisYear.YearDay() {
		years--
	}

	if years < 0 {
		return 0
	}
	return years
}
