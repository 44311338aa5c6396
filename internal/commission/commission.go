// Package commission computes the commission snapshot stored on a conversion.
package commission

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid_order_amount")
	ErrInvalidRate   = errors.New("invalid_commission_rate")
)

var hundred = decimal.NewFromInt(100)

// Result is the rate and amount pinned onto a conversion at creation time.
type Result struct {
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// IsMoney reports whether amount is positive and carries no fraction of a cent.
func IsMoney(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Truncate(2))
}

// Compute applies affiliateRate, or defaultRate when the affiliate has none,
// to orderAmount. The amount is rounded half-up to two decimal places.
func Compute(affiliateRate decimal.NullDecimal, defaultRate, orderAmount decimal.Decimal) (Result, error) {
	if !IsMoney(orderAmount) {
		return Result{}, ErrInvalidAmount
	}

	rate := defaultRate
	if affiliateRate.Valid {
		rate = affiliateRate.Decimal
	}
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return Result{}, ErrInvalidRate
	}

	// decimal.Round rounds half away from zero, which is half-up for
	// the non-negative amounts handled here.
	amount := orderAmount.Mul(rate).Div(hundred).Round(2)
	return Result{Rate: rate, Amount: amount}, nil
}
