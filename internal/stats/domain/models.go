package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stats is a point-in-time rollup of an org's affiliate program.
type Stats struct {
	ActiveAffiliates  int64           `json:"activeAffiliates"`
	PendingAffiliates int64           `json:"pendingAffiliates"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	TotalConversions  int64           `json:"totalConversions"`
	TotalClicks       int64           `json:"totalClicks"`
	ConversionRate    decimal.Decimal `json:"conversionRate"`
	PendingCommission decimal.Decimal `json:"pendingCommission"`
	PaidCommission    decimal.Decimal `json:"paidCommission"`
	GeneratedAt       time.Time       `json:"generatedAt"`
}

var hundred = decimal.NewFromInt(100)

// ConversionRate is conversions per hundred clicks rounded to two places,
// or zero when there are no clicks.
func ConversionRate(conversions, clicks int64) decimal.Decimal {
	if clicks <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(conversions).
		Mul(hundred).
		Div(decimal.NewFromInt(clicks)).
		Round(2)
}
