package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UpdateSettingsRequest carries a full replacement; nil fields keep the current value.
type UpdateSettingsRequest struct {
	Enabled        *bool            `json:"enabled"`
	CommissionRate *decimal.Decimal `json:"commissionRate"`
	CookieDays     *int             `json:"cookieDays"`
	MinPayout      *decimal.Decimal `json:"minPayout"`
	PayoutDay      *int             `json:"payoutDay"`
	AutoApprove    *bool            `json:"autoApprove"`
	TermsURL       *string          `json:"termsUrl"`
}

type Service interface {
	// Get returns the stored settings of the org in ctx, or the process defaults.
	Get(ctx context.Context) (Settings, error)
	// GetTx reads the settings through tx so callers see the same snapshot
	// as the rest of their transaction.
	GetTx(ctx context.Context, tx *gorm.DB) (Settings, error)
	Update(ctx context.Context, req UpdateSettingsRequest) (Settings, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidCommission   = errors.New("invalid_commission_rate")
	ErrInvalidCookieDays   = errors.New("invalid_cookie_days")
	ErrInvalidMinPayout    = errors.New("invalid_min_payout")
	ErrInvalidPayoutDay    = errors.New("invalid_payout_day")
	ErrInvalidTermsURL     = errors.New("invalid_terms_url")
)
