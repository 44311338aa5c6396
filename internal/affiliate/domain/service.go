package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
)

type CreateAffiliateRequest struct {
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Phone          *string          `json:"phone"`
	Document       *string          `json:"document"`
	ReferralCode   *string          `json:"referralCode"`
	CommissionRate *decimal.Decimal `json:"commissionRate"`
	PixKey         *string          `json:"pixKey"`
	Notes          *string          `json:"notes"`
}

// UpdateAffiliateRequest backs PATCH; nil fields are left unchanged.
// Email and referral code are immutable.
type UpdateAffiliateRequest struct {
	Status         *Status          `json:"status"`
	Name           *string          `json:"name"`
	Phone          *string          `json:"phone"`
	Document       *string          `json:"document"`
	CommissionRate *decimal.Decimal `json:"commissionRate"`
	PixKey         *string          `json:"pixKey"`
	Notes          *string          `json:"notes"`
}

type ListAffiliateRequest struct {
	pagination.Pagination
	Status string
	Search string
}

type Service interface {
	Create(ctx context.Context, req CreateAffiliateRequest) (Affiliate, error)
	Get(ctx context.Context, id string) (Affiliate, error)
	List(ctx context.Context, req ListAffiliateRequest) (pagination.Page[Affiliate], error)
	UpdateStatus(ctx context.Context, id string, status Status) (Affiliate, error)
	Update(ctx context.Context, id string, req UpdateAffiliateRequest) (Affiliate, error)
}

// Validation errors.
var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrEmailTaken          = errors.New("email_taken")
	ErrInvalidReferralCode = errors.New("invalid_referral_code")
	ErrInvalidCommission   = errors.New("invalid_commission_rate")
	ErrInvalidStatus       = errors.New("invalid_status")
)

var ErrNotFound = errors.New("affiliate_not_found")

// Conflict errors.
var (
	ErrReferralCodeTaken = errors.New("referral_code_taken")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrInactive          = errors.New("affiliate_inactive")
)
