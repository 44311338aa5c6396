package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
)

type CreatePayoutRequest struct {
	AffiliateID string          `json:"affiliateId"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Reference   *string         `json:"reference"`
	Notes       *string         `json:"notes"`
}

type ListPayoutRequest struct {
	pagination.Pagination
	Status      string
	AffiliateID string
}

type Service interface {
	Create(ctx context.Context, req CreatePayoutRequest) (Payout, error)
	Advance(ctx context.Context, id string) (Payout, error)
	MarkPaid(ctx context.Context, id string) (Payout, error)
	Get(ctx context.Context, id string) (Payout, error)
	List(ctx context.Context, req ListPayoutRequest) (pagination.Page[Payout], error)
	Balance(ctx context.Context, affiliateID string) (Balance, error)
	Statement(ctx context.Context, id string) (Statement, error)
}

// Validation errors.
var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidAffiliate    = errors.New("invalid_affiliate_id")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidMethod       = errors.New("invalid_method")
	ErrBelowMinPayout      = errors.New("below_min_payout")
	ErrInvalidStatus       = errors.New("invalid_status")
)

var ErrNotFound = errors.New("payout_not_found")

// Conflict errors.
var (
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrAffiliateRejected   = errors.New("affiliate_rejected")
	ErrInvalidTransition   = errors.New("invalid_payout_transition")
	ErrAlreadyPaid         = errors.New("payout_already_paid")
)
