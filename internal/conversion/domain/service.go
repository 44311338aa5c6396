package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
)

type RecordConversionRequest struct {
	AffiliateID string          `json:"affiliateId"`
	LinkID      *string         `json:"linkId"`
	OrderID     string          `json:"orderId"`
	OrderAmount decimal.Decimal `json:"orderAmount"`
}

// RecordOrderRequest is sent by the storefront when an order completes.
type RecordOrderRequest struct {
	OrderID          string          `json:"orderId"`
	OrderAmount      decimal.Decimal `json:"orderAmount"`
	AttributionToken string          `json:"attributionToken"`
	ReferralCode     string          `json:"referralCode"`
	OrderedAt        *time.Time      `json:"orderedAt"`
}

type ListConversionRequest struct {
	pagination.Pagination
	Status      string
	AffiliateID string
}

type Service interface {
	Record(ctx context.Context, req RecordConversionRequest) (Conversion, error)
	RecordOrder(ctx context.Context, req RecordOrderRequest) (OrderResult, error)
	Approve(ctx context.Context, id string) (Conversion, error)
	Reject(ctx context.Context, id string, reason string) (Conversion, error)
	Get(ctx context.Context, id string) (Conversion, error)
	List(ctx context.Context, req ListConversionRequest) (pagination.Page[Conversion], error)
}

// Validation errors.
var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidAffiliate    = errors.New("invalid_affiliate_id")
	ErrInvalidLink         = errors.New("invalid_link_id")
	ErrInvalidOrderID      = errors.New("invalid_order_id")
	ErrInvalidOrderAmount  = errors.New("invalid_order_amount")
	ErrInvalidReason       = errors.New("invalid_reason")
	ErrInvalidStatus       = errors.New("invalid_status")
)

var ErrNotFound = errors.New("conversion_not_found")

// Conflict errors.
var (
	ErrDuplicateOrder = errors.New("duplicate_order")
	ErrNotPending     = errors.New("conversion_not_pending")
)
