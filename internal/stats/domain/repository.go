package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Totals are the raw aggregates behind Stats.
type Totals struct {
	ActiveAffiliates  int64
	PendingAffiliates int64
	TotalRevenue      decimal.Decimal
	TotalConversions  int64
	TotalClicks       int64
	ApprovedActive    decimal.Decimal
	AllocatedActive   decimal.Decimal
	PaidCommission    decimal.Decimal
}

type Repository interface {
	Totals(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (Totals, error)
	// ListOrgIDs returns every org that has at least one affiliate.
	ListOrgIDs(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error)
}
