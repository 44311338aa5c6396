package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status      Status
	AffiliateID snowflake.ID
}

// Totals are payout sums per status group for one affiliate.
type Totals struct {
	Reserved decimal.Decimal
	Paid     decimal.Decimal
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payout *Payout) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Payout, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]Payout, int64, error)
	// UpdateStatus persists payout's status fields when the stored status is
	// one of from. It reports false when no row matched.
	UpdateStatus(ctx context.Context, db *gorm.DB, payout *Payout, from ...Status) (bool, error)
	Totals(ctx context.Context, db *gorm.DB, orgID, affiliateID snowflake.ID) (Totals, error)
}
