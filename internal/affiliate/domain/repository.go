package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status Status
	Search string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, affiliate *Affiliate) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Affiliate, error)
	// FindByIDForUpdate row-locks the affiliate for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Affiliate, error)
	FindByReferralCode(ctx context.Context, db *gorm.DB, orgID snowflake.ID, code string) (*Affiliate, error)
	ExistsByEmail(ctx context.Context, db *gorm.DB, orgID snowflake.ID, email string) (bool, error)
	ExistsByReferralCode(ctx context.Context, db *gorm.DB, orgID snowflake.ID, code string) (bool, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]Affiliate, int64, error)
	Update(ctx context.Context, db *gorm.DB, affiliate *Affiliate) error

	IncrementClicks(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error
	// ApplyApprovedConversion adds one order and its revenue and commission to the lifetime totals.
	ApplyApprovedConversion(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, revenue, commission decimal.Decimal) error
}
