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

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, conversion *Conversion) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Conversion, error)
	ExistsByOrderID(ctx context.Context, db *gorm.DB, orgID snowflake.ID, orderID string) (bool, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]Conversion, int64, error)
	// UpdateStatus moves a PENDING conversion to its terminal status. It
	// reports false when the row was no longer PENDING.
	UpdateStatus(ctx context.Context, db *gorm.DB, conversion *Conversion) (bool, error)
	SumApprovedCommission(ctx context.Context, db *gorm.DB, orgID, affiliateID snowflake.ID) (decimal.Decimal, error)
}
