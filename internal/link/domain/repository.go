package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	AffiliateID snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, link *Link) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Link, error)
	FindBySlug(ctx context.Context, db *gorm.DB, orgID snowflake.ID, slug string) (*Link, error)
	ExistsBySlug(ctx context.Context, db *gorm.DB, orgID snowflake.ID, slug string) (bool, error)
	CountByAffiliate(ctx context.Context, db *gorm.DB, orgID, affiliateID snowflake.ID) (int64, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]Link, int64, error)
	SetActive(ctx context.Context, db *gorm.DB, link *Link) error

	IncrementClicks(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error
	IncrementConversions(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error
	InsertClick(ctx context.Context, db *gorm.DB, click *Click) error
}
