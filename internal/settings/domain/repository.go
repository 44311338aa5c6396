package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*Settings, error)
	Upsert(ctx context.Context, db *gorm.DB, settings *Settings) error
}
