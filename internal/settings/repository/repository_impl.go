package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affiliate/internal/settings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*domain.Settings, error) {
	var settings domain.Settings
	err := db.WithContext(ctx).Raw(
		`SELECT org_id, enabled, commission_rate, cookie_days, min_payout, payout_day,
		        auto_approve, terms_url, updated_at
		 FROM affiliate_program_settings WHERE org_id = ?`,
		orgID,
	).Scan(&settings).Error
	if err != nil {
		return nil, err
	}
	if settings.OrgID == 0 {
		return nil, nil
	}
	return &settings, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, settings *domain.Settings) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"enabled", "commission_rate", "cookie_days", "min_payout",
			"payout_day", "auto_approve", "terms_url", "updated_at",
		}),
	}).Create(settings).Error
}
