package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/affiliate/internal/stats/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Totals(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (domain.Totals, error) {
	var affiliates struct {
		Active      int64
		Pending     int64
		Revenue     decimal.NullDecimal
		Conversions int64
		Clicks      int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(CASE WHEN status = 'ACTIVE' THEN 1 ELSE 0 END), 0) AS active,
			COALESCE(SUM(CASE WHEN status = 'PENDING' THEN 1 ELSE 0 END), 0) AS pending,
			SUM(total_revenue) AS revenue,
			COALESCE(SUM(total_orders), 0) AS conversions,
			COALESCE(SUM(total_clicks), 0) AS clicks
		 FROM affiliates
		 WHERE org_id = ?`,
		orgID,
	).Scan(&affiliates).Error
	if err != nil {
		return domain.Totals{}, err
	}

	approved, err := sum(ctx, db,
		`SELECT SUM(c.commission_amount)
		 FROM affiliate_conversions c
		 JOIN affiliates a ON a.id = c.affiliate_id AND a.org_id = c.org_id
		 WHERE c.org_id = ? AND c.status = 'APPROVED' AND a.status = 'ACTIVE'`,
		orgID,
	)
	if err != nil {
		return domain.Totals{}, err
	}
	allocated, err := sum(ctx, db,
		`SELECT SUM(p.amount)
		 FROM affiliate_payouts p
		 JOIN affiliates a ON a.id = p.affiliate_id AND a.org_id = p.org_id
		 WHERE p.org_id = ? AND a.status = 'ACTIVE'`,
		orgID,
	)
	if err != nil {
		return domain.Totals{}, err
	}
	paid, err := sum(ctx, db,
		`SELECT SUM(amount) FROM affiliate_payouts WHERE org_id = ? AND status = 'PAID'`,
		orgID,
	)
	if err != nil {
		return domain.Totals{}, err
	}

	return domain.Totals{
		ActiveAffiliates:  affiliates.Active,
		PendingAffiliates: affiliates.Pending,
		TotalRevenue:      orZero(affiliates.Revenue),
		TotalConversions:  affiliates.Conversions,
		TotalClicks:       affiliates.Clicks,
		ApprovedActive:    approved,
		AllocatedActive:   allocated,
		PaidCommission:    paid,
	}, nil
}

func (r *repo) ListOrgIDs(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT org_id FROM affiliates ORDER BY org_id`,
	).Scan(&ids).Error
	return ids, err
}

func sum(ctx context.Context, db *gorm.DB, query string, args ...any) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := db.WithContext(ctx).Raw(query, args...).Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return orZero(total), nil
}

func orZero(value decimal.NullDecimal) decimal.Decimal {
	if !value.Valid {
		return decimal.Zero
	}
	return value.Decimal.Round(2)
}
