package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/affiliate/internal/conversion/domain"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.Conversion) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO affiliate_conversions (
			id, org_id, affiliate_id, link_id, order_id, order_amount, commission_rate, commission_amount,
			status, source, attributed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.OrgID,
		c.AffiliateID,
		c.LinkID,
		c.OrderID,
		c.OrderAmount,
		c.CommissionRate,
		c.CommissionAmount,
		c.Status,
		c.Source,
		c.AttributedAt,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Conversion, error) {
	var items []domain.Conversion
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) ExistsByOrderID(ctx context.Context, db *gorm.DB, orgID snowflake.ID, orderID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM affiliate_conversions WHERE org_id = ? AND order_id = ?`,
		orgID, orderID,
	).Scan(&count).Error
	return count > 0, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]domain.Conversion, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Conversion{}).Where("org_id = ?", orgID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.AffiliateID != 0 {
		stmt = stmt.Where("affiliate_id = ?", filter.AffiliateID)
	}
	stmt = stmt.Session(&gorm.Session{})

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.Conversion
	err := stmt.Order("created_at desc, id desc").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, c *domain.Conversion) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE affiliate_conversions
		 SET status = ?, rejection_reason = ?, approved_at = ?, rejected_at = ?, updated_at = ?
		 WHERE org_id = ? AND id = ? AND status = ?`,
		c.Status,
		c.RejectionReason,
		c.ApprovedAt,
		c.RejectedAt,
		c.UpdatedAt,
		c.OrgID,
		c.ID,
		domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) SumApprovedCommission(ctx context.Context, db *gorm.DB, orgID, affiliateID snowflake.ID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := db.WithContext(ctx).Raw(
		`SELECT SUM(commission_amount) FROM affiliate_conversions
		 WHERE org_id = ? AND affiliate_id = ? AND status = ?`,
		orgID, affiliateID, domain.StatusApproved,
	).Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal.Round(2), nil
}
