package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/affiliate/internal/payout/domain"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Payout) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO affiliate_payouts (
			id, org_id, affiliate_id, amount, method, reference, notes, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.OrgID,
		p.AffiliateID,
		p.Amount,
		p.Method,
		p.Reference,
		p.Notes,
		p.Status,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Payout, error) {
	var items []domain.Payout
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

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]domain.Payout, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Payout{}).Where("org_id = ?", orgID)
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

	var items []domain.Payout
	err := stmt.Order("created_at desc, id desc").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, p *domain.Payout, from ...domain.Status) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE affiliate_payouts
		 SET status = ?, processing_at = ?, paid_at = ?, updated_at = ?
		 WHERE org_id = ? AND id = ? AND status IN ?`,
		p.Status,
		p.ProcessingAt,
		p.PaidAt,
		p.UpdatedAt,
		p.OrgID,
		p.ID,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Totals(ctx context.Context, db *gorm.DB, orgID, affiliateID snowflake.ID) (domain.Totals, error) {
	var rows []struct {
		Status string
		Total  decimal.NullDecimal
	}
	err := db.WithContext(ctx).Raw(
		`SELECT status, SUM(amount) AS total FROM affiliate_payouts
		 WHERE org_id = ? AND affiliate_id = ?
		 GROUP BY status`,
		orgID, affiliateID,
	).Scan(&rows).Error
	if err != nil {
		return domain.Totals{}, err
	}

	totals := domain.Totals{Reserved: decimal.Zero, Paid: decimal.Zero}
	for _, row := range rows {
		if !row.Total.Valid {
			continue
		}
		switch domain.Status(row.Status) {
		case domain.StatusPending, domain.StatusProcessing:
			totals.Reserved = totals.Reserved.Add(row.Total.Decimal)
		case domain.StatusPaid:
			totals.Paid = totals.Paid.Add(row.Total.Decimal)
		}
	}
	totals.Reserved = totals.Reserved.Round(2)
	totals.Paid = totals.Paid.Round(2)
	return totals, nil
}
