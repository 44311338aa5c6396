package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/affiliate/internal/affiliate/domain"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, affiliate *domain.Affiliate) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO affiliates (
			id, org_id, name, email, phone, document, referral_code, commission_rate, pix_key,
			status, total_clicks, total_orders, total_revenue, total_commission, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0, 0, ?, ?, ?)`,
		affiliate.ID,
		affiliate.OrgID,
		affiliate.Name,
		affiliate.Email,
		affiliate.Phone,
		affiliate.Document,
		affiliate.ReferralCode,
		affiliate.CommissionRate,
		affiliate.PixKey,
		affiliate.Status,
		affiliate.Notes,
		affiliate.CreatedAt,
		affiliate.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Affiliate, error) {
	return first(db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Affiliate, error) {
	return first(db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND id = ?", orgID, id))
}

func (r *repo) FindByReferralCode(ctx context.Context, db *gorm.DB, orgID snowflake.ID, code string) (*domain.Affiliate, error) {
	return first(db.WithContext(ctx).Where("org_id = ? AND referral_code = ?", orgID, strings.ToUpper(code)))
}

func first(stmt *gorm.DB) (*domain.Affiliate, error) {
	var affiliates []domain.Affiliate
	if err := stmt.Limit(1).Find(&affiliates).Error; err != nil {
		return nil, err
	}
	if len(affiliates) == 0 {
		return nil, nil
	}
	return &affiliates[0], nil
}

func (r *repo) ExistsByEmail(ctx context.Context, db *gorm.DB, orgID snowflake.ID, email string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM affiliates WHERE org_id = ? AND email = ?`,
		orgID, strings.ToLower(email),
	).Scan(&count).Error
	return count > 0, err
}

func (r *repo) ExistsByReferralCode(ctx context.Context, db *gorm.DB, orgID snowflake.ID, code string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM affiliates WHERE org_id = ? AND referral_code = ?`,
		orgID, strings.ToUpper(code),
	).Scan(&count).Error
	return count > 0, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]domain.Affiliate, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Affiliate{}).Where("org_id = ?", orgID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		stmt = stmt.Where("(LOWER(name) LIKE ? OR email LIKE ? OR LOWER(referral_code) LIKE ?)", like, like, like)
	}
	stmt = stmt.Session(&gorm.Session{})

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var affiliates []domain.Affiliate
	err := stmt.Order("created_at desc, id desc").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&affiliates).Error
	if err != nil {
		return nil, 0, err
	}
	return affiliates, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, affiliate *domain.Affiliate) error {
	return db.WithContext(ctx).Exec(
		`UPDATE affiliates SET name = ?, phone = ?, document = ?, commission_rate = ?, pix_key = ?,
			status = ?, notes = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		affiliate.Name,
		affiliate.Phone,
		affiliate.Document,
		affiliate.CommissionRate,
		affiliate.PixKey,
		affiliate.Status,
		affiliate.Notes,
		affiliate.UpdatedAt,
		affiliate.OrgID,
		affiliate.ID,
	).Error
}

func (r *repo) IncrementClicks(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE affiliates SET total_clicks = total_clicks + 1 WHERE org_id = ? AND id = ?`,
		orgID, id,
	).Error
}

func (r *repo) ApplyApprovedConversion(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, revenue, commission decimal.Decimal) error {
	return db.WithContext(ctx).Exec(
		`UPDATE affiliates
		 SET total_orders = total_orders + 1,
		     total_revenue = total_revenue + ?,
		     total_commission = total_commission + ?
		 WHERE org_id = ? AND id = ?`,
		revenue, commission, orgID, id,
	).Error
}
