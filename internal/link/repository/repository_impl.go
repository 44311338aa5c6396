package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affiliate/internal/link/domain"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const linkColumns = `id, org_id, affiliate_id, slug, destination_url, utm_source, utm_medium, utm_campaign,
	total_clicks, total_conversions, active, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, link *domain.Link) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO affiliate_links (`+linkColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?)`,
		link.ID,
		link.OrgID,
		link.AffiliateID,
		link.Slug,
		link.DestinationURL,
		link.UTMSource,
		link.UTMMedium,
		link.UTMCampaign,
		link.Active,
		link.CreatedAt,
		link.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Link, error) {
	var link domain.Link
	err := db.WithContext(ctx).Raw(
		`SELECT `+linkColumns+` FROM affiliate_links WHERE org_id = ? AND id = ?`,
		orgID, id,
	).Scan(&link).Error
	if err != nil {
		return nil, err
	}
	if link.ID == 0 {
		return nil, nil
	}
	return &link, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, orgID snowflake.ID, slug string) (*domain.Link, error) {
	var link domain.Link
	err := db.WithContext(ctx).Raw(
		`SELECT `+linkColumns+` FROM affiliate_links WHERE org_id = ? AND slug = ?`,
		orgID, strings.ToLower(slug),
	).Scan(&link).Error
	if err != nil {
		return nil, err
	}
	if link.ID == 0 {
		return nil, nil
	}
	return &link, nil
}

func (r *repo) ExistsBySlug(ctx context.Context, db *gorm.DB, orgID snowflake.ID, slug string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM affiliate_links WHERE org_id = ? AND slug = ?`,
		orgID, strings.ToLower(slug),
	).Scan(&count).Error
	return count > 0, err
}

func (r *repo) CountByAffiliate(ctx context.Context, db *gorm.DB, orgID, affiliateID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM affiliate_links WHERE org_id = ? AND affiliate_id = ?`,
		orgID, affiliateID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]domain.Link, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Link{}).Where("org_id = ?", orgID)
	if filter.AffiliateID != 0 {
		stmt = stmt.Where("affiliate_id = ?", filter.AffiliateID)
	}
	stmt = stmt.Session(&gorm.Session{})

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var links []domain.Link
	err := stmt.Order("created_at desc, id desc").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&links).Error
	if err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, link *domain.Link) error {
	return db.WithContext(ctx).Exec(
		`UPDATE affiliate_links SET active = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		link.Active, link.UpdatedAt, link.OrgID, link.ID,
	).Error
}

func (r *repo) IncrementClicks(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE affiliate_links SET total_clicks = total_clicks + 1 WHERE org_id = ? AND id = ?`,
		orgID, id,
	).Error
}

func (r *repo) IncrementConversions(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE affiliate_links SET total_conversions = total_conversions + 1 WHERE org_id = ? AND id = ?`,
		orgID, id,
	).Error
}

func (r *repo) InsertClick(ctx context.Context, db *gorm.DB, click *domain.Click) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO affiliate_clicks (id, org_id, link_id, affiliate_id, visitor_hash, referrer, clicked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		click.ID,
		click.OrgID,
		click.LinkID,
		click.AffiliateID,
		click.VisitorHash,
		click.Referrer,
		click.ClickedAt,
	).Error
}
