package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	affiliatedomain "github.com/smallbiznis/affiliate/internal/affiliate/domain"
	"github.com/smallbiznis/affiliate/internal/attribution"
	auditdomain "github.com/smallbiznis/affiliate/internal/audit/domain"
	"github.com/smallbiznis/affiliate/internal/clock"
	"github.com/smallbiznis/affiliate/internal/link/domain"
	"github.com/smallbiznis/affiliate/internal/observability/metrics"
	"github.com/smallbiznis/affiliate/internal/orgcontext"
	settingsdomain "github.com/smallbiznis/affiliate/internal/settings/domain"
	"github.com/smallbiznis/affiliate/pkg/db"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxSlugSequence = 1000

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Affiliates  affiliatedomain.Repository
	Settings    settingsdomain.Service
	Attribution *attribution.Engine
	Audit       auditdomain.Service
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	affiliates  affiliatedomain.Repository
	settings    settingsdomain.Service
	attribution *attribution.Engine
	audit       auditdomain.Service
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("link.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		affiliates:  p.Affiliates,
		settings:    p.Settings,
		attribution: p.Attribution,
		audit:       p.Audit,
		metrics:     p.Metrics,
	}
}

func (s *Service) CreateLink(ctx context.Context, req domain.CreateLinkRequest) (domain.Link, error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return domain.Link{}, domain.ErrInvalidOrganization
	}
	affiliateID, err := snowflake.ParseString(strings.TrimSpace(req.AffiliateID))
	if err != nil || affiliateID == 0 {
		return domain.Link{}, domain.ErrInvalidAffiliate
	}
	destination, ok := validDestination(req.DestinationURL)
	if !ok {
		return domain.Link{}, domain.ErrInvalidDestination
	}

	var explicitSlug string
	if req.Slug != nil && strings.TrimSpace(*req.Slug) != "" {
		explicitSlug = slug.Make(*req.Slug)
		if explicitSlug == "" {
			return domain.Link{}, domain.ErrInvalidSlug
		}
	}

	now := s.clock.Now()
	link := domain.Link{
		ID:             s.genID.Generate(),
		OrgID:          orgID,
		AffiliateID:    affiliateID,
		DestinationURL: destination,
		UTMSource:      trimmed(req.UTMSource),
		UTMMedium:      trimmed(req.UTMMedium),
		UTMCampaign:    trimmed(req.UTMCampaign),
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affiliate, err := s.affiliates.FindByID(ctx, tx, orgID, affiliateID)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return affiliatedomain.ErrNotFound
		}
		switch affiliate.Status {
		case affiliatedomain.StatusActive, affiliatedomain.StatusPending:
		default:
			return domain.ErrAffiliateInactive
		}

		if explicitSlug != "" {
			taken, err := s.repo.ExistsBySlug(ctx, tx, orgID, explicitSlug)
			if err != nil {
				return err
			}
			if taken {
				return domain.ErrSlugTaken
			}
			link.Slug = explicitSlug
		} else {
			derived, err := s.deriveSlug(ctx, tx, *affiliate)
			if err != nil {
				return err
			}
			link.Slug = derived
		}

		if err := s.repo.Insert(ctx, tx, &link); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.ActionLinkCreated, "link", link.ID.String(), map[string]any{
			"affiliateId": affiliateID.String(),
			"slug":        link.Slug,
		})
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Link{}, domain.ErrSlugTaken
		}
		return domain.Link{}, err
	}

	s.log.Info("affiliate link created",
		zap.String("link_id", link.ID.String()),
		zap.String("affiliate_id", affiliateID.String()),
		zap.String("slug", link.Slug),
	)
	return link, nil
}

// deriveSlug produces "<name-slug>-<n>" where n starts at the affiliate's
// link count plus one and advances until free.
func (s *Service) deriveSlug(ctx context.Context, tx *gorm.DB, affiliate affiliatedomain.Affiliate) (string, error) {
	base := slug.Make(affiliate.Name)
	if base == "" {
		base = strings.ToLower(affiliate.ReferralCode)
	}

	count, err := s.repo.CountByAffiliate(ctx, tx, affiliate.OrgID, affiliate.ID)
	if err != nil {
		return "", err
	}
	for n := count + 1; n <= count+maxSlugSequence; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		taken, err := s.repo.ExistsBySlug(ctx, tx, affiliate.OrgID, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", domain.ErrSlugTaken
}

func (s *Service) ListLinks(ctx context.Context, req domain.ListLinkRequest) (pagination.Page[domain.Link], error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return pagination.Page[domain.Link]{}, domain.ErrInvalidOrganization
	}

	var filter domain.ListFilter
	if raw := strings.TrimSpace(req.AffiliateID); raw != "" {
		affiliateID, err := snowflake.ParseString(raw)
		if err != nil || affiliateID == 0 {
			return pagination.Page[domain.Link]{}, domain.ErrInvalidAffiliate
		}
		filter.AffiliateID = affiliateID
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		return pagination.Page[domain.Link]{}, err
	}
	return pagination.NewPage(items, page, total), nil
}

func (s *Service) SetActive(ctx context.Context, id string, active bool) (domain.Link, error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return domain.Link{}, domain.ErrInvalidOrganization
	}
	linkID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || linkID == 0 {
		return domain.Link{}, domain.ErrInvalidID
	}

	var updated domain.Link
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link, err := s.repo.FindByID(ctx, tx, orgID, linkID)
		if err != nil {
			return err
		}
		if link == nil {
			return domain.ErrNotFound
		}
		if link.Active == active {
			updated = *link
			return nil
		}

		link.Active = active
		link.UpdatedAt = s.clock.Now()
		if err := s.repo.SetActive(ctx, tx, link); err != nil {
			return err
		}
		updated = *link
		return s.audit.Record(ctx, tx, auditdomain.ActionLinkToggled, "link", link.ID.String(), map[string]any{
			"active": active,
		})
	})
	if err != nil {
		return domain.Link{}, err
	}
	return updated, nil
}

func (s *Service) ResolveClick(ctx context.Context, rawSlug string, visitor domain.Visitor) (domain.ClickResult, error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return domain.ClickResult{}, domain.ErrInvalidOrganization
	}
	normalized := strings.ToLower(strings.TrimSpace(rawSlug))
	if normalized == "" {
		return domain.ClickResult{}, domain.ErrNotFound
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return domain.ClickResult{}, err
	}

	now := s.clock.Now()
	var link domain.Link
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindBySlug(ctx, tx, orgID, normalized)
		if err != nil {
			return err
		}
		if found == nil || !found.Active {
			return domain.ErrNotFound
		}
		link = *found

		if err := s.repo.IncrementClicks(ctx, tx, orgID, link.ID); err != nil {
			return err
		}
		if err := s.affiliates.IncrementClicks(ctx, tx, orgID, link.AffiliateID); err != nil {
			return err
		}
		return s.repo.InsertClick(ctx, tx, &domain.Click{
			ID:          ulid.Make().String(),
			OrgID:       orgID,
			LinkID:      link.ID,
			AffiliateID: link.AffiliateID,
			VisitorHash: visitorHash(visitor),
			Referrer:    trimmed(&visitor.Referrer),
			ClickedAt:   now,
		})
	})
	if err != nil {
		return domain.ClickResult{}, err
	}
	link.TotalClicks++

	window := settings.CookieWindow()
	token, expiresAt, err := s.attribution.Issue(orgID, link.AffiliateID, link.ID, now, window)
	if err != nil {
		return domain.ClickResult{}, err
	}

	s.metrics.RecordClick(ctx, orgID.String())
	return domain.ClickResult{
		Link:        link,
		RedirectURL: withUTM(link),
		Token:       token,
		ExpiresAt:   expiresAt,
		MaxAge:      int(window.Seconds()),
	}, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
