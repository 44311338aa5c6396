package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	affiliatedomain "github.com/smallbiznis/affiliate/internal/affiliate/domain"
	"github.com/smallbiznis/affiliate/internal/attribution"
	auditdomain "github.com/smallbiznis/affiliate/internal/audit/domain"
	"github.com/smallbiznis/affiliate/internal/clock"
	"github.com/smallbiznis/affiliate/internal/commission"
	"github.com/smallbiznis/affiliate/internal/conversion/domain"
	linkdomain "github.com/smallbiznis/affiliate/internal/link/domain"
	"github.com/smallbiznis/affiliate/internal/lock"
	"github.com/smallbiznis/affiliate/internal/observability/metrics"
	"github.com/smallbiznis/affiliate/internal/orgcontext"
	settingsdomain "github.com/smallbiznis/affiliate/internal/settings/domain"
	"github.com/smallbiznis/affiliate/pkg/db"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Locker      lock.Locker
	Repo        domain.Repository
	Affiliates  affiliatedomain.Repository
	Links       linkdomain.Repository
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
	locker      lock.Locker
	repo        domain.Repository
	affiliates  affiliatedomain.Repository
	links       linkdomain.Repository
	settings    settingsdomain.Service
	attribution *attribution.Engine
	audit       auditdomain.Service
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("conversion.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		locker:      p.Locker,
		repo:        p.Repo,
		affiliates:  p.Affiliates,
		links:       p.Links,
		settings:    p.Settings,
		attribution: p.Attribution,
		audit:       p.Audit,
		metrics:     p.Metrics,
	}
}

// pendingConversion carries a validated request into insert.
type pendingConversion struct {
	affiliateID  snowflake.ID
	linkID       *snowflake.ID
	orderID      string
	orderAmount  decimal.Decimal
	source       domain.Source
	attributedAt *time.Time
}

func (s *Service) Record(ctx context.Context, req domain.RecordConversionRequest) (domain.Conversion, error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return domain.Conversion{}, domain.ErrInvalidOrganization
	}
	affiliateID, err := snowflake.ParseString(strings.TrimSpace(req.AffiliateID))
	if err != nil || affiliateID == 0 {
		return domain.Conversion{}, domain.ErrInvalidAffiliate
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return domain.Conversion{}, domain.ErrInvalidOrderID
	}
	if !commission.IsMoney(req.OrderAmount) {
		return domain.Conversion{}, domain.ErrInvalidOrderAmount
	}

	var linkID *snowflake.ID
	if req.LinkID != nil && strings.TrimSpace(*req.LinkID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(*req.LinkID))
		if err != nil || id == 0 {
			return domain.Conversion{}, domain.ErrInvalidLink
		}
		linkID = &id
	}

	return s.insert(ctx, orgID, pendingConversion{
		affiliateID: affiliateID,
		linkID:      linkID,
		orderID:     orderID,
		orderAmount: req.OrderAmount,
		source:      domain.SourceManual,
	})
}

func (s *Service) RecordOrder(ctx context.Context, req domain.RecordOrderRequest) (domain.OrderResult, error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return domain.OrderResult{}, domain.ErrInvalidOrganization
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return domain.OrderResult{}, domain.ErrInvalidOrderID
	}
	if !commission.IsMoney(req.OrderAmount) {
		return domain.OrderResult{}, domain.ErrInvalidOrderAmount
	}

	orderedAt := s.clock.Now()
	if req.OrderedAt != nil && !req.OrderedAt.IsZero() {
		orderedAt = req.OrderedAt.UTC()
	}

	pending, ok, err := s.attribute(ctx, orgID, req, orderedAt)
	if err != nil {
		return domain.OrderResult{}, err
	}
	if !ok {
		s.metrics.RecordAttribution(ctx, orgID.String(), "none")
		s.log.Debug("order not attributed", zap.String("order_id", orderID))
		return domain.OrderResult{Attributed: false}, nil
	}
	pending.orderID = orderID
	pending.orderAmount = req.OrderAmount

	conversion, err := s.insert(ctx, orgID, pending)
	if err != nil {
		return domain.OrderResult{}, err
	}
	s.metrics.RecordAttribution(ctx, orgID.String(), strings.ToLower(string(pending.source)))
	return domain.OrderResult{
		Attributed: true,
		Source:     pending.source,
		Conversion: &conversion,
	}, nil
}

// attribute resolves the attribution token first and falls back to an
// explicit referral code.
func (s *Service) attribute(ctx context.Context, orgID snowflake.ID, req domain.RecordOrderRequest, orderedAt time.Time) (pendingConversion, bool, error) {
	attributedAt := orderedAt

	resolved, ok, err := s.attribution.Resolve(ctx, req.AttributionToken, orderedAt)
	if err != nil {
		return pendingConversion{}, false, err
	}
	if ok {
		linkID := resolved.LinkID
		return pendingConversion{
			affiliateID:  resolved.AffiliateID,
			linkID:       &linkID,
			source:       domain.SourceToken,
			attributedAt: &attributedAt,
		}, true, nil
	}

	code := strings.ToUpper(strings.TrimSpace(req.ReferralCode))
	if code == "" {
		return pendingConversion{}, false, nil
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return pendingConversion{}, false, err
	}
	if !settings.Enabled {
		return pendingConversion{}, false, nil
	}
	affiliate, err := s.affiliates.FindByReferralCode(ctx, s.db, orgID, code)
	if err != nil {
		return pendingConversion{}, false, err
	}
	if affiliate == nil || affiliate.Status != affiliatedomain.StatusActive {
		return pendingConversion{}, false, nil
	}
	return pendingConversion{
		affiliateID:  affiliate.ID,
		source:       domain.SourceReferralCode,
		attributedAt: &attributedAt,
	}, true, nil
}

func (s *Service) insert(ctx context.Context, orgID snowflake.ID, p pendingConversion) (domain.Conversion, error) {
	now := s.clock.Now()
	var conversion domain.Conversion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings, err := s.settings.GetTx(ctx, tx)
		if err != nil {
			return err
		}

		affiliate, err := s.affiliates.FindByID(ctx, tx, orgID, p.affiliateID)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return affiliatedomain.ErrNotFound
		}

		if p.linkID != nil {
			link, err := s.links.FindByID(ctx, tx, orgID, *p.linkID)
			if err != nil {
				return err
			}
			if link == nil || link.AffiliateID != affiliate.ID {
				return domain.ErrInvalidLink
			}
		}

		exists, err := s.repo.ExistsByOrderID(ctx, tx, orgID, p.orderID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateOrder
		}

		result, err := commission.Compute(affiliate.CommissionRate, settings.CommissionRate, p.orderAmount)
		if err != nil {
			return err
		}

		conversion = domain.Conversion{
			ID:               s.genID.Generate(),
			OrgID:            orgID,
			AffiliateID:      affiliate.ID,
			LinkID:           p.linkID,
			OrderID:          p.orderID,
			OrderAmount:      p.orderAmount,
			CommissionRate:   result.Rate,
			CommissionAmount: result.Amount,
			Status:           domain.StatusPending,
			Source:           p.source,
			AttributedAt:     p.attributedAt,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.repo.Insert(ctx, tx, &conversion); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.ActionConversionRecorded, "conversion", conversion.ID.String(), map[string]any{
			"affiliateId":      affiliate.ID.String(),
			"orderId":          conversion.OrderID,
			"commissionAmount": conversion.CommissionAmount.StringFixed(2),
			"source":           string(conversion.Source),
		})
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Conversion{}, domain.ErrDuplicateOrder
		}
		return domain.Conversion{}, err
	}

	s.metrics.RecordConversion(ctx, orgID.String(), "recorded")
	s.log.Info("conversion recorded",
		zap.String("conversion_id", conversion.ID.String()),
		zap.String("affiliate_id", conversion.AffiliateID.String()),
		zap.String("source", string(conversion.Source)),
	)
	return conversion, nil
}

func (s *Service) Approve(ctx context.Context, id string) (domain.Conversion, error) {
	orgID, conversionID, err := s.resolveIDs(ctx, id)
	if err != nil {
		return domain.Conversion{}, err
	}

	current, err := s.repo.FindByID(ctx, s.db, orgID, conversionID)
	if err != nil {
		return domain.Conversion{}, err
	}
	if current == nil {
		return domain.Conversion{}, domain.ErrNotFound
	}
	if current.Status != domain.StatusPending {
		return domain.Conversion{}, domain.ErrNotPending
	}

	unlock, err := s.locker.Lock(ctx, affiliateLockKey(current.AffiliateID))
	if err != nil {
		return domain.Conversion{}, err
	}
	defer unlock()

	var approved domain.Conversion
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affiliate, err := s.affiliates.FindByIDForUpdate(ctx, tx, orgID, current.AffiliateID)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return affiliatedomain.ErrNotFound
		}

		conversion, err := s.repo.FindByID(ctx, tx, orgID, conversionID)
		if err != nil {
			return err
		}
		if conversion == nil {
			return domain.ErrNotFound
		}
		if conversion.Status != domain.StatusPending {
			return domain.ErrNotPending
		}

		now := s.clock.Now()
		conversion.Status = domain.StatusApproved
		conversion.ApprovedAt = &now
		conversion.UpdatedAt = now
		updated, err := s.repo.UpdateStatus(ctx, tx, conversion)
		if err != nil {
			return err
		}
		if !updated {
			return domain.ErrNotPending
		}

		if err := s.affiliates.ApplyApprovedConversion(ctx, tx, orgID, affiliate.ID, conversion.OrderAmount, conversion.CommissionAmount); err != nil {
			return err
		}
		if conversion.LinkID != nil {
			if err := s.links.IncrementConversions(ctx, tx, orgID, *conversion.LinkID); err != nil {
				return err
			}
		}

		approved = *conversion
		return s.audit.Record(ctx, tx, auditdomain.ActionConversionApproved, "conversion", conversion.ID.String(), map[string]any{
			"affiliateId":      affiliate.ID.String(),
			"commissionAmount": conversion.CommissionAmount.StringFixed(2),
		})
	})
	if err != nil {
		return domain.Conversion{}, err
	}

	s.metrics.RecordConversion(ctx, orgID.String(), "approved")
	s.log.Info("conversion approved",
		zap.String("conversion_id", approved.ID.String()),
		zap.String("affiliate_id", approved.AffiliateID.String()),
	)
	return approved, nil
}

func (s *Service) Reject(ctx context.Context, id string, reason string) (domain.Conversion, error) {
	orgID, conversionID, err := s.resolveIDs(ctx, id)
	if err != nil {
		return domain.Conversion{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Conversion{}, domain.ErrInvalidReason
	}

	var rejected domain.Conversion
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conversion, err := s.repo.FindByID(ctx, tx, orgID, conversionID)
		if err != nil {
			return err
		}
		if conversion == nil {
			return domain.ErrNotFound
		}
		if conversion.Status != domain.StatusPending {
			return domain.ErrNotPending
		}

		now := s.clock.Now()
		conversion.Status = domain.StatusRejected
		conversion.RejectionReason = &reason
		conversion.RejectedAt = &now
		conversion.UpdatedAt = now
		updated, err := s.repo.UpdateStatus(ctx, tx, conversion)
		if err != nil {
			return err
		}
		if !updated {
			return domain.ErrNotPending
		}

		rejected = *conversion
		return s.audit.Record(ctx, tx, auditdomain.ActionConversionRejected, "conversion", conversion.ID.String(), map[string]any{
			"reason": reason,
		})
	})
	if err != nil {
		return domain.Conversion{}, err
	}

	s.metrics.RecordConversion(ctx, orgID.String(), "rejected")
	return rejected, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Conversion, error) {
	orgID, conversionID, err := s.resolveIDs(ctx, id)
	if err != nil {
		return domain.Conversion{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, orgID, conversionID)
	if err != nil {
		return domain.Conversion{}, err
	}
	if item == nil {
		return domain.Conversion{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListConversionRequest) (pagination.Page[domain.Conversion], error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return pagination.Page[domain.Conversion]{}, domain.ErrInvalidOrganization
	}

	var filter domain.ListFilter
	if raw := strings.ToUpper(strings.TrimSpace(req.Status)); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return pagination.Page[domain.Conversion]{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(req.AffiliateID); raw != "" {
		affiliateID, err := snowflake.ParseString(raw)
		if err != nil || affiliateID == 0 {
			return pagination.Page[domain.Conversion]{}, domain.ErrInvalidAffiliate
		}
		filter.AffiliateID = affiliateID
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		return pagination.Page[domain.Conversion]{}, err
	}
	return pagination.NewPage(items, page, total), nil
}

func (s *Service) resolveIDs(ctx context.Context, id string) (snowflake.ID, snowflake.ID, error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return 0, 0, domain.ErrInvalidOrganization
	}
	conversionID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || conversionID == 0 {
		return 0, 0, domain.ErrInvalidID
	}
	return orgID, conversionID, nil
}

func affiliateLockKey(id snowflake.ID) string {
	return "affiliate:" + id.String()
}
