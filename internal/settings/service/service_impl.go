package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/affiliate/internal/audit/domain"
	"github.com/smallbiznis/affiliate/internal/clock"
	"github.com/smallbiznis/affiliate/internal/config"
	"github.com/smallbiznis/affiliate/internal/orgcontext"
	"github.com/smallbiznis/affiliate/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Defaults *config.ProgramDefaultsHolder
	Repo     domain.Repository
	Audit    auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	defaults *config.ProgramDefaultsHolder
	repo     domain.Repository
	audit    auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("settings.service"),
		clock:    p.Clock,
		defaults: p.Defaults,
		repo:     p.Repo,
		audit:    p.Audit,
	}
}

var hundred = decimal.NewFromInt(100)

func (s *Service) Get(ctx context.Context) (domain.Settings, error) {
	return s.GetTx(ctx, s.db)
}

func (s *Service) GetTx(ctx context.Context, tx *gorm.DB) (domain.Settings, error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return domain.Settings{}, domain.ErrInvalidOrganization
	}

	stored, err := s.repo.FindByOrg(ctx, tx, orgID)
	if err != nil {
		return domain.Settings{}, err
	}
	if stored != nil {
		return *stored, nil
	}

	d := s.defaults.Get()
	settings := domain.Settings{
		OrgID:          orgID,
		Enabled:        d.Enabled,
		CommissionRate: d.CommissionRate,
		CookieDays:     d.CookieDays,
		MinPayout:      d.MinPayout,
		PayoutDay:      d.PayoutDay,
		AutoApprove:    d.AutoApprove,
	}
	if d.TermsURL != "" {
		terms := d.TermsURL
		settings.TermsURL = &terms
	}
	return settings, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateSettingsRequest) (domain.Settings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	next := current
	if req.Enabled != nil {
		next.Enabled = *req.Enabled
	}
	if req.CommissionRate != nil {
		next.CommissionRate = *req.CommissionRate
	}
	if req.CookieDays != nil {
		next.CookieDays = *req.CookieDays
	}
	if req.MinPayout != nil {
		next.MinPayout = *req.MinPayout
	}
	if req.PayoutDay != nil {
		next.PayoutDay = *req.PayoutDay
	}
	if req.AutoApprove != nil {
		next.AutoApprove = *req.AutoApprove
	}
	if req.TermsURL != nil {
		terms := strings.TrimSpace(*req.TermsURL)
		if terms == "" {
			next.TermsURL = nil
		} else {
			next.TermsURL = &terms
		}
	}

	if err := validate(next); err != nil {
		return domain.Settings{}, err
	}
	next.UpdatedAt = s.clock.Now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Upsert(ctx, tx, &next); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.ActionSettingsUpdated, "settings", next.OrgID.String(), map[string]any{
			"enabled":        next.Enabled,
			"commissionRate": next.CommissionRate.String(),
			"cookieDays":     next.CookieDays,
			"minPayout":      next.MinPayout.StringFixed(2),
			"payoutDay":      next.PayoutDay,
			"autoApprove":    next.AutoApprove,
		})
	})
	if err != nil {
		return domain.Settings{}, err
	}

	s.log.Info("program settings updated", zap.String("org_id", next.OrgID.String()))
	return next, nil
}

func validate(s domain.Settings) error {
	if s.CommissionRate.IsNegative() || s.CommissionRate.GreaterThan(hundred) {
		return domain.ErrInvalidCommission
	}
	if s.CookieDays < 1 || s.CookieDays > 365 {
		return domain.ErrInvalidCookieDays
	}
	if s.MinPayout.IsNegative() {
		return domain.ErrInvalidMinPayout
	}
	if s.PayoutDay < 1 || s.PayoutDay > 28 {
		return domain.ErrInvalidPayoutDay
	}
	if s.TermsURL != nil {
		u, err := url.Parse(*s.TermsURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return domain.ErrInvalidTermsURL
		}
	}
	return nil
}
