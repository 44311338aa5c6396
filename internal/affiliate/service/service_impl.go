package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/affiliate/internal/affiliate/domain"
	auditdomain "github.com/smallbiznis/affiliate/internal/audit/domain"
	"github.com/smallbiznis/affiliate/internal/clock"
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

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Settings settingsdomain.Service
	Audit    auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	settings settingsdomain.Service
	audit    auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("affiliate.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		settings: p.Settings,
		audit:    p.Audit,
	}
}

var hundred = decimal.NewFromInt(100)

func (s *Service) Create(ctx context.Context, req domain.CreateAffiliateRequest) (domain.Affiliate, error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return domain.Affiliate{}, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Affiliate{}, domain.ErrInvalidName
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Affiliate{}, err
	}

	var explicitCode string
	if req.ReferralCode != nil && strings.TrimSpace(*req.ReferralCode) != "" {
		code, ok := normalizeReferralCode(*req.ReferralCode)
		if !ok {
			return domain.Affiliate{}, domain.ErrInvalidReferralCode
		}
		explicitCode = code
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return domain.Affiliate{}, err
	}

	rate := settings.CommissionRate
	if req.CommissionRate != nil {
		rate = *req.CommissionRate
	}
	if !validRate(rate) {
		return domain.Affiliate{}, domain.ErrInvalidCommission
	}

	status := domain.StatusPending
	if settings.AutoApprove {
		status = domain.StatusActive
	}

	now := s.clock.Now()
	affiliate := domain.Affiliate{
		ID:              s.genID.Generate(),
		OrgID:           orgID,
		Name:            name,
		Email:           email,
		Phone:           trimmed(req.Phone),
		Document:        trimmed(req.Document),
		CommissionRate:  decimal.NewNullDecimal(rate),
		PixKey:          trimmed(req.PixKey),
		Status:          status,
		TotalRevenue:    decimal.Zero,
		TotalCommission: decimal.Zero,
		Notes:           trimmed(req.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.repo.ExistsByEmail(ctx, tx, orgID, email)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrEmailTaken
		}

		code, err := s.assignReferralCode(ctx, tx, orgID, name, explicitCode)
		if err != nil {
			return err
		}
		affiliate.ReferralCode = code

		if err := s.repo.Insert(ctx, tx, &affiliate); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.ActionAffiliateCreated, "affiliate", affiliate.ID.String(), map[string]any{
			"referralCode": affiliate.ReferralCode,
			"status":       string(affiliate.Status),
		})
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Affiliate{}, s.classifyDuplicate(ctx, orgID, email)
		}
		return domain.Affiliate{}, err
	}

	s.log.Info("affiliate created",
		zap.String("affiliate_id", affiliate.ID.String()),
		zap.String("status", string(affiliate.Status)),
	)
	return affiliate, nil
}

func (s *Service) assignReferralCode(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, name, explicit string) (string, error) {
	if explicit != "" {
		taken, err := s.repo.ExistsByReferralCode(ctx, tx, orgID, explicit)
		if err != nil {
			return "", err
		}
		if taken {
			return "", domain.ErrReferralCodeTaken
		}
		return explicit, nil
	}

	base := deriveReferralCode(name)
	candidate := base
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		taken, err := s.repo.ExistsByReferralCode(ctx, tx, orgID, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = withRandomSuffix(base)
	}
	return "", domain.ErrReferralCodeTaken
}

// classifyDuplicate maps a unique violation raised by a concurrent insert to
// the constraint that caused it.
func (s *Service) classifyDuplicate(ctx context.Context, orgID snowflake.ID, email string) error {
	taken, err := s.repo.ExistsByEmail(ctx, s.db, orgID, email)
	if err == nil && taken {
		return domain.ErrEmailTaken
	}
	return domain.ErrReferralCodeTaken
}

func (s *Service) Get(ctx context.Context, id string) (domain.Affiliate, error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return domain.Affiliate{}, domain.ErrInvalidOrganization
	}
	affiliateID, err := parseID(id)
	if err != nil {
		return domain.Affiliate{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, affiliateID)
	if err != nil {
		return domain.Affiliate{}, err
	}
	if item == nil {
		return domain.Affiliate{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListAffiliateRequest) (pagination.Page[domain.Affiliate], error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return pagination.Page[domain.Affiliate]{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListFilter{Search: req.Search}
	if raw := strings.ToUpper(strings.TrimSpace(req.Status)); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return pagination.Page[domain.Affiliate]{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		return pagination.Page[domain.Affiliate]{}, err
	}
	return pagination.NewPage(items, page, total), nil
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Affiliate, error) {
	return s.Update(ctx, id, domain.UpdateAffiliateRequest{Status: &status})
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateAffiliateRequest) (domain.Affiliate, error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return domain.Affiliate{}, domain.ErrInvalidOrganization
	}
	affiliateID, err := parseID(id)
	if err != nil {
		return domain.Affiliate{}, err
	}

	var nextStatus domain.Status
	if req.Status != nil {
		status, ok := domain.ParseStatus(strings.ToUpper(string(*req.Status)))
		if !ok {
			return domain.Affiliate{}, domain.ErrInvalidStatus
		}
		nextStatus = status
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return domain.Affiliate{}, domain.ErrInvalidName
	}
	if req.CommissionRate != nil && !validRate(*req.CommissionRate) {
		return domain.Affiliate{}, domain.ErrInvalidCommission
	}

	var updated domain.Affiliate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, affiliateID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}

		next := *current
		statusChanged := false
		if nextStatus != "" {
			if !current.Status.CanTransition(nextStatus) {
				return domain.ErrInvalidTransition
			}
			next.Status = nextStatus
			statusChanged = true
		}

		changed := applyFields(&next, req)
		if !statusChanged && len(changed) == 0 {
			updated = *current
			return nil
		}

		next.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, &next); err != nil {
			return err
		}

		if statusChanged {
			if err := s.audit.Record(ctx, tx, auditdomain.ActionAffiliateStatusChanged, "affiliate", next.ID.String(), map[string]any{
				"from": string(current.Status),
				"to":   string(next.Status),
			}); err != nil {
				return err
			}
		}
		if len(changed) > 0 {
			if err := s.audit.Record(ctx, tx, auditdomain.ActionAffiliateUpdated, "affiliate", next.ID.String(), changed); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		return domain.Affiliate{}, err
	}
	return updated, nil
}

// applyFields copies the non-nil request fields onto a and returns what changed.
func applyFields(a *domain.Affiliate, req domain.UpdateAffiliateRequest) map[string]any {
	changed := map[string]any{}
	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != a.Name {
			a.Name = name
			changed["name"] = name
		}
	}
	if req.Phone != nil {
		a.Phone = trimmed(req.Phone)
		changed["phone"] = deref(a.Phone)
	}
	if req.Document != nil {
		a.Document = trimmed(req.Document)
		changed["document"] = deref(a.Document)
	}
	if req.CommissionRate != nil {
		if !a.CommissionRate.Valid || !a.CommissionRate.Decimal.Equal(*req.CommissionRate) {
			a.CommissionRate = decimal.NewNullDecimal(*req.CommissionRate)
			changed["commissionRate"] = req.CommissionRate.String()
		}
	}
	if req.PixKey != nil {
		a.PixKey = trimmed(req.PixKey)
		changed["pixKey"] = deref(a.PixKey)
	}
	if req.Notes != nil {
		a.Notes = trimmed(req.Notes)
		changed["notes"] = deref(a.Notes)
	}
	return changed
}

func normalizeEmail(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || !strings.Contains(value[strings.LastIndex(value, "@"):], ".") {
		return "", domain.ErrInvalidEmail
	}
	return value, nil
}

func validRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && !rate.GreaterThan(hundred)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
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

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
