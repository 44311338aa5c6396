package service

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	affiliatedomain "github.com/smallbiznis/affiliate/internal/affiliate/domain"
	auditdomain "github.com/smallbiznis/affiliate/internal/audit/domain"
	"github.com/smallbiznis/affiliate/internal/clock"
	"github.com/smallbiznis/affiliate/internal/commission"
	conversiondomain "github.com/smallbiznis/affiliate/internal/conversion/domain"
	"github.com/smallbiznis/affiliate/internal/lock"
	"github.com/smallbiznis/affiliate/internal/observability/metrics"
	"github.com/smallbiznis/affiliate/internal/orgcontext"
	"github.com/smallbiznis/affiliate/internal/payout/domain"
	"github.com/smallbiznis/affiliate/internal/providers/pdf"
	settingsdomain "github.com/smallbiznis/affiliate/internal/settings/domain"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dateLayout          = "2006-01-02"
	statementLinesLimit = 100
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
	Conversions conversiondomain.Repository
	Settings    settingsdomain.Service
	Audit       auditdomain.Service
	PDF         pdf.Provider
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
	conversions conversiondomain.Repository
	settings    settingsdomain.Service
	audit       auditdomain.Service
	pdf         pdf.Provider
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payout.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		locker:      p.Locker,
		repo:        p.Repo,
		affiliates:  p.Affiliates,
		conversions: p.Conversions,
		settings:    p.Settings,
		audit:       p.Audit,
		pdf:         p.PDF,
		metrics:     p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePayoutRequest) (domain.Payout, error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return domain.Payout{}, domain.ErrInvalidOrganization
	}
	affiliateID, err := snowflake.ParseString(strings.TrimSpace(req.AffiliateID))
	if err != nil || affiliateID == 0 {
		return domain.Payout{}, domain.ErrInvalidAffiliate
	}
	if !commission.IsMoney(req.Amount) {
		return domain.Payout{}, domain.ErrInvalidAmount
	}
	amount := req.Amount
	method, ok := domain.ParseMethod(strings.ToUpper(strings.TrimSpace(req.Method)))
	if !ok {
		return domain.Payout{}, domain.ErrInvalidMethod
	}

	unlock, err := s.locker.Lock(ctx, affiliateLockKey(affiliateID))
	if err != nil {
		return domain.Payout{}, err
	}
	defer unlock()

	now := s.clock.Now()
	payout := domain.Payout{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		AffiliateID: affiliateID,
		Amount:      amount,
		Method:      method,
		Reference:   trimmed(req.Reference),
		Notes:       trimmed(req.Notes),
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affiliate, err := s.affiliates.FindByIDForUpdate(ctx, tx, orgID, affiliateID)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return affiliatedomain.ErrNotFound
		}
		if affiliate.Status == affiliatedomain.StatusRejected {
			return domain.ErrAffiliateRejected
		}

		settings, err := s.settings.GetTx(ctx, tx)
		if err != nil {
			return err
		}

		balance, err := s.balance(ctx, tx, orgID, affiliateID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(balance.Available) {
			return domain.ErrInsufficientBalance
		}
		if amount.LessThan(settings.MinPayout) {
			return domain.ErrBelowMinPayout
		}

		if err := s.repo.Insert(ctx, tx, &payout); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.ActionPayoutCreated, "payout", payout.ID.String(), map[string]any{
			"affiliateId": affiliateID.String(),
			"amount":      amount.StringFixed(2),
			"method":      string(method),
		})
	})
	if err != nil {
		return domain.Payout{}, err
	}

	s.metrics.RecordPayout(ctx, orgID.String(), "created")
	s.log.Info("payout created",
		zap.String("payout_id", payout.ID.String()),
		zap.String("affiliate_id", affiliateID.String()),
		zap.String("amount", amount.StringFixed(2)),
	)
	return payout, nil
}

func (s *Service) Advance(ctx context.Context, id string) (domain.Payout, error) {
	return s.transition(ctx, id, domain.StatusProcessing)
}

func (s *Service) MarkPaid(ctx context.Context, id string) (domain.Payout, error) {
	return s.transition(ctx, id, domain.StatusPaid)
}

func (s *Service) transition(ctx context.Context, id string, next domain.Status) (domain.Payout, error) {
	orgID, payoutID, err := s.resolveIDs(ctx, id)
	if err != nil {
		return domain.Payout{}, err
	}

	var from []domain.Status
	var action string
	switch next {
	case domain.StatusProcessing:
		from = []domain.Status{domain.StatusPending}
		action = auditdomain.ActionPayoutProcessing
	case domain.StatusPaid:
		from = []domain.Status{domain.StatusPending, domain.StatusProcessing}
		action = auditdomain.ActionPayoutPaid
	default:
		return domain.Payout{}, domain.ErrInvalidStatus
	}

	var updated domain.Payout
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payout, err := s.repo.FindByID(ctx, tx, orgID, payoutID)
		if err != nil {
			return err
		}
		if payout == nil {
			return domain.ErrNotFound
		}
		if payout.Status == domain.StatusPaid {
			return domain.ErrAlreadyPaid
		}
		if !slices.Contains(from, payout.Status) {
			return domain.ErrInvalidTransition
		}

		previous := payout.Status
		now := s.clock.Now()
		payout.Status = next
		payout.UpdatedAt = now
		switch next {
		case domain.StatusProcessing:
			payout.ProcessingAt = &now
		case domain.StatusPaid:
			payout.PaidAt = &now
		}

		ok, err := s.repo.UpdateStatus(ctx, tx, payout, from...)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}

		updated = *payout
		return s.audit.Record(ctx, tx, action, "payout", payout.ID.String(), map[string]any{
			"from": string(previous),
			"to":   string(next),
		})
	})
	if err != nil {
		return domain.Payout{}, err
	}

	s.metrics.RecordPayout(ctx, orgID.String(), strings.ToLower(string(next)))
	s.log.Info("payout status changed",
		zap.String("payout_id", updated.ID.String()),
		zap.String("status", string(next)),
	)
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Payout, error) {
	orgID, payoutID, err := s.resolveIDs(ctx, id)
	if err != nil {
		return domain.Payout{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, orgID, payoutID)
	if err != nil {
		return domain.Payout{}, err
	}
	if item == nil {
		return domain.Payout{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPayoutRequest) (pagination.Page[domain.Payout], error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return pagination.Page[domain.Payout]{}, domain.ErrInvalidOrganization
	}

	var filter domain.ListFilter
	if raw := strings.ToUpper(strings.TrimSpace(req.Status)); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return pagination.Page[domain.Payout]{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(req.AffiliateID); raw != "" {
		affiliateID, err := snowflake.ParseString(raw)
		if err != nil || affiliateID == 0 {
			return pagination.Page[domain.Payout]{}, domain.ErrInvalidAffiliate
		}
		filter.AffiliateID = affiliateID
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		return pagination.Page[domain.Payout]{}, err
	}
	return pagination.NewPage(items, page, total), nil
}

func (s *Service) Balance(ctx context.Context, affiliateID string) (domain.Balance, error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return domain.Balance{}, domain.ErrInvalidOrganization
	}
	id, err := snowflake.ParseString(strings.TrimSpace(affiliateID))
	if err != nil || id == 0 {
		return domain.Balance{}, domain.ErrInvalidAffiliate
	}

	affiliate, err := s.affiliates.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Balance{}, err
	}
	if affiliate == nil {
		return domain.Balance{}, affiliatedomain.ErrNotFound
	}
	return s.balance(ctx, s.db, orgID, id)
}

func (s *Service) balance(ctx context.Context, db *gorm.DB, orgID, affiliateID snowflake.ID) (domain.Balance, error) {
	approved, err := s.conversions.SumApprovedCommission(ctx, db, orgID, affiliateID)
	if err != nil {
		return domain.Balance{}, err
	}
	totals, err := s.repo.Totals(ctx, db, orgID, affiliateID)
	if err != nil {
		return domain.Balance{}, err
	}
	return domain.Balance{
		AffiliateID: affiliateID,
		Approved:    approved,
		Reserved:    totals.Reserved,
		Paid:        totals.Paid,
		Available:   approved.Sub(totals.Reserved).Sub(totals.Paid),
	}, nil
}

func (s *Service) Statement(ctx context.Context, id string) (domain.Statement, error) {
	payout, err := s.Get(ctx, id)
	if err != nil {
		return domain.Statement{}, err
	}

	affiliate, err := s.affiliates.FindByID(ctx, s.db, payout.OrgID, payout.AffiliateID)
	if err != nil {
		return domain.Statement{}, err
	}
	if affiliate == nil {
		return domain.Statement{}, affiliatedomain.ErrNotFound
	}
	balance, err := s.balance(ctx, s.db, payout.OrgID, payout.AffiliateID)
	if err != nil {
		return domain.Statement{}, err
	}
	approved, _, err := s.conversions.List(ctx, s.db, payout.OrgID, conversiondomain.ListFilter{
		Status:      conversiondomain.StatusApproved,
		AffiliateID: payout.AffiliateID,
	}, pagination.Pagination{Size: statementLinesLimit}.Normalize())
	if err != nil {
		return domain.Statement{}, err
	}

	data := pdf.StatementData{
		PayoutID:      payout.ID.String(),
		IssueDate:     payout.CreatedAt.Format(dateLayout),
		Status:        string(payout.Status),
		Method:        string(payout.Method),
		Reference:     deref(payout.Reference),
		AffiliateName: affiliate.Name,
		AffiliateCode: affiliate.ReferralCode,
		AffiliateMail: affiliate.Email,
		PixKey:        deref(affiliate.PixKey),
		Amount:        money(payout.Amount),
		Approved:      money(balance.Approved),
		Reserved:      money(balance.Reserved),
		Paid:          money(balance.Paid),
		Available:     money(balance.Available),
	}
	for _, c := range approved {
		date := c.CreatedAt
		if c.ApprovedAt != nil {
			date = *c.ApprovedAt
		}
		data.Lines = append(data.Lines, pdf.StatementLine{
			Label: c.OrderID,
			Date:  date.Format(dateLayout),
			Value: money(c.CommissionAmount),
		})
	}

	reader, err := s.pdf.GenerateStatement(ctx, data)
	if err != nil {
		return domain.Statement{}, err
	}
	var content []byte
	if reader != nil {
		content, err = io.ReadAll(reader)
		if err != nil {
			return domain.Statement{}, err
		}
	}
	return domain.Statement{
		Filename:    fmt.Sprintf("payout-%s.pdf", payout.ID.String()),
		ContentType: "application/pdf",
		Content:     content,
	}, nil
}

func (s *Service) resolveIDs(ctx context.Context, id string) (snowflake.ID, snowflake.ID, error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return 0, 0, domain.ErrInvalidOrganization
	}
	payoutID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || payoutID == 0 {
		return 0, 0, domain.ErrInvalidID
	}
	return orgID, payoutID, nil
}

func affiliateLockKey(id snowflake.ID) string {
	return "affiliate:" + id.String()
}

func money(value decimal.Decimal) string {
	return value.StringFixed(2)
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
