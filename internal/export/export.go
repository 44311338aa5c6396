// Package export renders conversions and payouts as XLSX workbooks.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/affiliate/internal/clock"
	conversiondomain "github.com/smallbiznis/affiliate/internal/conversion/domain"
	payoutdomain "github.com/smallbiznis/affiliate/internal/payout/domain"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	pageSize = pagination.MaxSize
	maxRows  = 50000
)

var ErrTooManyRows = errors.New("export_too_large")

var Module = fx.Module("export",
	fx.Provide(New),
)

// File is a rendered export ready to be served.
type File struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	Conversions conversiondomain.Service
	Payouts     payoutdomain.Service
}

type Service struct {
	log         *zap.Logger
	clock       clock.Clock
	conversions conversiondomain.Service
	payouts     payoutdomain.Service
}

func New(p Params) *Service {
	return &Service{
		log:         p.Log.Named("export.service"),
		clock:       p.Clock,
		conversions: p.Conversions,
		payouts:     p.Payouts,
	}
}

var conversionHeaders = []string{
	"ID", "Affiliate ID", "Link ID", "Order ID", "Order Amount", "Commission Rate",
	"Commission Amount", "Status", "Source", "Rejection Reason", "Created At", "Approved At", "Rejected At",
}

func (s *Service) Conversions(ctx context.Context, status string) (File, error) {
	var rows [][]any
	for page := 0; ; page++ {
		result, err := s.conversions.List(ctx, conversiondomain.ListConversionRequest{
			Pagination: pagination.Pagination{Page: page, Size: pageSize},
			Status:     status,
		})
		if err != nil {
			return File{}, err
		}
		for _, c := range result.Content {
			linkID := ""
			if c.LinkID != nil {
				linkID = c.LinkID.String()
			}
			rows = append(rows, []any{
				c.ID.String(),
				c.AffiliateID.String(),
				linkID,
				c.OrderID,
				number(c.OrderAmount),
				number(c.CommissionRate),
				number(c.CommissionAmount),
				string(c.Status),
				string(c.Source),
				deref(c.RejectionReason),
				timestamp(&c.CreatedAt),
				timestamp(c.ApprovedAt),
				timestamp(c.RejectedAt),
			})
		}
		if len(rows) > maxRows {
			return File{}, ErrTooManyRows
		}
		if result.Last {
			break
		}
	}

	content, err := buildWorkbook("Conversions", conversionHeaders, []float64{20, 20, 20, 24, 14, 14, 16, 12, 14, 30, 22, 22, 22}, rows)
	if err != nil {
		return File{}, err
	}
	s.log.Info("conversions exported", zap.Int("rows", len(rows)))
	return File{
		Filename:    s.filename("conversions"),
		ContentType: ContentTypeXLSX,
		Content:     content,
	}, nil
}

var payoutHeaders = []string{
	"ID", "Affiliate ID", "Amount", "Method", "Reference", "Notes", "Status", "Created At", "Processing At", "Paid At",
}

func (s *Service) Payouts(ctx context.Context, status string) (File, error) {
	var rows [][]any
	for page := 0; ; page++ {
		result, err := s.payouts.List(ctx, payoutdomain.ListPayoutRequest{
			Pagination: pagination.Pagination{Page: page, Size: pageSize},
			Status:     status,
		})
		if err != nil {
			return File{}, err
		}
		for _, p := range result.Content {
			rows = append(rows, []any{
				p.ID.String(),
				p.AffiliateID.String(),
				number(p.Amount),
				string(p.Method),
				deref(p.Reference),
				deref(p.Notes),
				string(p.Status),
				timestamp(&p.CreatedAt),
				timestamp(p.ProcessingAt),
				timestamp(p.PaidAt),
			})
		}
		if len(rows) > maxRows {
			return File{}, ErrTooManyRows
		}
		if result.Last {
			break
		}
	}

	content, err := buildWorkbook("Payouts", payoutHeaders, []float64{20, 20, 14, 16, 24, 30, 12, 22, 22, 22}, rows)
	if err != nil {
		return File{}, err
	}
	s.log.Info("payouts exported", zap.Int("rows", len(rows)))
	return File{
		Filename:    s.filename("payouts"),
		ContentType: ContentTypeXLSX,
		Content:     content,
	}, nil
}

func (s *Service) filename(kind string) string {
	return fmt.Sprintf("affiliate-%s-%s.xlsx", kind, s.clock.Now().Format("20060102-150405"))
}

func number(value decimal.Decimal) float64 {
	f, _ := value.Float64()
	return f
}

func timestamp(value *time.Time) string {
	if value == nil || value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
