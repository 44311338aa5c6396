package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	affiliatedomain "github.com/smallbiznis/affiliate/internal/affiliate/domain"
	affiliaterepo "github.com/smallbiznis/affiliate/internal/affiliate/repository"
	affiliatesvc "github.com/smallbiznis/affiliate/internal/affiliate/service"
	"github.com/smallbiznis/affiliate/internal/attribution"
	auditdomain "github.com/smallbiznis/affiliate/internal/audit/domain"
	auditrepo "github.com/smallbiznis/affiliate/internal/audit/repository"
	auditsvc "github.com/smallbiznis/affiliate/internal/audit/service"
	"github.com/smallbiznis/affiliate/internal/clock"
	"github.com/smallbiznis/affiliate/internal/config"
	conversiondomain "github.com/smallbiznis/affiliate/internal/conversion/domain"
	conversionrepo "github.com/smallbiznis/affiliate/internal/conversion/repository"
	conversionsvc "github.com/smallbiznis/affiliate/internal/conversion/service"
	"github.com/smallbiznis/affiliate/internal/export"
	linkdomain "github.com/smallbiznis/affiliate/internal/link/domain"
	linkrepo "github.com/smallbiznis/affiliate/internal/link/repository"
	linksvc "github.com/smallbiznis/affiliate/internal/link/service"
	"github.com/smallbiznis/affiliate/internal/lock"
	"github.com/smallbiznis/affiliate/internal/observability/metrics"
	"github.com/smallbiznis/affiliate/internal/orgcontext"
	payoutdomain "github.com/smallbiznis/affiliate/internal/payout/domain"
	payoutrepo "github.com/smallbiznis/affiliate/internal/payout/repository"
	payoutsvc "github.com/smallbiznis/affiliate/internal/payout/service"
	"github.com/smallbiznis/affiliate/internal/providers/pdf"
	settingsdomain "github.com/smallbiznis/affiliate/internal/settings/domain"
	settingsrepo "github.com/smallbiznis/affiliate/internal/settings/repository"
	settingssvc "github.com/smallbiznis/affiliate/internal/settings/service"
	statsdomain "github.com/smallbiznis/affiliate/internal/stats/domain"
	statsrepo "github.com/smallbiznis/affiliate/internal/stats/repository"
	statssvc "github.com/smallbiznis/affiliate/internal/stats/service"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const AttributionSecret = "test-attribution-secret"

// Env is a fully wired program backed by one SQLite database and a fake clock.
type Env struct {
	DB     *gorm.DB
	Log    *zap.Logger
	Node   *snowflake.Node
	Clock  *clock.FakeClock
	Config config.Config
	OrgID  snowflake.ID

	AffiliateRepo  affiliatedomain.Repository
	LinkRepo       linkdomain.Repository
	ConversionRepo conversiondomain.Repository
	PayoutRepo     payoutdomain.Repository

	Settings    settingsdomain.Service
	Audit       auditdomain.Service
	Affiliates  affiliatedomain.Service
	Links       linkdomain.Service
	Attribution *attribution.Engine
	Conversions conversiondomain.Service
	Payouts     payoutdomain.Service
	Stats       statsdomain.Service
	Export      *export.Service
}

// Option adjusts the environment before services are built.
type Option func(*envOptions)

type envOptions struct {
	defaults config.ProgramDefaults
	start    time.Time
}

func WithDefaults(d config.ProgramDefaults) Option {
	return func(o *envOptions) { o.defaults = d }
}

func WithStart(t time.Time) Option {
	return func(o *envOptions) { o.start = t }
}

func NewEnv(t testing.TB, opts ...Option) *Env {
	t.Helper()

	o := envOptions{
		defaults: config.DefaultProgramDefaults(),
		start:    time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(&o)
	}

	db := NewDB(t)
	log := zaptest.NewLogger(t)
	node := NewNode(t)
	clk := clock.NewFakeClock(o.start)
	cfg := config.Config{
		Attribution:   config.AttributionConfig{Secret: AttributionSecret, CookieName: "aff_ref"},
		StatsCacheTTL: time.Minute,
	}
	m := metrics.NewNoop()
	locker := lock.NewLocal()

	env := &Env{
		DB:             db,
		Log:            log,
		Node:           node,
		Clock:          clk,
		Config:         cfg,
		OrgID:          node.Generate(),
		AffiliateRepo:  affiliaterepo.Provide(),
		LinkRepo:       linkrepo.Provide(),
		ConversionRepo: conversionrepo.Provide(),
		PayoutRepo:     payoutrepo.Provide(),
	}

	env.Audit = auditsvc.NewService(auditsvc.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepo.Provide(),
	})
	env.Settings = settingssvc.New(settingssvc.Params{
		DB: db, Log: log, Clock: clk,
		Defaults: config.NewStaticProgramDefaultsHolder(o.defaults),
		Repo:     settingsrepo.Provide(),
		Audit:    env.Audit,
	})
	env.Affiliates = affiliatesvc.New(affiliatesvc.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo:     env.AffiliateRepo,
		Settings: env.Settings,
		Audit:    env.Audit,
	})

	signer, err := attribution.NewSigner(AttributionSecret)
	if err != nil {
		t.Fatalf("attribution signer: %v", err)
	}
	env.Attribution = attribution.New(attribution.Params{
		DB: db, Log: log, Signer: signer,
		Settings:   env.Settings,
		Affiliates: env.AffiliateRepo,
	})
	env.Links = linksvc.New(linksvc.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo:        env.LinkRepo,
		Affiliates:  env.AffiliateRepo,
		Settings:    env.Settings,
		Attribution: env.Attribution,
		Audit:       env.Audit,
		Metrics:     m,
	})
	env.Conversions = conversionsvc.New(conversionsvc.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Locker:      locker,
		Repo:        env.ConversionRepo,
		Affiliates:  env.AffiliateRepo,
		Links:       env.LinkRepo,
		Settings:    env.Settings,
		Attribution: env.Attribution,
		Audit:       env.Audit,
		Metrics:     m,
	})
	env.Payouts = payoutsvc.New(payoutsvc.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Locker:      locker,
		Repo:        env.PayoutRepo,
		Affiliates:  env.AffiliateRepo,
		Conversions: env.ConversionRepo,
		Settings:    env.Settings,
		Audit:       env.Audit,
		PDF:         pdf.New(),
		Metrics:     m,
	})
	env.Stats = statssvc.New(statssvc.Params{
		DB: db, Log: log, Clock: clk, Config: cfg,
		Repo: statsrepo.Provide(),
	})
	env.Export = export.New(export.Params{
		Log: log, Clock: clk,
		Conversions: env.Conversions,
		Payouts:     env.Payouts,
	})
	return env
}

// Ctx returns a context scoped to the environment's org.
func (e *Env) Ctx() context.Context {
	return orgcontext.WithOrgID(context.Background(), int64(e.OrgID))
}

// CtxFor returns a context scoped to another org.
func (e *Env) CtxFor(orgID snowflake.ID) context.Context {
	return orgcontext.WithOrgID(context.Background(), int64(orgID))
}
