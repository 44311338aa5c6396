package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/affiliate/internal/clock"
	"github.com/smallbiznis/affiliate/internal/config"
	"github.com/smallbiznis/affiliate/internal/orgcontext"
	"github.com/smallbiznis/affiliate/internal/stats/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const defaultTTL = time.Minute

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Config config.Config
	Repo   domain.Repository
	Redis  *redis.Client `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
	store snapshotStore
	group singleflight.Group
}

func New(p Params) domain.Service {
	log := p.Log.Named("stats.service")
	ttl := p.Config.StatsCacheTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	var store snapshotStore
	if p.Redis != nil {
		store = newRedisStore(p.Redis, ttl, log)
	} else {
		store = newMemoryStore(p.Clock, ttl)
	}

	return &Service{
		db:    p.DB,
		log:   log,
		clock: p.Clock,
		repo:  p.Repo,
		store: store,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Stats, error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return domain.Stats{}, domain.ErrInvalidOrganization
	}
	if cached, ok := s.store.Get(ctx, orgID); ok {
		return cached, nil
	}

	// the refresh is shared by coalesced callers and outlives any one of them
	refreshCtx := context.WithoutCancel(ctx)
	result, err, _ := s.group.Do(orgID.String(), func() (interface{}, error) {
		return s.Refresh(refreshCtx, orgID)
	})
	if err != nil {
		return domain.Stats{}, err
	}
	return result.(domain.Stats), nil
}

func (s *Service) Compute(ctx context.Context, orgID snowflake.ID) (domain.Stats, error) {
	totals, err := s.repo.Totals(ctx, s.db, orgID)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.Stats{
		ActiveAffiliates:  totals.ActiveAffiliates,
		PendingAffiliates: totals.PendingAffiliates,
		TotalRevenue:      totals.TotalRevenue,
		TotalConversions:  totals.TotalConversions,
		TotalClicks:       totals.TotalClicks,
		ConversionRate:    domain.ConversionRate(totals.TotalConversions, totals.TotalClicks),
		PendingCommission: totals.ApprovedActive.Sub(totals.AllocatedActive).Round(2),
		PaidCommission:    totals.PaidCommission,
		GeneratedAt:       s.clock.Now(),
	}, nil
}

func (s *Service) Refresh(ctx context.Context, orgID snowflake.ID) (domain.Stats, error) {
	stats, err := s.Compute(ctx, orgID)
	if err != nil {
		return domain.Stats{}, err
	}
	s.store.Set(ctx, orgID, stats)
	return stats, nil
}

func (s *Service) OrgIDs(ctx context.Context) ([]snowflake.ID, error) {
	return s.repo.ListOrgIDs(ctx, s.db)
}
