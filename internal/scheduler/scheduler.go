package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affiliate/internal/clock"
	obsmetrics "github.com/smallbiznis/affiliate/internal/observability/metrics"
	"github.com/smallbiznis/affiliate/internal/orgcontext"
	statsdomain "github.com/smallbiznis/affiliate/internal/stats/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const JobStatsRefresh = "stats_refresh"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log     *zap.Logger
	Stats   statsdomain.Service
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  Config                       `optional:"true"`
	Metrics *obsmetrics.SchedulerMetrics `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	stats   statsdomain.Service
	metrics *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Stats == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		stats:   p.Stats,
		metrics: p.Metrics,
	}, nil
}

// runJob runs fn under the job timeout. Deadline overruns are logged and
// swallowed so one slow tick does not fail the loop.
func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context, run *jobRun) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx = s.withLogContext(ctx, 0)
	run := s.newJobRun(name)
	s.logJobStart(ctx, run)

	err := fn(ctx, run)
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.metrics.ObserveJob(name, s.clock.Now().Sub(start), err)
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	if !s.isJobEnabled(JobStatsRefresh) {
		return nil
	}
	return s.runJob(parent, JobStatsRefresh, s.RefreshStatsJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// RefreshStatsJob recomputes the stats snapshot of every org that has
// affiliates. A failing org is logged and does not stop the others.
func (s *Scheduler) RefreshStatsJob(ctx context.Context, run *jobRun) error {
	orgIDs, err := s.stats.OrgIDs(ctx)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, orgID := range orgIDs {
		g.Go(func() error {
			orgCtx := orgcontext.WithOrgID(gctx, int64(orgID))
			_, err := s.stats.Refresh(orgCtx, orgID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				s.logOrgError(gctx, run, orgID, err)
				return nil
			}
			run.AddProcessed(1)
			return nil
		})
	}
	return g.Wait()
}
