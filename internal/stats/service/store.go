package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/affiliate/internal/cache"
	"github.com/smallbiznis/affiliate/internal/clock"
	"github.com/smallbiznis/affiliate/internal/stats/domain"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const redisKeyPrefix = "affiliate:stats:"

// snapshotStore keeps the latest Stats per org.
type snapshotStore interface {
	Get(ctx context.Context, orgID snowflake.ID) (domain.Stats, bool)
	Set(ctx context.Context, orgID snowflake.ID, stats domain.Stats)
}

type memoryStore struct {
	ttl   time.Duration
	items cache.Cache[snowflake.ID, domain.Stats]
}

func newMemoryStore(clk clock.Clock, ttl time.Duration) *memoryStore {
	return &memoryStore{ttl: ttl, items: cache.NewTTLCache[snowflake.ID, domain.Stats](clk)}
}

func (m *memoryStore) Get(_ context.Context, orgID snowflake.ID) (domain.Stats, bool) {
	return m.items.Get(orgID)
}

func (m *memoryStore) Set(_ context.Context, orgID snowflake.ID, stats domain.Stats) {
	m.items.Set(orgID, stats, m.ttl)
}

// redisStore shares snapshots across replicas. Redis failures trip the
// breaker and are reported as misses so callers compute directly.
type redisStore struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

func newRedisStore(client *redis.Client, ttl time.Duration, log *zap.Logger) *redisStore {
	return &redisStore{
		client: client,
		ttl:    ttl,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "stats-redis",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
		log: log,
	}
}

func (r *redisStore) Get(ctx context.Context, orgID snowflake.ID) (domain.Stats, bool) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		raw, err := r.client.Get(ctx, redisKeyPrefix+orgID.String()).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return raw, err
	})
	if err != nil {
		r.log.Debug("stats cache read failed", zap.Error(err))
		return domain.Stats{}, false
	}
	raw, _ := result.([]byte)
	if len(raw) == 0 {
		return domain.Stats{}, false
	}

	var stats domain.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		r.log.Warn("stats cache entry corrupt", zap.String("org_id", orgID.String()), zap.Error(err))
		return domain.Stats{}, false
	}
	return stats, true
}

func (r *redisStore) Set(ctx context.Context, orgID snowflake.ID, stats domain.Stats) {
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	_, err = r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, redisKeyPrefix+orgID.String(), payload, r.ttl).Err()
	})
	if err != nil {
		r.log.Debug("stats cache write failed", zap.Error(err))
	}
}
