package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrTimeout is returned when a lock could not be acquired before the context
// or the acquire timeout expired.
var ErrTimeout = errors.New("lock_timeout")

var Module = fx.Module("lock",
	fx.Provide(New),
)

// Locker serialises work on a key across goroutines (Local) or processes (Redis).
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// New selects the redis-backed locker when a client is configured.
func New(client *redis.Client, log *zap.Logger) Locker {
	if client != nil {
		return NewRedis(client, log)
	}
	return NewLocal()
}

// Local is an in-process keyed mutex. Entries are reference counted and
// removed once no goroutine holds or waits on them.
type Local struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]*keyLock)}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, ErrTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(key, kl)
		})
	}, nil
}

func (l *Local) release(key string, kl *keyLock) {
	l.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	defaultRedisTTL   = 30 * time.Second
	defaultRetryDelay = 25 * time.Millisecond
	defaultWait       = 5 * time.Second
	redisKeyPrefix    = "affiliate:lock:"
)

// Redis holds a SET NX lock with a random token; release only deletes the key
// when the token still matches.
type Redis struct {
	client *redis.Client
	script *redis.Script
	log    *zap.Logger
	ttl    time.Duration
	wait   time.Duration
}

func NewRedis(client *redis.Client, log *zap.Logger) *Redis {
	return &Redis{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		log:    log.Named("lock.redis"),
		ttl:    defaultRedisTTL,
		wait:   defaultWait,
	}
}

func (l *Redis) Lock(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, errors.New("lock key is empty")
	}
	key = redisKeyPrefix + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	for {
		ok, err := l.client.SetNX(waitCtx, key, token, l.ttl).Result()
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, ErrTimeout
			}
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-waitCtx.Done():
			return nil, ErrTimeout
		case <-time.After(defaultRetryDelay):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := l.script.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.log.Warn("lock release failed", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}
