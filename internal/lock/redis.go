package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/promote/internal/idgen"
)

const (
	// DefaultTTL is the lease length of a Redis lock. The lease is renewed
	// while held, so it only bounds how long a crashed holder blocks others.
	DefaultTTL = 30 * time.Second

	// MinTTL is the shortest lease Redis can express; shorter TTLs are raised
	// to it.
	MinTTL = time.Millisecond

	defaultPrefix = "promote:lock:"
	defaultPoll   = 100 * time.Millisecond
)

var (
	// Acquires the lease if free or already ours. Returns 1 if held, 0 otherwise.
	acquireLua = `
local key = KEYS[1]
local owner = ARGV[1]
local ttlms = tonumber(ARGV[2])

local cur = redis.call('GET', key)
if not cur then
	redis.call('PSETEX', key, ttlms, owner)
	return 1
end
if cur == owner then
	redis.call('PEXPIRE', key, ttlms)
	return 1
end
return 0
`

	// Extends the lease if still ours. Returns 1 if renewed, 0 otherwise.
	renewLua = `
local key = KEYS[1]
local owner = ARGV[1]
local ttlms = tonumber(ARGV[2])

if redis.call('GET', key) == owner then
	redis.call('PEXPIRE', key, ttlms)
	return 1
end
return 0
`

	// Deletes the lease if still ours. Returns 1 if released, 0 otherwise.
	releaseLua = `
local key = KEYS[1]
local owner = ARGV[1]

if redis.call('GET', key) == owner then
	redis.call('DEL', key)
	return 1
end
return 0
`
)

// Redis is a Locker shared by every process using the same Redis server.
// Each lock is an owner-tagged key with a TTL, renewed in the background
// while held.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	poll   time.Duration
	owners idgen.Generator
	logger *slog.Logger
}

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithTTL sets the lease length, at least MinTTL. Non-positive values keep
// the default.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = max(ttl, MinTTL)
		}
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// WithPollInterval sets how often a blocked Lock retries.
func WithPollInterval(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.poll = d
		}
	}
}

// WithLogger sets the logger for lease renewal problems.
func WithLogger(l *slog.Logger) RedisOption {
	return func(r *Redis) { r.logger = l }
}

// NewRedis creates a Redis locker.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: defaultPrefix,
		ttl:    DefaultTTL,
		poll:   defaultPoll,
		owners: idgen.UUIDv7{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(projectID string) string {
	return r.prefix + projectID
}

// Lock implements Locker.
func (r *Redis) Lock(ctx context.Context, projectID string) (func(), error) {
	key := r.key(projectID)
	owner := r.owners.Generate()

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()
	for {
		ok, err := r.eval(ctx, acquireLua, key, owner, r.ttl.Milliseconds())
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", projectID, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", projectID, ctx.Err())
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.renew(key, owner, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := r.eval(ctx, releaseLua, key, owner); err != nil {
				r.logger.Warn("release lock", "key", key, "error", err)
			}
		})
	}, nil
}

// renew extends the lease at a third of its TTL until stop is closed.
func (r *Redis) renew(key, owner string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.ttl/3)
			ok, err := r.eval(ctx, renewLua, key, owner, r.ttl.Milliseconds())
			cancel()
			if err != nil {
				r.logger.Warn("renew lock", "key", key, "error", err)
				continue
			}
			if !ok {
				r.logger.Error("lock lost", "key", key)
				return
			}
		}
	}
}

func (r *Redis) eval(ctx context.Context, script, key string, args ...any) (bool, error) {
	res, err := r.client.Eval(ctx, script, []string{key}, args...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	switch v := res.(type) {
	case int64:
		return v == 1, nil
	case string:
		return v == "1", nil
	}
	return false, nil
}
