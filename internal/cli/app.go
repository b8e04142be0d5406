package cli

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/promote/internal/lock"
	"github.com/roach88/promote/internal/release"
	"github.com/roach88/promote/internal/source"
	"github.com/roach88/promote/internal/store"
)

// app is the wiring shared by commands that touch the database.
type app struct {
	store   *store.Store
	service *release.Service
	redis   *redis.Client
}

// openApp opens the configured database and builds the release service.
// Failures are reported through formatter. The caller must Close it.
func openApp(opts *RootOptions, formatter *OutputFormatter) (*app, error) {
	cfg := opts.Config

	st, err := store.Open(cfg.DB)
	if err != nil {
		msg := fmt.Sprintf("open database %s", cfg.DB)
		_ = formatter.Error(ErrCodeConfig, fmt.Sprintf("%s: %v", msg, err), nil)
		return nil, WrapExitError(ExitCommandError, msg, err)
	}
	a := &app{store: st}

	var locker lock.Locker = lock.NewMemory()
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		lockOpts := []lock.RedisOption{lock.WithLogger(opts.Logger)}
		if cfg.LockTTL > 0 {
			lockOpts = append(lockOpts, lock.WithTTL(cfg.LockTTL))
		}
		locker = lock.NewRedis(a.redis, lockOpts...)
	}

	a.service = release.New(release.Deps{
		Live:      st,
		Mappings:  st,
		Snapshots: st,
		Releases:  st,
		Users:     st,
		Git:       source.NewGit(st),
	},
		release.WithLocker(locker),
		release.WithLogger(opts.Logger),
	)
	return a, nil
}

// Close releases the database and the Redis client.
func (a *app) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}
