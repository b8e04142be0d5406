// Package config resolves runtime settings from an optional .env file and
// the environment. Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables.
const (
	EnvDB        = "PROMOTE_DB"
	EnvRedisAddr = "PROMOTE_REDIS_ADDR"
	EnvLockTTL   = "PROMOTE_LOCK_TTL"
)

// DefaultDB is the database path when none is configured.
const DefaultDB = "promote.db"

// MinLockTTL is the shortest lock lease Redis can hold.
const MinLockTTL = time.Millisecond

// Config holds runtime settings.
type Config struct {
	// DB is the SQLite database path.
	DB string

	// RedisAddr enables the Redis project lock when set. Empty means the
	// in-process lock.
	RedisAddr string

	// LockTTL is the Redis lease duration. Zero means the lock default.
	LockTTL time.Duration
}

// Load reads envFile, if it exists, into the process environment without
// overriding variables that are already set, then resolves Config from the
// environment. An empty envFile skips the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv resolves Config through lookup.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Config{DB: DefaultDB}
	if v, ok := lookup(EnvDB); ok && v != "" {
		cfg.DB = v
	}
	if v, ok := lookup(EnvRedisAddr); ok {
		cfg.RedisAddr = v
	}
	if v, ok := lookup(EnvLockTTL); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLockTTL, err)
		}
		if err := CheckLockTTL(ttl); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLockTTL, err)
		}
		cfg.LockTTL = ttl
	}
	return cfg, nil
}

// CheckLockTTL rejects lock leases shorter than MinLockTTL.
func CheckLockTTL(ttl time.Duration) error {
	if ttl < MinLockTTL {
		return fmt.Errorf("lock ttl must be at least %s, got %s", MinLockTTL, ttl)
	}
	return nil
}
