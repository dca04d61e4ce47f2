package repo

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

import (
	"github.com/redis/go-redis/v9"
)

import (
	"github.com/grocerfind/edge-gateway/internal/config"
)

// Key templates for better readability and maintainability
const (
	keyRateTmpl = "%s:rate:{%s}:%s"
)

// Preloaded Lua scripts
var (
	// Atomic fixed-window counter: the first increment of a key starts its window.
	incrExpireScript = redis.NewScript(`
		local cnt = redis.call('INCR', KEYS[1])
		if cnt == 1 then
			redis.call('PEXPIRE', KEYS[1], ARGV[1])
		end
		return cnt
	`)
)

// CounterStore is the shared counter interface consumed by the rate limiter
// and the health aggregator (easy to mock/test).
type CounterStore interface {
	KeyRate(client, route string) string
	IncrAndExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

type RedisRepo struct {
	Prefix         string
	Cli            *redis.Client
	logger         *slog.Logger
	defaultTimeout time.Duration // Unified timeout config
}

// NewRedis with functional options for flexibility.
// Connectivity is not checked here: the limiter fails open when the store is
// unreachable, so a down Redis must not prevent gateway startup.
func NewRedis(cfg *config.Config, logger *slog.Logger, opts ...Option) *RedisRepo {
	if logger == nil {
		logger = slog.Default()
	}

	r := &RedisRepo{
		Prefix:         cfg.Redis.Prefix,
		logger:         logger,
		defaultTimeout: 100 * time.Millisecond, // Default, can be overridden
	}

	// Apply options
	for _, opt := range opts {
		opt(r)
	}

	r.Cli = redis.NewClient(buildOptions(cfg.Redis))
	return r
}

func buildOptions(cfg config.RedisCfg) *redis.Options {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeoutMs > 0 {
		opts.DialTimeout = time.Duration(cfg.DialTimeoutMs) * time.Millisecond
	}
	if cfg.ReadTimeoutMs > 0 {
		opts.ReadTimeout = time.Duration(cfg.ReadTimeoutMs) * time.Millisecond
	}
	if cfg.WriteTimeoutMs > 0 {
		opts.WriteTimeout = time.Duration(cfg.WriteTimeoutMs) * time.Millisecond
	}
	return opts
}

// Option pattern for custom configurations
type Option func(*RedisRepo)

func WithDefaultTimeout(d time.Duration) Option {
	return func(r *RedisRepo) { r.defaultTimeout = d }
}

// withTimeout helper to reduce repetition
func (r *RedisRepo) withTimeout(ctx context.Context, opTimeout time.Duration) (context.Context, context.CancelFunc) {
	if opTimeout == 0 {
		opTimeout = r.defaultTimeout
	}
	return context.WithTimeout(ctx, opTimeout)
}

// KeyRate builds the fixed-window counter key for one client+route pair.
func (r *RedisRepo) KeyRate(client, route string) string {
	return fmt.Sprintf(keyRateTmpl, r.Prefix, client, route)
}

// IncrAndExpire increments key atomically, starting a ttl window on first hit.
func (r *RedisRepo) IncrAndExpire(parentCtx context.Context, key string, ttl time.Duration) (int64, error) {
	ctx, cancel := r.withTimeout(parentCtx, 0)
	defer cancel()
	ttlMs := ttl.Milliseconds()
	if ttlMs <= 0 {
		ttlMs = 1
	}
	res, err := incrExpireScript.Run(ctx, r.Cli, []string{key}, ttlMs).Int64()
	if err != nil {
		r.logger.Debug("counter increment failed", "key", key, "err", err)
		return 0, fmt.Errorf("lua script execution failed for key %s: %w", key, err)
	}
	return res, nil
}

// Ping reports counter store reachability for the health aggregator.
func (r *RedisRepo) Ping(parentCtx context.Context) error {
	ctx, cancel := r.withTimeout(parentCtx, 2*time.Second)
	defer cancel()
	return r.Cli.Ping(ctx).Err()
}

func (r *RedisRepo) Close() error {
	return r.Cli.Close()
}
