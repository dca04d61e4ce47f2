package limiter

import (
	"context"
	"log/slog"
	"time"
)

import (
	"github.com/grocerfind/edge-gateway/internal/config"
	"github.com/grocerfind/edge-gateway/internal/identity"
	"github.com/grocerfind/edge-gateway/internal/repo"
	"github.com/grocerfind/edge-gateway/internal/types"
)

// Limiter decides whether a client+route pair is admitted.
type Limiter interface {
	Allow(ctx context.Context, key identity.ClientKey) types.Decision
}

// FixedWindow counts requests per client+route in fixed windows backed by the
// shared counter store. The first increment of a key starts its window; once
// the count exceeds the ceiling every further request is rejected until the
// counter expires. A burst straddling a window boundary can admit up to twice
// the ceiling; that approximation is intentional.
type FixedWindow struct {
	store  repo.CounterStore
	limit  int64
	window time.Duration
	bypass bool
	logger *slog.Logger
}

func NewFixedWindow(store repo.CounterStore, cfg config.RateLimitCfg, logger *slog.Logger) *FixedWindow {
	if store == nil && !cfg.Bypass {
		panic("limiter: nil counter store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FixedWindow{
		store:  store,
		limit:  cfg.PerMinute,
		window: time.Duration(cfg.WindowSec) * time.Second,
		bypass: cfg.Bypass,
		logger: logger,
	}
}

// Allow increments the window counter and compares against the ceiling.
// When the counter store is unreachable the limiter fails open: the request
// is admitted and the outage is surfaced in logs only.
func (f *FixedWindow) Allow(ctx context.Context, key identity.ClientKey) types.Decision {
	if f.bypass {
		return types.Decision{Allowed: true, Remaining: f.limit, Reason: "bypassed"}
	}

	count, err := f.store.IncrAndExpire(ctx, f.store.KeyRate(key.IP, key.Route), f.window)
	if err != nil {
		f.logger.Warn("counter store unreachable, admitting request",
			"client", key.IP, "route", key.Route, "err", err)
		return types.Decision{Allowed: true, Remaining: f.limit, Reason: "store_unavailable", Err: err}
	}

	if count > f.limit {
		return types.Decision{
			Allowed:      false,
			Remaining:    0,
			RetryAfterMs: f.window.Milliseconds(),
			Reason:       "rate_limited",
		}
	}

	return types.Decision{Allowed: true, Remaining: f.limit - count, Reason: "allowed"}
}
