package limiter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

import (
	"github.com/grocerfind/edge-gateway/internal/config"
	"github.com/grocerfind/edge-gateway/internal/identity"
)

type mockStore struct {
	counts  map[string]int64
	err     error
	lastTTL time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{counts: map[string]int64{}}
}

func (m *mockStore) KeyRate(client, route string) string {
	return fmt.Sprintf("gateway:rate:{%s}:%s", client, route)
}

func (m *mockStore) IncrAndExpire(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.counts[key]++
	m.lastTTL = ttl
	return m.counts[key], nil
}

func (m *mockStore) Ping(ctx context.Context) error { return m.err }
func (m *mockStore) Close() error                   { return nil }

func testKey() identity.ClientKey {
	return identity.ClientKey{IP: "10.0.0.1", Route: "/health", Key: "10.0.0.1:/health"}
}

func TestAllowUnderCeiling(t *testing.T) {
	store := newMockStore()
	fw := NewFixedWindow(store, config.RateLimitCfg{PerMinute: 3, WindowSec: 60}, nil)

	for i := 0; i < 3; i++ {
		dec := fw.Allow(context.Background(), testKey())
		if !dec.Allowed {
			t.Fatalf("request %d rejected: %+v", i+1, dec)
		}
		if want := int64(3 - i - 1); dec.Remaining != want {
			t.Fatalf("request %d remaining = %d, want %d", i+1, dec.Remaining, want)
		}
	}
	if store.lastTTL != 60*time.Second {
		t.Fatalf("window ttl = %s", store.lastTTL)
	}
}

func TestRejectOverCeiling(t *testing.T) {
	store := newMockStore()
	fw := NewFixedWindow(store, config.RateLimitCfg{PerMinute: 3, WindowSec: 60}, nil)

	for i := 0; i < 3; i++ {
		fw.Allow(context.Background(), testKey())
	}
	dec := fw.Allow(context.Background(), testKey())
	if dec.Allowed {
		t.Fatalf("4th request admitted: %+v", dec)
	}
	if dec.Reason != "rate_limited" {
		t.Fatalf("reason = %q", dec.Reason)
	}
	if dec.RetryAfterMs != 60000 {
		t.Fatalf("retry after = %d", dec.RetryAfterMs)
	}
}

func TestRejectedRequestsStillCount(t *testing.T) {
	store := newMockStore()
	fw := NewFixedWindow(store, config.RateLimitCfg{PerMinute: 1, WindowSec: 60}, nil)

	fw.Allow(context.Background(), testKey())
	fw.Allow(context.Background(), testKey())
	fw.Allow(context.Background(), testKey())

	key := store.KeyRate("10.0.0.1", "/health")
	if store.counts[key] != 3 {
		t.Fatalf("counter = %d, want 3 (rejections increment too)", store.counts[key])
	}
}

func TestDistinctKeysIndependent(t *testing.T) {
	store := newMockStore()
	fw := NewFixedWindow(store, config.RateLimitCfg{PerMinute: 1, WindowSec: 60}, nil)

	a := identity.ClientKey{IP: "10.0.0.1", Route: "/a"}
	b := identity.ClientKey{IP: "10.0.0.1", Route: "/b"}

	if dec := fw.Allow(context.Background(), a); !dec.Allowed {
		t.Fatalf("first request on /a rejected")
	}
	if dec := fw.Allow(context.Background(), b); !dec.Allowed {
		t.Fatalf("first request on /b rejected, keys not independent")
	}
}

func TestFailOpenOnStoreError(t *testing.T) {
	store := newMockStore()
	store.err = errors.New("connection refused")
	fw := NewFixedWindow(store, config.RateLimitCfg{PerMinute: 3, WindowSec: 60}, nil)

	for i := 0; i < 5; i++ {
		dec := fw.Allow(context.Background(), testKey())
		if !dec.Allowed {
			t.Fatalf("request %d blocked during store outage: %+v", i+1, dec)
		}
		if dec.Reason != "store_unavailable" {
			t.Fatalf("reason = %q", dec.Reason)
		}
		if dec.Err == nil {
			t.Fatal("expected degraded decision to carry the store error")
		}
	}
}

func TestBypassSkipsStore(t *testing.T) {
	store := newMockStore()
	fw := NewFixedWindow(store, config.RateLimitCfg{PerMinute: 1, WindowSec: 60, Bypass: true}, nil)

	for i := 0; i < 10; i++ {
		dec := fw.Allow(context.Background(), testKey())
		if !dec.Allowed || dec.Reason != "bypassed" {
			t.Fatalf("bypass decision = %+v", dec)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("bypass touched the store: %v", store.counts)
	}
}
