package repo

import (
	"testing"
)

import (
	"github.com/grocerfind/edge-gateway/internal/config"
)

func TestKeyTemplates(t *testing.T) {
	r := &RedisRepo{Prefix: "gateway"}
	if got := r.KeyRate("10.0.0.1", "/api/prices"); got != "gateway:rate:{10.0.0.1}:/api/prices" {
		t.Fatalf("KeyRate = %s", got)
	}
}

func TestBuildOptions(t *testing.T) {
	opts := buildOptions(config.RedisCfg{
		Addr:          "127.0.0.1:6379",
		DB:            2,
		PoolSize:      8,
		DialTimeoutMs: 500,
	})
	if opts.Addr != "127.0.0.1:6379" || opts.DB != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.PoolSize != 8 {
		t.Fatalf("pool size = %d", opts.PoolSize)
	}
	if opts.DialTimeout.Milliseconds() != 500 {
		t.Fatalf("dial timeout = %s", opts.DialTimeout)
	}
	if opts.ReadTimeout != 0 {
		t.Fatalf("read timeout should stay at client default, got %s", opts.ReadTimeout)
	}
}
