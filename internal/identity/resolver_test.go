package identity

import (
	"net/http/httptest"
	"testing"
)

func TestResolveRemoteAddr(t *testing.T) {
	r := NewResolver()
	req := httptest.NewRequest("GET", "/api/prices/compare/p1", nil)
	req.RemoteAddr = "10.1.2.3:51234"

	key, err := r.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if key.IP != "10.1.2.3" {
		t.Fatalf("ip = %q", key.IP)
	}
	if key.Key != "10.1.2.3:/api/prices/compare/p1" {
		t.Fatalf("key = %q", key.Key)
	}
}

func TestResolvePrefersForwardedHeader(t *testing.T) {
	r := NewResolver()
	req := httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "192.168.0.1:80"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	key, err := r.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if key.IP != "203.0.113.7" {
		t.Fatalf("ip = %q", key.IP)
	}
	if key.Route != "/health" {
		t.Fatalf("route = %q", key.Route)
	}
}

func TestResolveSameClientDifferentRoutes(t *testing.T) {
	r := NewResolver()
	a := httptest.NewRequest("GET", "/api/users/me", nil)
	a.RemoteAddr = "10.1.2.3:1000"
	b := httptest.NewRequest("GET", "/api/prices", nil)
	b.RemoteAddr = "10.1.2.3:2000"

	ka, _ := r.Resolve(a)
	kb, _ := r.Resolve(b)
	if ka.Key == kb.Key {
		t.Fatalf("expected distinct keys per route, both = %q", ka.Key)
	}
}

func TestResolveNilRequest(t *testing.T) {
	r := NewResolver()
	if _, err := r.Resolve(nil); err == nil {
		t.Fatal("expected error for nil request")
	}
}
