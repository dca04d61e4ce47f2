package identity

import (
	"errors"
	"net"
	"net/http"
	"strings"
)

// ClientKey identifies one client+route pair for rate limiting.
// It lives for the duration of a request; counters built from it expire with
// their window.
type ClientKey struct {
	IP    string
	Route string
	Key   string
}

// Resolver resolves the rate-limit identity of an HTTP request.
type Resolver struct {
	IPHeader string
}

func NewResolver() *Resolver {
	return &Resolver{
		IPHeader: "X-Forwarded-For",
	}
}

// Resolve resolves the client address (forwarded header first, then the
// connection peer) and pairs it with the request route.
func (r *Resolver) Resolve(req *http.Request) (ClientKey, error) {
	if req == nil {
		return ClientKey{}, errors.New("nil request")
	}

	ip := parseForwardedIP(req.Header.Get(r.IPHeader))
	if ip == "" {
		ip = parseRemoteIP(req.RemoteAddr)
	}
	if ip == "" {
		return ClientKey{}, errors.New("no client address found")
	}

	route := req.URL.Path
	return ClientKey{
		IP:    ip,
		Route: route,
		Key:   ip + ":" + route,
	}, nil
}

func parseForwardedIP(value string) string {
	if value == "" {
		return ""
	}
	parts := strings.Split(value, ",")
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[0])
}

func parseRemoteIP(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err == nil && host != "" {
		return host
	}
	return remoteAddr
}
