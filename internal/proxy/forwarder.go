package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"
)

import (
	"github.com/grocerfind/edge-gateway/internal/config"
)

// Collaborator names, used as registry keys and log fields.
const (
	ServiceAuth  = "auth"
	ServiceUser  = "user"
	ServicePrice = "price"
)

var (
	// ErrUnavailable marks transport-level failures (refused connection, DNS,
	// timeout). Upstream 4xx/5xx responses are not errors; they come back in
	// the Result untouched.
	ErrUnavailable = errors.New("service unavailable")

	// ErrUnknownService marks a forward to a name missing from the registry.
	ErrUnknownService = errors.New("unknown service")
)

// Registry maps collaborator names to base URLs. Read-only after startup.
type Registry map[string]string

func NewRegistry(cfg config.ServicesCfg) Registry {
	return Registry{
		ServiceAuth:  cfg.Auth,
		ServiceUser:  cfg.User,
		ServicePrice: cfg.Price,
	}
}

func (r Registry) BaseURL(name string) (string, bool) {
	base, ok := r[name]
	return base, ok
}

// Names returns the registered collaborator names in stable order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Result is an upstream response relayed verbatim: status code, headers and
// body exactly as the collaborator produced them.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Forwarder relays requests to registered collaborators with a bounded
// per-call timeout.
type Forwarder struct {
	registry Registry
	client   *http.Client
	timeout  time.Duration
	logger   *slog.Logger
}

func NewForwarder(registry Registry, cfg config.ForwardCfg, logger *slog.Logger) *Forwarder {
	if len(registry) == 0 {
		panic("proxy: empty registry")
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	return &Forwarder{
		registry: registry,
		client:   &http.Client{},
		timeout:  timeout,
		logger:   logger,
	}
}

// Do relays one call to the named collaborator. The deadline is detached from
// the inbound request context so a client disconnect lets the upstream call
// time out naturally instead of cancelling it.
func (f *Forwarder) Do(ctx context.Context, service, method, path string, query url.Values, header http.Header, body io.Reader) (*Result, error) {
	base, ok := f.registry.BaseURL(service)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, service)
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	target := base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(callCtx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request for %s: %w", service, err)
	}
	copyForwardHeaders(req.Header, header)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Error("upstream call failed", "service", service, "method", method, "path", path, "err", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, service, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		f.logger.Error("upstream body read failed", "service", service, "path", path, "err", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, service, err)
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       respBody,
	}, nil
}

// Hop-by-hop headers must not be relayed between connections.
var hopByHop = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

func copyForwardHeaders(dst, src http.Header) {
	for name, values := range src {
		if _, skip := hopByHop[http.CanonicalHeaderKey(name)]; skip {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}
