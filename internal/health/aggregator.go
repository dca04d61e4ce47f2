package health

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

import (
	"github.com/grocerfind/edge-gateway/internal/config"
	"github.com/grocerfind/edge-gateway/internal/proxy"
	"github.com/grocerfind/edge-gateway/internal/repo"
)

// Per-collaborator probe outcomes.
const (
	StatusHealthy     = "healthy"
	StatusUnhealthy   = "unhealthy"
	StatusUnavailable = "unavailable"
)

// Overall verdicts.
const (
	VerdictHealthy  = "healthy"
	VerdictDegraded = "degraded"
)

// StoreName is the counter store's entry in the report.
const StoreName = "redis"

// Report is one aggregate health snapshot. Nothing is retained between
// checks; every call starts fresh.
type Report struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// Aggregator probes every registered collaborator plus the counter store and
// joins the results into one verdict.
type Aggregator struct {
	registry proxy.Registry
	store    repo.CounterStore
	client   *http.Client
	timeout  time.Duration
	logger   *slog.Logger
}

func NewAggregator(registry proxy.Registry, store repo.CounterStore, cfg config.HealthCfg, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		registry: registry,
		store:    store,
		client:   &http.Client{},
		timeout:  time.Duration(cfg.ProbeTimeoutMs) * time.Millisecond,
		logger:   logger,
	}
}

// Check probes all collaborators concurrently. Wall-clock time is bounded by
// the single slowest probe, not the sum; one collaborator failing never
// blocks the others.
func (a *Aggregator) Check(ctx context.Context) Report {
	report := Report{
		Timestamp: time.Now().UTC(),
		Services:  make(map[string]string, len(a.registry)+1),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	record := func(name, status string) {
		mu.Lock()
		report.Services[name] = status
		mu.Unlock()
	}

	for _, name := range a.registry.Names() {
		base, _ := a.registry.BaseURL(name)
		wg.Add(1)
		go func(name, base string) {
			defer wg.Done()
			record(name, a.probe(ctx, name, base))
		}(name, base)
	}

	if a.store != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			if err := a.store.Ping(probeCtx); err != nil {
				a.logger.Error("health check failed for counter store", "err", err)
				record(StoreName, StatusUnavailable)
				return
			}
			record(StoreName, StatusHealthy)
		}()
	}

	wg.Wait()

	report.Status = VerdictHealthy
	for _, status := range report.Services {
		if status != StatusHealthy {
			report.Status = VerdictDegraded
			break
		}
	}
	return report
}

func (a *Aggregator) probe(ctx context.Context, name, base string) string {
	probeCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, base+"/health", nil)
	if err != nil {
		a.logger.Error("health probe build failed", "service", name, "err", err)
		return StatusUnavailable
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("health check failed", "service", name, "err", err)
		return StatusUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StatusUnhealthy
	}
	if !healthyBody(resp.Body) {
		return StatusUnhealthy
	}
	return StatusHealthy
}

// healthyBody checks the collaborator's self-reported status when it exposes
// one. Collaborators report their own dependency state here (the user service
// includes database connectivity); a 200 with a body that says otherwise is
// unhealthy, while a 200 without a parseable status field counts as healthy.
func healthyBody(body io.Reader) bool {
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return true
	}
	if payload.Status == "" {
		return true
	}
	switch strings.ToLower(payload.Status) {
	case "healthy", "ok", "connected", "up":
		return true
	default:
		return false
	}
}
