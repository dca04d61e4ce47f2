package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

import (
	"github.com/grocerfind/edge-gateway/internal/proxy"
)

// pathRewrite maps an inbound gateway path to the collaborator's path.
type pathRewrite func(r *http.Request) string

func staticPath(path string) pathRewrite {
	return func(*http.Request) string { return path }
}

func stripAPIPrefix(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, "/api")
}

// forwardTo builds a handler that relays the request to one collaborator and
// renders the outcome. Upstream responses pass through verbatim, including
// 4xx like a 404 for a missing shopping list; only transport failures are
// collapsed into 503.
func (s *Server) forwardTo(service string, rewrite pathRewrite) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.forwarder.Do(r.Context(), service, r.Method, rewrite(r), r.URL.Query(), r.Header, r.Body)
		if err != nil {
			if errors.Is(err, proxy.ErrUnavailable) {
				errResp(w, http.StatusServiceUnavailable, service+" service is currently unavailable")
				return
			}
			s.logger.Error("forwarding failed", "service", service, "path", r.URL.Path, "err", err)
			errResp(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		if ct := res.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(res.StatusCode)
		_, _ = w.Write(res.Body)
	}
}

// healthHandler reports the aggregate verdict: 200 when every collaborator
// and the counter store are healthy, 503 otherwise.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}
