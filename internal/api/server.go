package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

import (
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

import (
	"github.com/grocerfind/edge-gateway/internal/config"
	"github.com/grocerfind/edge-gateway/internal/health"
	"github.com/grocerfind/edge-gateway/internal/identity"
	"github.com/grocerfind/edge-gateway/internal/limiter"
	"github.com/grocerfind/edge-gateway/internal/proxy"
	"github.com/grocerfind/edge-gateway/internal/token"
)

// Server sequences the per-request pipeline: rate limit, then token
// validation on protected routes, then forwarding. It holds no durable state
// of its own.
type Server struct {
	cfg       *config.Config
	resolver  *identity.Resolver
	limiter   limiter.Limiter
	validator *token.Validator
	forwarder *proxy.Forwarder
	health    *health.Aggregator
	logger    *slog.Logger
}

func NewServer(cfg *config.Config, lim limiter.Limiter, validator *token.Validator, forwarder *proxy.Forwarder, agg *health.Aggregator, logger *slog.Logger) *Server {
	if lim == nil || validator == nil || forwarder == nil || agg == nil {
		panic("api: nil dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		resolver:  identity.NewResolver(),
		limiter:   lim,
		validator: validator,
		forwarder: forwarder,
		health:    agg,
		logger:    logger,
	}
}

func (s *Server) RegisterRoutes(r *mux.Router) {
	r.Use(s.recoverMiddleware)
	r.Use(s.rateLimitMiddleware)

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Public routes: registration, login and price reads skip token validation.
	api.HandleFunc("/auth/login", s.forwardTo(proxy.ServiceAuth, staticPath("/token"))).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", s.forwardTo(proxy.ServiceAuth, staticPath("/register"))).Methods(http.MethodPost)
	api.HandleFunc("/prices/compare/{productID}", s.forwardTo(proxy.ServicePrice, stripAPIPrefix)).Methods(http.MethodGet)
	api.HandleFunc("/prices/product/{productID}", s.forwardTo(proxy.ServicePrice, stripAPIPrefix)).Methods(http.MethodGet)

	// Everything below requires a verified bearer credential.
	protected := api.NewRoute().Subrouter()
	protected.Use(s.authMiddleware)
	protected.HandleFunc("/users/me", s.forwardTo(proxy.ServiceUser, stripAPIPrefix)).Methods(http.MethodGet, http.MethodPut)
	protected.HandleFunc("/users/me/shopping-lists", s.forwardTo(proxy.ServiceUser, stripAPIPrefix)).Methods(http.MethodGet, http.MethodPost)
	protected.HandleFunc("/users/me/shopping-lists/{listID}", s.forwardTo(proxy.ServiceUser, stripAPIPrefix)).Methods(http.MethodGet, http.MethodPut, http.MethodDelete)
	protected.HandleFunc("/prices", s.forwardTo(proxy.ServicePrice, stripAPIPrefix)).Methods(http.MethodPost)
}

// Handler builds the root handler, applying the CORS policy when enabled.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.RegisterRoutes(r)
	if !s.cfg.CORS.Enabled {
		return r
	}

	opts := []handlers.CORSOption{
		handlers.AllowedOrigins(orDefault(s.cfg.CORS.AllowedOrigins, []string{"*"})),
		handlers.AllowedMethods(orDefault(s.cfg.CORS.AllowedMethods,
			[]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete})),
		handlers.AllowedHeaders(orDefault(s.cfg.CORS.AllowedHeaders,
			[]string{"Authorization", "Content-Type"})),
	}
	return handlers.CORS(opts...)(r)
}

func orDefault(v, def []string) []string {
	if len(v) > 0 {
		return v
	}
	return def
}

func errResp(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
