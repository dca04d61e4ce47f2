package api

import (
	"context"
	"net/http"
	"strconv"
)

import (
	"github.com/grocerfind/edge-gateway/internal/token"
)

type contextKey string

const claimsKey contextKey = "claims"

// ClaimsFrom returns the verified claims attached by the auth middleware.
func ClaimsFrom(ctx context.Context) (token.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(token.Claims)
	return claims, ok
}

// recoverMiddleware turns panics into a generic 500; details stay in the logs.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic while handling request",
					"method", r.Method, "path", r.URL.Path, "panic", rec)
				errResp(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware runs first in the pipeline: abusive clients are turned
// away before any credential decoding or forwarding happens.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := s.resolver.Resolve(r)
		if err != nil {
			// No resolvable client address; nothing to count against.
			s.logger.Warn("client identity unresolved, skipping rate limit", "err", err)
			next.ServeHTTP(w, r)
			return
		}

		dec := s.limiter.Allow(r.Context(), key)

		if s.cfg.RateLimit.Headers {
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(s.cfg.RateLimit.PerMinute, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(dec.Remaining, 10))
		}

		if !dec.Allowed {
			s.logger.Info("request rate limited",
				"client", key.IP, "route", key.Route, "reason", dec.Reason)
			w.Header().Set("Retry-After", strconv.FormatInt((dec.RetryAfterMs+999)/1000, 10))
			errResp(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates the bearer credential on protected routes. Every
// failure kind renders 401; the kind is only visible in logs.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.validator.Validate(r.Header.Get("Authorization"))
		if err != nil {
			s.logger.Warn("authentication rejected",
				"path", r.URL.Path, "kind", token.Kind(err), "err", err)
			errResp(w, http.StatusUnauthorized, authDetail(err))
			return
		}

		s.logger.Debug("token valid", "subject", claims.Subject, "path", r.URL.Path)
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authDetail(err error) string {
	switch token.Kind(err) {
	case "malformed":
		return "Invalid authorization header format"
	case "expired":
		return "Token has expired"
	default:
		return "Invalid token"
	}
}
