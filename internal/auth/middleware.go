package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/graphmemory/graphmemory/pkg/types"
)

type principalKey struct{}

// PrincipalFromContext returns the Principal attached by RequireAuth, or
// nil if none is present (unauthenticated routes such as /health).
func PrincipalFromContext(ctx context.Context) *types.Principal {
	p, _ := ctx.Value(principalKey{}).(*types.Principal)
	return p
}

// ContextWithPrincipal attaches principal to ctx the same way RequireAuth
// does, for callers (and tests) that need to seed a context without going
// through an HTTP round trip.
func ContextWithPrincipal(ctx context.Context, principal *types.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": "UNAUTHORIZED"})
}

// RequireAuth enforces spec §4.11's bearer authentication policy: every
// request other than the ones matching an exempt path requires
// Authorization: Bearer <raw_token>. On success the derived Principal is
// attached to the request context for downstream handlers/dispatcher.
//
// Grounded on web/handlers/middleware.go's RequireAuth, generalized from a
// single static comparison into a Manager.Authenticate lookup.
func RequireAuth(next http.Handler, manager *Manager, exemptPaths ...string) http.Handler {
	exempt := make(map[string]bool, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if exempt[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == header && header != "" {
			writeUnauthorized(w, "malformed Authorization header")
			return
		}

		principal, err := manager.Authenticate(r.Context(), raw)
		if err != nil {
			writeUnauthorized(w, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimiter wraps a single sustained-rate/burst limiter shared across all
// requests, matching web/handlers/middleware.go's RateLimiter shape.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing reqPerSec sustained requests
// per second with the given burst allowance.
func NewRateLimiter(reqPerSec float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(reqPerSec), burst)}
}

// RateLimitMiddleware rejects requests once the limiter's budget is spent.
func RateLimitMiddleware(next http.Handler, rl *RateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded", "code": "RATE_LIMITED"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission rejects the request unless the attached Principal
// carries perm. Must run after RequireAuth.
func RequirePermission(next http.Handler, perm types.Permission) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		if principal == nil || !principal.HasPermission(perm) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "forbidden", "code": "FORBIDDEN"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
