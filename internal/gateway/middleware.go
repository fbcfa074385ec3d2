package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/carelink/patient-admin/pkg/logger"
	"github.com/carelink/patient-admin/pkg/types"
)

// contextKey is a private type so request context values cannot collide
// with keys set by other packages.
type contextKey string

const claimsContextKey contextKey = "user_claims"

// ContextWithClaims returns a context carrying the acting user's claims
func ContextWithClaims(ctx context.Context, claims *types.UserClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext extracts the acting user's claims from a request context
func ClaimsFromContext(ctx context.Context) (*types.UserClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*types.UserClaims)
	return claims, ok
}

// UserIDFromContext extracts the acting user's ID from a request context
func UserIDFromContext(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok {
		return claims.UserID
	}
	return ""
}

// Middleware bundles the cross-cutting HTTP concerns applied to every route
type Middleware struct {
	validator *TokenValidator
	limiter   *RateLimiter
	logger    *logger.Logger
}

// NewMiddleware creates the middleware chain components. limiter may be nil
// to disable rate limiting.
func NewMiddleware(validator *TokenValidator, limiter *RateLimiter, log *logger.Logger) *Middleware {
	return &Middleware{
		validator: validator,
		limiter:   limiter,
		logger:    log,
	}
}

// CORS handles cross-origin headers and preflight requests
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*") // Configure appropriately for production
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Logging logs each request with its status and duration
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(recorder, r)

		m.logger.WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
			"status_code": recorder.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Request processed")
	})
}

// Auth validates the bearer token and stores the acting user's claims in the
// request context. Health and metrics endpoints are exempt.
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.writeError(w, http.StatusUnauthorized, types.ErrCodeUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.writeError(w, http.StatusUnauthorized, types.ErrCodeUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := m.validator.ValidateJWT(parts[1])
		if err != nil {
			m.logger.WithError(err).Warn("Token validation failed")
			m.writeError(w, http.StatusUnauthorized, types.ErrCodeUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

// RateLimit throttles requests per acting user. It must run after Auth.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.limiter == nil || r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		clientID := UserIDFromContext(r.Context())
		if clientID == "" {
			// Unauthenticated paths fall back to the remote address
			clientID = r.RemoteAddr
		}

		if !m.limiter.Allow(clientID) {
			m.logger.WithUserID(clientID).Warn("Rate limit exceeded")
			m.writeError(w, http.StatusTooManyRequests, types.ErrCodeRateLimitExceeded, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeError writes a JSON error envelope
func (m *Middleware) writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// responseRecorder captures the response status code for logging
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
