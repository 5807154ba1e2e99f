package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/keyserve/keyserve/internal/auth"
)

// BearerConfig holds configuration for the bearer auth middleware.
type BearerConfig struct {
	Logger   *slog.Logger
	Verifier auth.TokenVerifier
}

// Bearer returns a middleware that authenticates self-service requests.
// It extracts the bearer token from the Authorization header, verifies
// it, resolves the caller's identity from the claims, and injects that
// identity into the request context. The identity is authoritative: a
// bearer-authenticated caller can only ever act on their own records.
func Bearer(cfg BearerConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("path", "bearer"),
					slog.String("reason", "missing_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			claims, err := cfg.Verifier.Verify(r.Context(), token)
			if err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("path", "bearer"),
					slog.String("reason", "invalid_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			id, err := claims.Identity()
			if err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("path", "bearer"),
					slog.String("reason", "missing_identity_claim"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			ctx := auth.ContextWithIdentity(r.Context(), &id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken extracts the token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// writeAuthError writes a 401 Unauthorized response.
// Both auth paths use the same body for every failure mode so callers
// cannot tell which check rejected them.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Invalid credentials"}}`))
}
