package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/keyserve/keyserve/internal/secrets"
)

// APIKeyHeader is the request header carrying the shared secret.
const APIKeyHeader = "x-api-key"

const (
	// minAuthDuration is the minimum time to spend on shared-secret
	// auth. It masks whether a secret-cache refresh happened during
	// verification, so a cold cache is indistinguishable from a warm
	// one with a wrong secret.
	minAuthDuration = 200 * time.Millisecond
)

// APIKeyConfig holds configuration for the shared-secret auth middleware.
type APIKeyConfig struct {
	Logger  *slog.Logger
	Secrets *secrets.Cache
}

// APIKey returns a middleware that authenticates machine requests.
// The caller-supplied header value is checked against the cached secret
// set in constant time. This path grants read-only lookup and nothing
// else; it never establishes a user identity.
func APIKey(cfg APIKeyConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()

			// Ensure consistent timing regardless of outcome
			defer func() {
				elapsed := time.Since(startTime)
				if elapsed < minAuthDuration {
					time.Sleep(minAuthDuration - elapsed)
				}
			}()

			supplied := r.Header.Get(APIKeyHeader)
			if supplied == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("path", "api_key"),
					slog.String("reason", "missing_key"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			ok, err := cfg.Secrets.Verify(r.Context(), supplied)
			if err != nil {
				// Secret source unreachable with a cold cache. Reject
				// with the uniform body; the operational detail stays
				// in the log.
				cfg.Logger.Error("secret verification unavailable",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			if !ok {
				cfg.Logger.Warn("authentication failed",
					slog.String("path", "api_key"),
					slog.String("reason", "invalid_key"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
