package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keyserve/keyserve/internal/handler/dto"
	"github.com/keyserve/keyserve/internal/identity"
	"github.com/keyserve/keyserve/internal/metrics"
	"github.com/keyserve/keyserve/internal/store"
)

// LookupHandler serves the shared-secret machine path.
// Deliberately narrower than the bearer path: read-only, key material
// only, no comments or timestamps.
type LookupHandler struct {
	store   store.Store
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewLookupHandler creates a new LookupHandler.
func NewLookupHandler(s store.Store, logger *slog.Logger, recorder metrics.Recorder) *LookupHandler {
	return &LookupHandler{
		store:   s,
		logger:  logger,
		metrics: recorder,
	}
}

// KeysByEmail handles GET /api/v1/users/{email}/keys.
//
// Responds with the user's public keys as newline-separated plain text,
// ready for an authorized_keys file. An unknown email yields an empty
// body, not an error: the machine path cannot probe which emails have
// accounts.
func (l *LookupHandler) KeysByEmail(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	email := chi.URLParam(r, "email")
	// chi matches on RawPath when the URL needed escaping, so the
	// param can arrive still percent-encoded. Decode only in that
	// case; when RawPath is empty the param is already decoded and a
	// second pass would corrupt emails containing a literal escape.
	if r.URL.RawPath != "" {
		if decoded, err := url.PathUnescape(email); err == nil {
			email = decoded
		}
	}
	if email == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "email is required",
			Code:  "MISSING_EMAIL",
		})
		return
	}

	userKey := identity.Hash(email)

	set, err := l.store.List(r.Context(), userKey)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			l.logger.Error("credential store unavailable",
				slog.String("error", err.Error()),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
			)
			writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{
				Error: "Storage backend unavailable",
				Code:  "STORE_UNAVAILABLE",
			})
			return
		}
		l.logger.Error("store operation failed",
			slog.String("error", err.Error()),
			slog.String("endpoint", r.Method+" "+r.URL.Path),
		)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error: "Internal server error",
			Code:  "INTERNAL",
		})
		return
	}

	l.metrics.IncLookup()
	l.metrics.ObserveLookupDuration(time.Since(start))
	l.logger.Info("key_lookup",
		slog.String("user_hash", userKey.String()),
		slog.Int("key_count", len(set)),
	)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(strings.Join(set.Keys(), "\n")))
}
