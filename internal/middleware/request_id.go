// Package middleware provides the HTTP middleware chain for the
// keyserve API.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// contextKey is a private type so middleware context values cannot
// collide with keys from other packages.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	traceIDKey   contextKey = "trace_id"
)

// Correlation headers. A request ID identifies one HTTP exchange; a
// trace ID, when a caller supplies one, ties the exchange to a larger
// workflow such as a host provisioning run that performs several
// key lookups.
const (
	RequestIDHeader = "X-Request-ID"
	TraceIDHeader   = "X-Trace-ID"
)

// RequestID tags every request with a correlation ID and echoes it in
// the response. An inbound X-Request-ID is kept as-is so client
// retries correlate across attempts; otherwise a fresh UUID is minted.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)

		if trace := r.Header.Get(TraceIDHeader); trace != "" {
			w.Header().Set(TraceIDHeader, trace)
			ctx = context.WithValue(ctx, traceIDKey, trace)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request's correlation ID, or "" when the
// RequestID middleware has not run.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetTraceID returns the caller-supplied trace ID, or "".
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}
