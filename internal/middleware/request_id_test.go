package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var fromCtx string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if fromCtx == "" {
		t.Fatal("no request ID in context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != fromCtx {
		t.Errorf("response header %q does not match context value %q", got, fromCtx)
	}
}

func TestRequestID_KeepsInboundID(t *testing.T) {
	var fromCtx string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if fromCtx != "client-supplied-id" {
		t.Errorf("request ID = %q, want client-supplied-id", fromCtx)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "client-supplied-id" {
		t.Errorf("response header = %q, want client-supplied-id", got)
	}
}

func TestRequestID_PropagatesTraceID(t *testing.T) {
	var trace string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trace = GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set(TraceIDHeader, "provision-run-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if trace != "provision-run-42" {
		t.Errorf("trace ID = %q, want provision-run-42", trace)
	}
	if got := rec.Header().Get(TraceIDHeader); got != "provision-run-42" {
		t.Errorf("trace header not echoed, got %q", got)
	}
}

func TestGetRequestID_EmptyContext(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID on bare context = %q, want empty", got)
	}
	if got := GetTraceID(context.Background()); got != "" {
		t.Errorf("GetTraceID on bare context = %q, want empty", got)
	}
}
