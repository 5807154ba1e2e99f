package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/keyserve/keyserve/internal/auth"
)

// stubVerifier maps exact raw tokens to claim sets.
type stubVerifier struct {
	tokens map[string]auth.Claims
}

func (v *stubVerifier) Verify(ctx context.Context, rawToken string) (auth.Claims, error) {
	claims, ok := v.tokens[rawToken]
	if !ok {
		return auth.Claims{}, auth.ErrUnauthenticated
	}
	return claims, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBearer(t *testing.T) {
	verifier := &stubVerifier{tokens: map[string]auth.Claims{
		"good-token":      {PreferredUsername: "alice@example.com"},
		"email-only":      {Email: "bob@example.com"},
		"claimless-token": {},
	}}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantEmail  string
	}{
		{
			name:       "valid token resolves preferred_username",
			authHeader: "Bearer good-token",
			wantStatus: http.StatusOK,
			wantEmail:  "alice@example.com",
		},
		{
			name:       "valid token falls back to email claim",
			authHeader: "Bearer email-only",
			wantStatus: http.StatusOK,
			wantEmail:  "bob@example.com",
		},
		{
			name:       "missing header rejected",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non-bearer scheme rejected",
			authHeader: "Basic Zm9vOmJhcg==",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown token rejected",
			authHeader: "Bearer bad-token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "token without identity claims rejected",
			authHeader: "Bearer claimless-token",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotEmail string
			handler := Bearer(BearerConfig{Logger: testLogger(), Verifier: verifier})(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					gotEmail = auth.MustIdentityFromContext(r.Context()).Email
					w.WriteHeader(http.StatusOK)
				}),
			)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && gotEmail != tt.wantEmail {
				t.Errorf("identity email = %q, want %q", gotEmail, tt.wantEmail)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				body := rec.Body.String()
				if body != `{"error":{"code":"UNAUTHORIZED","message":"Invalid credentials"}}` {
					t.Errorf("401 body must be uniform, got %s", body)
				}
			}
		})
	}
}
