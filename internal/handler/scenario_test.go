package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keyserve/keyserve/internal/auth"
	"github.com/keyserve/keyserve/internal/metrics"
	"github.com/keyserve/keyserve/internal/middleware"
	"github.com/keyserve/keyserve/internal/secrets"
	"github.com/keyserve/keyserve/internal/store"
)

// tokenStub verifies exact raw tokens against a fixed claim table.
type tokenStub map[string]auth.Claims

func (s tokenStub) Verify(ctx context.Context, rawToken string) (auth.Claims, error) {
	claims, ok := s[rawToken]
	if !ok {
		return auth.Claims{}, auth.ErrUnauthenticated
	}
	return claims, nil
}

// newTestRouter wires both auth paths the way cmd/api does.
func newTestRouter(t *testing.T, s store.Store, verifier auth.TokenVerifier, secret string) *chi.Mux {
	t.Helper()

	logger := testLogger()
	recorder := metrics.NewNoop()
	cache := secrets.NewCache(secrets.StaticSource{secret}, time.Minute, logger)

	userHandler := NewUserHandler(s, logger, recorder)
	lookupHandler := NewLookupHandler(s, logger, recorder)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Bearer(middleware.BearerConfig{Logger: logger, Verifier: verifier}))
			r.Get("/users/me", userHandler.Me)
			r.Put("/users/me/keys", userHandler.PutKey)
			r.Delete("/users/me/keys", userHandler.DeleteKey)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKey(middleware.APIKeyConfig{Logger: logger, Secrets: cache}))
			r.Get("/users/{email}/keys", lookupHandler.KeysByEmail)
		})
	})
	return r
}

// TestScenario_RegisterDeleteLookup walks the full dual-path flow:
// register two keys over the bearer path, delete one, then confirm the
// machine path returns exactly the remaining key.
func TestScenario_RegisterDeleteLookup(t *testing.T) {
	verifier := tokenStub{"alice-token": {PreferredUsername: "alice@example.com"}}
	r := newTestRouter(t, store.NewMemory(), verifier, "machine-secret")

	do := func(method, target, body, bearer, apiKey string) *httptest.ResponseRecorder {
		t.Helper()
		var reader *strings.Reader
		if body != "" {
			reader = strings.NewReader(body)
		} else {
			reader = strings.NewReader("")
		}
		req := httptest.NewRequest(method, target, reader)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		if apiKey != "" {
			req.Header.Set(middleware.APIKeyHeader, apiKey)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	// Register two keys.
	for _, body := range []string{
		`{"ssh_key":"ssh-ed25519 FIRST","comment":"laptop"}`,
		`{"ssh_key":"ssh-ed25519 SECOND","comment":"desktop"}`,
	} {
		if rec := do(http.MethodPut, "/api/v1/users/me/keys", body, "alice-token", ""); rec.Code != http.StatusOK {
			t.Fatalf("PutKey status = %d: %s", rec.Code, rec.Body.String())
		}
	}

	// Delete the first.
	if rec := do(http.MethodDelete, "/api/v1/users/me/keys",
		`{"ssh_key":"ssh-ed25519 FIRST"}`, "alice-token", ""); rec.Code != http.StatusOK {
		t.Fatalf("DeleteKey status = %d: %s", rec.Code, rec.Body.String())
	}

	// Machine lookup returns exactly the remaining key.
	lookup := "/api/v1/users/" + url.PathEscape("alice@example.com") + "/keys"
	rec := do(http.MethodGet, lookup, "", "", "machine-secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "ssh-ed25519 SECOND" {
		t.Errorf("lookup body = %q, want only the remaining key", got)
	}
}

func TestScenario_PathsDoNotCross(t *testing.T) {
	verifier := tokenStub{"alice-token": {PreferredUsername: "alice@example.com"}}
	r := newTestRouter(t, store.NewMemory(), verifier, "machine-secret")

	// A shared secret grants no access to bearer-path endpoints.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set(middleware.APIKeyHeader, "machine-secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("shared secret on bearer endpoint: status = %d, want 401", rec.Code)
	}

	// A bearer token grants no access to the machine lookup.
	lookup := "/api/v1/users/" + url.PathEscape("alice@example.com") + "/keys"
	req = httptest.NewRequest(http.MethodGet, lookup, nil)
	req.Header.Set("Authorization", "Bearer alice-token")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bearer token on machine endpoint: status = %d, want 401", rec.Code)
	}
}
