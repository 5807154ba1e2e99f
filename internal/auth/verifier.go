// Package auth provides caller identity verification for the bearer path.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/keyserve/keyserve/internal/model"
)

// ErrUnauthenticated indicates a missing, invalid, or claim-less token.
// Handlers surface it as a uniform 401 with no further detail.
var ErrUnauthenticated = errors.New("invalid credentials")

// Claims is the verified claim set extracted from a bearer token.
type Claims struct {
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
}

// Identity resolves the caller's identity from the claim set.
//
// Policy: preferred_username is authoritative; email is the fallback
// when preferred_username is absent. A token carrying neither claim is
// rejected. This ordered fallback is deliberate, not incidental - the
// identity provider populates preferred_username for directory accounts
// and only email for guest accounts.
func (c Claims) Identity() (model.Identity, error) {
	switch {
	case c.PreferredUsername != "":
		return model.Identity{Email: c.PreferredUsername}, nil
	case c.Email != "":
		return model.Identity{Email: c.Email}, nil
	default:
		return model.Identity{}, fmt.Errorf("%w: token carries no identity claim", ErrUnauthenticated)
	}
}

// TokenVerifier validates a raw bearer token and returns its claims.
// The verification flow itself (key discovery, signature, expiry,
// audience) is the implementation's concern.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (Claims, error)
}

// OIDCVerifier is a TokenVerifier backed by an OIDC provider.
// Provider metadata and signing keys are discovered once at
// construction and cached by the underlying library.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer's configuration and returns a
// verifier bound to the given client ID.
func NewOIDCVerifier(ctx context.Context, issuerURL, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Verify validates the token and extracts its claims.
// All verification failures collapse into ErrUnauthenticated so callers
// cannot distinguish why a token was rejected.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (Claims, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	var claims Claims
	if err := token.Claims(&claims); err != nil {
		return Claims{}, fmt.Errorf("%w: malformed claims: %v", ErrUnauthenticated, err)
	}

	return claims, nil
}
