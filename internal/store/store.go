// Package store provides the credential storage layer.
//
// Two interchangeable backends implement the same contract: a
// PostgreSQL-backed store for production and an in-memory store for
// single-instance deployments and tests. Both are exercised by the
// same test suite.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/keyserve/keyserve/internal/identity"
	"github.com/keyserve/keyserve/internal/model"
)

// Common errors for credential store operations.
var (
	// ErrKeyNotFound indicates a delete targeted a key the user never
	// registered (or already deleted). Delete is deliberately not
	// idempotent: a repeat delete of the same key returns this error.
	ErrKeyNotFound = errors.New("SSH key not found")

	// ErrUnavailable indicates the backend could not be reached.
	// Callers must not retry inside this layer; retry policy belongs
	// to the transport.
	ErrUnavailable = errors.New("credential store unavailable")
)

// Store is the backend-agnostic credential store contract.
//
// All operations are keyed by the caller's hashed identity. A user's
// credential set exists only as its records: the first Put creates it
// implicitly and an empty List result is not an error.
//
// Consistency: a Put followed by a List from the same caller observes
// the written record (read-your-writes). Cross-caller ordering is
// whatever the backend provides - strong for postgres, effectively
// immediate for the memory backend on a single instance.
type Store interface {
	// List returns the user's credential set, empty if none.
	List(ctx context.Context, userKey identity.UserKey) (model.CredentialSet, error)

	// Put inserts or overwrites the record keyed by (userKey, key).
	// Upsert semantics: re-registering an existing key replaces its
	// comment and timestamp, never duplicates the record.
	Put(ctx context.Context, userKey identity.UserKey, key, comment string, createdAt time.Time) error

	// Delete removes exactly one record. Returns ErrKeyNotFound if no
	// record with that exact key exists for the user.
	Delete(ctx context.Context, userKey identity.UserKey, key string) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close()
}
