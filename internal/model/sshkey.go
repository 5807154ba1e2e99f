// Package model defines core domain entities.
package model

import "time"

// SSHKeyRecord is a single public key registered by a user.
// The key material is stored as an opaque string; the service never
// parses or validates it beyond non-emptiness.
type SSHKeyRecord struct {
	// ID is a surrogate identifier assigned on first insert (ULID).
	ID string

	// UserHash is the hashed identity of the owning user.
	// Raw email addresses are never persisted.
	UserHash string

	// Key is the public key material. Unique per user.
	Key string

	// Comment is a free-form label supplied by the user.
	Comment string

	// CreatedAt is when the record was written (or last overwritten).
	CreatedAt time.Time
}

// CredentialSet is the collection of key records belonging to one user.
// An empty set means the user has no registered keys; there is no
// separate user entity behind it.
type CredentialSet []SSHKeyRecord

// Keys returns just the public key strings, in set order.
// Used by the machine-lookup path, which must never expose
// comments or timestamps.
func (s CredentialSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for _, rec := range s {
		keys = append(keys, rec.Key)
	}
	return keys
}
