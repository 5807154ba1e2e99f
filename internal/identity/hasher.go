// Package identity derives opaque storage identifiers from verified
// user identities.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// UserKey is the hashed identifier under which a user's credential set
// is stored. It is the only user identifier the storage layer ever sees.
type UserKey string

// Hash maps a verified email to its UserKey.
//
// The mapping is deterministic (same email always yields the same key)
// and one-way (SHA-256), so a compromised store does not directly
// reveal email addresses. Input is hashed as-is: no trimming, no case
// folding, and the empty string is hashed like any other value.
func Hash(email string) UserKey {
	sum := sha256.Sum256([]byte(email))
	return UserKey(hex.EncodeToString(sum[:]))
}

// String returns the hex digest.
func (k UserKey) String() string {
	return string(k)
}
