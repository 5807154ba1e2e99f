// Package dto defines request and response shapes for the HTTP API.
package dto

import (
	"time"

	"github.com/keyserve/keyserve/internal/model"
)

// PutKeyRequest is the body for PUT /api/v1/users/me/keys.
type PutKeyRequest struct {
	SSHKey  string `json:"ssh_key"`
	Comment string `json:"comment"`
}

// DeleteKeyRequest is the body for DELETE /api/v1/users/me/keys.
type DeleteKeyRequest struct {
	SSHKey string `json:"ssh_key"`
}

// KeyInfo is the per-key metadata exposed to the key's owner.
type KeyInfo struct {
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}

// UserResponse is the body for GET /api/v1/users/me.
// Keys are a map from public key material to metadata.
type UserResponse struct {
	Email   string             `json:"email"`
	SSHKeys map[string]KeyInfo `json:"ssh_keys"`
}

// MessageResponse is a generic success acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the standard error shape.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToUserResponse converts a credential set into the owner-facing shape.
func ToUserResponse(email string, set model.CredentialSet) UserResponse {
	keys := make(map[string]KeyInfo, len(set))
	for _, rec := range set {
		keys[rec.Key] = KeyInfo{
			Comment:   rec.Comment,
			Timestamp: rec.CreatedAt,
		}
	}
	return UserResponse{
		Email:   email,
		SSHKeys: keys,
	}
}
