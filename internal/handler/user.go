package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	gossh "golang.org/x/crypto/ssh"

	"github.com/keyserve/keyserve/internal/auth"
	"github.com/keyserve/keyserve/internal/handler/dto"
	"github.com/keyserve/keyserve/internal/identity"
	"github.com/keyserve/keyserve/internal/metrics"
	"github.com/keyserve/keyserve/internal/store"
)

// UserHandler serves the bearer-path self-service endpoints.
// Every operation acts on the records keyed by the hash of the
// caller's own verified identity; there is no way to address another
// user's records through this handler.
type UserHandler struct {
	store   store.Store
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(s store.Store, logger *slog.Logger, recorder metrics.Recorder) *UserHandler {
	return &UserHandler{
		store:   s,
		logger:  logger,
		metrics: recorder,
	}
}

// Me handles GET /api/v1/users/me.
// Returns the caller's email and registered keys with metadata.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := auth.MustIdentityFromContext(r.Context())
	userKey := identity.Hash(id.Email)

	set, err := h.store.List(r.Context(), userKey)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	h.metrics.IncProfileRead()
	writeJSON(w, http.StatusOK, dto.ToUserResponse(id.Email, set))
}

// PutKey handles PUT /api/v1/users/me/keys.
// Upsert: registering an already-registered key overwrites its comment
// and timestamp instead of adding a duplicate.
func (h *UserHandler) PutKey(w http.ResponseWriter, r *http.Request) {
	var req dto.PutKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.SSHKey == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_SSH_KEY", "ssh_key is required")
		return
	}

	id := auth.MustIdentityFromContext(r.Context())
	userKey := identity.Hash(id.Email)

	if err := h.store.Put(r.Context(), userKey, req.SSHKey, req.Comment, time.Now().UTC()); err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	h.metrics.IncKeyAdded()
	h.logger.Info("ssh_key_added",
		slog.String("user_hash", userKey.String()),
		slog.String("fingerprint", keyFingerprint(req.SSHKey)),
	)

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "SSH key added."})
}

// DeleteKey handles DELETE /api/v1/users/me/keys.
// Not idempotent: deleting a key that does not exist (or was already
// deleted) returns 404.
func (h *UserHandler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	var req dto.DeleteKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.SSHKey == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_SSH_KEY", "ssh_key is required")
		return
	}

	id := auth.MustIdentityFromContext(r.Context())
	userKey := identity.Hash(id.Email)

	if err := h.store.Delete(r.Context(), userKey, req.SSHKey); err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	h.metrics.IncKeyDeleted()
	h.logger.Info("ssh_key_deleted",
		slog.String("user_hash", userKey.String()),
		slog.String("fingerprint", keyFingerprint(req.SSHKey)),
	)

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "SSH key deleted."})
}

// handleStoreError maps store errors to HTTP responses.
func (h *UserHandler) handleStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrKeyNotFound):
		h.writeError(w, http.StatusNotFound, "KEY_NOT_FOUND", "SSH key not found.")
	case errors.Is(err, store.ErrUnavailable):
		h.logger.Error("credential store unavailable",
			slog.String("error", err.Error()),
			slog.String("endpoint", r.Method+" "+r.URL.Path),
		)
		h.writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Storage backend unavailable")
	default:
		h.logger.Error("store operation failed",
			slog.String("error", err.Error()),
			slog.String("endpoint", r.Method+" "+r.URL.Path),
		)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
	}
}

func (h *UserHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// keyFingerprint returns the SHA-256 fingerprint of a public key for
// log correlation. Keys are stored as opaque strings; if the material
// does not parse as an authorized_keys line, the fingerprint is simply
// unavailable - the key is still accepted.
func keyFingerprint(keyMaterial string) string {
	pub, _, _, _, err := gossh.ParseAuthorizedKey([]byte(keyMaterial))
	if err != nil {
		return "unparsed"
	}
	return gossh.FingerprintSHA256(pub)
}
