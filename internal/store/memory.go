package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/keyserve/keyserve/internal/identity"
	"github.com/keyserve/keyserve/internal/model"
)

// MemoryStore is the hash-map Store backend.
//
// State is process-local, so this backend is only suitable for
// single-instance deployments and tests. Running multiple instances
// against it gives each instance its own disjoint view; deployments
// that scale horizontally must use the postgres backend.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[identity.UserKey]map[string]model.SSHKeyRecord
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		keys: make(map[identity.UserKey]map[string]model.SSHKeyRecord),
	}
}

// List returns the user's credential set, oldest first.
func (s *MemoryStore) List(ctx context.Context, userKey identity.UserKey) (model.CredentialSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.keys[userKey]
	if len(records) == 0 {
		return nil, nil
	}

	set := make(model.CredentialSet, 0, len(records))
	for _, rec := range records {
		set = append(set, rec)
	}

	// Match the postgres backend's ordering.
	sort.Slice(set, func(i, j int) bool {
		return set[i].CreatedAt.Before(set[j].CreatedAt)
	})

	return set, nil
}

// Put upserts the record keyed by (userKey, key).
func (s *MemoryStore) Put(ctx context.Context, userKey identity.UserKey, key, comment string, createdAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.keys[userKey]
	if !ok {
		records = make(map[string]model.SSHKeyRecord)
		s.keys[userKey] = records
	}

	rec := model.SSHKeyRecord{
		UserHash:  userKey.String(),
		Key:       key,
		Comment:   comment,
		CreatedAt: createdAt.UTC(),
	}

	// Preserve the surrogate ID across overwrites.
	if existing, ok := records[key]; ok {
		rec.ID = existing.ID
	} else {
		rec.ID = ulid.Make().String()
	}

	records[key] = rec
	return nil
}

// Delete removes the record keyed by (userKey, key).
func (s *MemoryStore) Delete(ctx context.Context, userKey identity.UserKey, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.keys[userKey]
	if _, ok := records[key]; !ok {
		return ErrKeyNotFound
	}

	delete(records, key)
	if len(records) == 0 {
		delete(s.keys, userKey)
	}

	return nil
}

// Ping always succeeds; there is no backend to reach.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *MemoryStore) Close() {}
