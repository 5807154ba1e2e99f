package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/keyserve/keyserve/internal/identity"
	"github.com/keyserve/keyserve/internal/model"
)

// PostgresStore is the relational Store backend.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// List returns all key records for a user, oldest first.
func (s *PostgresStore) List(ctx context.Context, userKey identity.UserKey) (model.CredentialSet, error) {
	query := `
		SELECT id, user_hash, ssh_key, comment, created_at
		FROM ssh_keys
		WHERE user_hash = $1
		ORDER BY created_at ASC
	`

	rows, err := s.pool.Query(ctx, query, userKey.String())
	if err != nil {
		return nil, wrapBackendErr("failed to list SSH keys", err)
	}
	defer rows.Close()

	var set model.CredentialSet
	for rows.Next() {
		var rec model.SSHKeyRecord
		if err := rows.Scan(&rec.ID, &rec.UserHash, &rec.Key, &rec.Comment, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan SSH key: %w", err)
		}
		set = append(set, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapBackendErr("error iterating SSH keys", err)
	}

	return set, nil
}

// Put upserts the record keyed by (user_hash, ssh_key).
func (s *PostgresStore) Put(ctx context.Context, userKey identity.UserKey, key, comment string, createdAt time.Time) error {
	query := `
		INSERT INTO ssh_keys (id, user_hash, ssh_key, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_hash, ssh_key)
		DO UPDATE SET comment = EXCLUDED.comment, created_at = EXCLUDED.created_at
	`

	_, err := s.pool.Exec(ctx, query,
		ulid.Make().String(),
		userKey.String(),
		key,
		comment,
		createdAt.UTC(),
	)

	if err != nil {
		return wrapBackendErr("failed to put SSH key", err)
	}

	return nil
}

// Delete removes the record keyed by (user_hash, ssh_key).
func (s *PostgresStore) Delete(ctx context.Context, userKey identity.UserKey, key string) error {
	query := `
		DELETE FROM ssh_keys
		WHERE user_hash = $1 AND ssh_key = $2
	`

	result, err := s.pool.Exec(ctx, query, userKey.String(), key)
	if err != nil {
		return wrapBackendErr("failed to delete SSH key", err)
	}

	if result.RowsAffected() == 0 {
		return ErrKeyNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Pool returns the underlying connection pool.
// Use sparingly - prefer adding methods to PostgresStore.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// wrapBackendErr classifies connectivity failures as ErrUnavailable so
// handlers can map them to a server error; anything else wraps as-is.
// Covers both failure to connect and a connection dying mid-query,
// which pgx surfaces as a net error or an unexpected EOF.
func wrapBackendErr(msg string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, err)
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connErr),
		errors.As(err, &netErr),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %v", msg, ErrUnavailable, err)
	}

	return fmt.Errorf("%s: %w", msg, err)
}
