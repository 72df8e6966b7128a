// Package store is the durable intel-cache blob store backed by Postgres.
//
// It is a key-value document table: one JSONB payload per logical key,
// overwritten wholesale on each write. The serving path reads it; only the
// scheduled generator writes it. It implements intel.CacheStore.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sableridge/watchdesk/internal/intel"
)

// Store is the data access object for the intel cache table.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying pgxpool for health checks.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// GetEntry reads the cache entry stored under key. Returns (nil, nil) when
// the key is absent — absence is a policy signal (fall back), not an error.
// Expired entries are returned as-is; staleness is advisory.
func (s *Store) GetEntry(ctx context.Context, key string) (*intel.CacheEntry, error) {
	var (
		payload []byte
		entry   intel.CacheEntry
	)
	err := s.pool.QueryRow(ctx,
		`SELECT payload, generated_at, expires_at FROM intel_cache WHERE cache_key = $1`,
		key,
	).Scan(&payload, &entry.GeneratedAt, &entry.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get intel cache %q: %w", key, err)
	}
	if err := json.Unmarshal(payload, &entry.Articles); err != nil {
		return nil, fmt.Errorf("decode intel cache %q: %w", key, err)
	}
	return &entry, nil
}

// PutEntry overwrites the cache entry under key. Last writer wins — the
// content is advisory, and concurrent scheduled runs are not expected.
func (s *Store) PutEntry(ctx context.Context, key string, entry intel.CacheEntry) error {
	payload, err := json.Marshal(entry.Articles)
	if err != nil {
		return fmt.Errorf("encode intel cache %q: %w", key, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO intel_cache (cache_key, payload, generated_at, expires_at, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (cache_key) DO UPDATE
		 SET payload = EXCLUDED.payload,
		     generated_at = EXCLUDED.generated_at,
		     expires_at = EXCLUDED.expires_at,
		     updated_at = now()`,
		key, payload, entry.GeneratedAt, entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("put intel cache %q: %w", key, err)
	}
	return nil
}
