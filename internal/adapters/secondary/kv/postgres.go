package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const kvSchema = `
	CREATE TABLE IF NOT EXISTS kv_blobs (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		revision   BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// PostgresStore : une ligne par clé, la colonne revision sert de version pour le CAS.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema est idempotent (en prod on passerait par des migrations).
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, kvSchema); err != nil {
		return fmt.Errorf("create kv_blobs: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, key string) (Entry, error) {
	query := `SELECT value, revision FROM kv_blobs WHERE key = @key`

	var e Entry
	var rev int64
	err := p.db.QueryRow(ctx, query, pgx.NamedArgs{"key": key}).Scan(&e.Value, &rev)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrKeyNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("select blob: %w", err)
	}
	e.Revision = uint64(rev)
	return e, nil
}

func (p *PostgresStore) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	query := `
		INSERT INTO kv_blobs (key, value, revision)
		VALUES (@key, @value, 1)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, revision = kv_blobs.revision + 1, updated_at = now()
		RETURNING revision
	`
	var rev int64
	if err := p.db.QueryRow(ctx, query, pgx.NamedArgs{"key": key, "value": value}).Scan(&rev); err != nil {
		return 0, fmt.Errorf("upsert blob: %w", err)
	}
	return uint64(rev), nil
}

func (p *PostgresStore) CompareAndSwap(ctx context.Context, key string, value []byte, expected uint64) (uint64, error) {
	// Cas 1: création (la clé ne doit pas exister)
	query := `
		INSERT INTO kv_blobs (key, value, revision)
		VALUES (@key, @value, 1)
		ON CONFLICT (key) DO NOTHING
		RETURNING revision
	`
	// Cas 2: mise à jour conditionnelle sur la version
	if expected != NoRevision {
		query = `
			UPDATE kv_blobs
			SET value = @value, revision = revision + 1, updated_at = now()
			WHERE key = @key AND revision = @expected
			RETURNING revision
		`
	}

	args := pgx.NamedArgs{"key": key, "value": value, "expected": int64(expected)}
	var rev int64
	err := p.db.QueryRow(ctx, query, args).Scan(&rev)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrRevisionMismatch
	}
	if err != nil {
		return 0, fmt.Errorf("cas blob: %w", err)
	}
	return uint64(rev), nil
}

func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM kv_blobs WHERE key = @key`, pgx.NamedArgs{"key": key}); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
