// Package metadatastore implements the relational half of the dual-store
// pipeline (C3): collections, documents, chunks, their full-text index, and
// sync jobs, all backed by PostgreSQL via database/sql and lib/pq.
package metadatastore

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "postgres" driver with database/sql.
	_ "github.com/lib/pq"
)

// Store is the PostgreSQL-backed MetadataStore. All methods take a context
// and are safe for concurrent use; the underlying *sql.DB is itself a
// connection pool.
type Store struct {
	db *sql.DB
}

// New wraps an already-configured *sql.DB. Callers are responsible for
// opening the connection (sql.Open("postgres", dsn)) and tuning pool limits;
// cmd/server does this from config.DatabaseConfig.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ping satisfies the health handler's Pinger interface.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("metadatastore: ping: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error (including a panic, which is re-raised after rollback).
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("metadatastore: begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("metadatastore: commit tx: %w", err)
	}

	return nil
}
