// Package sourcestore persists the original bytes of an uploaded document on
// local disk, keyed by its content-addressable docId. SyncStateMachine's
// Split step reads from it every time it runs — including after a process
// restart — rather than depending on ImportService holding the bytes in
// memory across the whole split/embed/upsert pipeline, and ImportService's
// resync operation re-reads from it by the document's sourceKey.
//
// No object-storage or blob SDK appears anywhere in the example corpus this
// module was grounded on, so this is a plain os/io-backed local directory,
// the same kind of disk-backed fallback the teacher itself uses for backups
// (internal/persistence/backup.go).
package sourcestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"docsync/internal/apperrors"
)

// Store writes and reads document source bytes under a single base
// directory, one file per sourceKey.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("sourcestore: create storage dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Write durably persists data under sourceKey, overwriting any existing
// content for that key.
func (s *Store) Write(ctx context.Context, sourceKey string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFor(sourceKey)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("sourcestore: write %q: %w", sourceKey, err)
	}
	return nil
}

// Read returns the bytes previously written under sourceKey.
func (s *Store) Read(ctx context.Context, sourceKey string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.pathFor(sourceKey)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path is derived from pathFor, never raw user input
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NotFound("source bytes", sourceKey)
		}
		return nil, fmt.Errorf("sourcestore: read %q: %w", sourceKey, err)
	}
	return data, nil
}

// Delete removes the bytes stored under sourceKey, if any. Deleting a
// nonexistent key is not an error, matching AutoGC's self-healing cleanup.
func (s *Store) Delete(ctx context.Context, sourceKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFor(sourceKey)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("sourcestore: delete %q: %w", sourceKey, err)
	}
	return nil
}

// pathFor maps a sourceKey to a file path, rejecting keys that could escape
// the store's base directory.
func (s *Store) pathFor(sourceKey string) (string, error) {
	if sourceKey == "" {
		return "", apperrors.ValidationField("sourceKey", "cannot be empty")
	}
	clean := filepath.Base(sourceKey)
	if clean != sourceKey || clean == "." || clean == ".." {
		return "", apperrors.ValidationField("sourceKey", "must be a flat, non-traversing identifier")
	}
	return filepath.Join(s.dir, clean), nil
}
