package txcoordinator

import (
	"context"
	"database/sql"
	"fmt"
)

// WithSavepoint runs fn inside a named savepoint nested in tx, for bulk
// operations (batch import) where one item's failure should not abort the
// whole batch. On fn's error the savepoint is rolled back to (undoing only
// that item's writes) and the error returned so the caller can decide
// whether to continue with the next item or abort the outer transaction.
// name must be a caller-controlled identifier, never external input, since
// it is interpolated into the SQL text - sql.Tx has no placeholder syntax
// for savepoint names.
func WithSavepoint(ctx context.Context, tx *sql.Tx, name string, fn func() error) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SAVEPOINT %s", name)); err != nil {
		return fmt.Errorf("txcoordinator: create savepoint %s: %w", name, err)
	}

	if err := fn(); err != nil {
		if _, rbErr := tx.ExecContext(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", name)); rbErr != nil {
			return fmt.Errorf("txcoordinator: rollback to savepoint %s after %w: %v", name, err, rbErr)
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("RELEASE SAVEPOINT %s", name)); err != nil {
		return fmt.Errorf("txcoordinator: release savepoint %s: %w", name, err)
	}
	return nil
}
