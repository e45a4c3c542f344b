package journal

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaV1 string

// migrations[i] upgrades a journal from user_version i to i+1.
var migrations = []string{
	schemaV1,
}

// ErrSchemaMismatch reports a journal written by a newer filerelay.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// migrate brings the database up to len(migrations), tracking progress in
// SQLite's user_version pragma. Each step commits on its own.
func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read journal version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("%w: journal has version %d, this build supports %d (delete %s to recreate it)",
			ErrSchemaMismatch, version, len(migrations), s.path)
	}

	for next := version; next < len(migrations); next++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[next]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", next+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", next+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record journal version %d: %w", next+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", next+1, err)
		}
	}
	return nil
}
