package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// runInTx executes fn inside one transaction, rolling back on any error.
func runInTx(ctx context.Context, db *sqlx.DB, op string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}
