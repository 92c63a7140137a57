package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ErrInvalidBackup marks a restore source that is not a usable coach database.
var ErrInvalidBackup = errors.New("invalid backup database")

// restoreTables lists the data tables in parent-first order with the columns copied on restore.
var restoreTables = []struct {
	name    string
	columns string
}{
	{"teams", "id, name, season, created_at"},
	{"players", "id, team_id, name, position, jersey, hand, birthdate, email, phone, status, created_at"},
	{"lineup_templates", "id, team_id, name, notes, date_saved, created_at"},
	{"lineup_slots", "id, template_id, slot_type, label, order_index, player_id"},
}

// TableCounts reports row counts per data table.
type TableCounts map[string]int64

// BackupRepository snapshots and restores the whole database.
type BackupRepository struct {
	db *sqlx.DB
}

// NewBackupRepository constructs a BackupRepository.
func NewBackupRepository(db *sqlx.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// Ping checks the database handle.
func (r *BackupRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Snapshot writes a consistent copy of the live database to destPath.
func (r *BackupRepository) Snapshot(ctx context.Context, destPath string) error {
	if _, err := r.db.ExecContext(ctx, `VACUUM INTO ?`, destPath); err != nil {
		return fmt.Errorf("snapshot database: %w", err)
	}
	return nil
}

// Counts returns the row count of every data table.
func (r *BackupRepository) Counts(ctx context.Context) (TableCounts, error) {
	counts := make(TableCounts, len(restoreTables))
	for _, t := range restoreTables {
		var n int64
		if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+t.name); err != nil {
			return nil, fmt.Errorf("count %s: %w", t.name, err)
		}
		counts[t.name] = n
	}
	return counts, nil
}

// RestoreFrom replaces every row of the live database with the rows of the
// database file at srcPath. The copy runs in one transaction.
func (r *BackupRepository) RestoreFrom(ctx context.Context, srcPath string) (counts TableCounts, err error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close() //nolint:errcheck

	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS incoming`, srcPath); err != nil {
		return nil, fmt.Errorf("%w: attach: %v", ErrInvalidBackup, err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `DETACH DATABASE incoming`)
	}()

	if err := checkIncoming(ctx, conn); err != nil {
		return nil, err
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin restore: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `PRAGMA defer_foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("defer foreign keys: %w", err)
	}
	for i := len(restoreTables) - 1; i >= 0; i-- {
		if _, err = tx.ExecContext(ctx, `DELETE FROM main.`+restoreTables[i].name); err != nil {
			return nil, fmt.Errorf("clear %s: %w", restoreTables[i].name, err)
		}
	}
	counts = make(TableCounts, len(restoreTables))
	for _, t := range restoreTables {
		query := fmt.Sprintf(`INSERT INTO main.%s (%s) SELECT %s FROM incoming.%s`, t.name, t.columns, t.columns, t.name)
		res, execErr := tx.ExecContext(ctx, query)
		if execErr != nil {
			err = fmt.Errorf("%w: copy %s: %v", ErrInvalidBackup, t.name, execErr)
			return nil, err
		}
		n, _ := res.RowsAffected()
		counts[t.name] = n
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit restore: %v", ErrInvalidBackup, err)
	}
	return counts, nil
}

func checkIncoming(ctx context.Context, conn *sqlx.Conn) error {
	names := make([]string, 0, len(restoreTables))
	for _, t := range restoreTables {
		names = append(names, "'"+t.name+"'")
	}
	var found int
	query := `SELECT COUNT(*) FROM incoming.sqlite_master WHERE type = 'table' AND name IN (` + strings.Join(names, ", ") + `)`
	if err := conn.GetContext(ctx, &found, query); err != nil {
		return fmt.Errorf("%w: read schema: %v", ErrInvalidBackup, err)
	}
	if found != len(restoreTables) {
		return fmt.Errorf("%w: missing required tables", ErrInvalidBackup)
	}

	var results []string
	if err := conn.SelectContext(ctx, &results, `PRAGMA incoming.quick_check`); err != nil {
		return fmt.Errorf("%w: integrity check: %v", ErrInvalidBackup, err)
	}
	if len(results) != 1 || results[0] != "ok" {
		return fmt.Errorf("%w: integrity check failed", ErrInvalidBackup)
	}
	return nil
}
