// Package store persists the state that must survive between runs: the
// union-only set of scanned message identifiers, per-run metadata, and
// the append-only unsubscribe outcome log. It is backed by a local
// SQLite database.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/mailsweep/internal/model"
)

// Store wraps the SQLite database. Scanned identifiers only ever
// accumulate: nothing in this package deletes from scanned_ids or
// outcomes.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) a SQLite database at dbPath, enables WAL
// mode, and runs any pending schema migrations. Parent directories
// are created as needed.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// LoadScannedIDs returns the full set of previously scanned message
// identifiers. The scan loads it once at start and gates candidates
// against it in memory.
func (s *Store) LoadScannedIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT id FROM scanned_ids")
	if err != nil {
		return nil, fmt.Errorf("loading scanned ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id row: %w", err)
		}
		ids[id] = struct{}{}
	}

	return ids, rows.Err()
}

// ContainsScannedID reports whether a single identifier has been
// processed before.
func (s *Store) ContainsScannedID(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM scanned_ids WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("checking scanned id: %w", err)
	}
	return count > 0, nil
}

// MergeScannedIDs unions a batch of newly processed identifiers into
// the persisted set inside one transaction. Re-merging an existing id
// is a no-op, so the set only grows.
func (s *Store) MergeScannedIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning merge transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx,
		"INSERT OR IGNORE INTO scanned_ids (id) VALUES (?)")
	if err != nil {
		return fmt.Errorf("preparing merge statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("merging scanned id %q: %w", id, err)
		}
	}

	return tx.Commit()
}

// CountScannedIDs returns the size of the persisted set.
func (s *Store) CountScannedIDs(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM scanned_ids")
	if err != nil {
		return 0, fmt.Errorf("counting scanned ids: %w", err)
	}
	return count, nil
}

// BeginRun records the start of a scan run.
func (s *Store) BeginRun(ctx context.Context, id string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO scan_runs (id, started_at) VALUES (?, ?)",
		id, startedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording run start %s: %w", id, err)
	}
	return nil
}

// FinishRun marks a scan run complete with its final counters.
func (s *Store) FinishRun(ctx context.Context, run model.ScanRun) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scan_runs
		SET finished_at = ?, processed = ?, skipped = ?, failed = ?, completed = 1
		WHERE id = ?`,
		run.FinishedAt.UTC(), run.Processed, run.Skipped, run.Failed, run.ID)
	if err != nil {
		return fmt.Errorf("recording run finish %s: %w", run.ID, err)
	}
	return nil
}

// AppendOutcome appends one unsubscribe attempt to the outcome log.
func (s *Store) AppendOutcome(ctx context.Context, o model.UnsubscribeOutcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes (domain, token, attempted_at, result, detail)
		VALUES (?, ?, ?, ?, ?)`,
		o.Domain, o.Token, o.AttemptedAt.UTC(), string(o.Result), o.Detail)
	if err != nil {
		return fmt.Errorf("appending outcome for %s: %w", o.Domain, err)
	}
	return nil
}

// ListOutcomes returns all logged outcomes in append order.
func (s *Store) ListOutcomes(ctx context.Context) ([]model.UnsubscribeOutcome, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT domain, token, attempted_at, result, detail
		FROM outcomes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []model.UnsubscribeOutcome
	for rows.Next() {
		var o model.UnsubscribeOutcome
		var result string
		if err := rows.Scan(&o.Domain, &o.Token, &o.AttemptedAt, &result, &o.Detail); err != nil {
			return nil, fmt.Errorf("scanning outcome row: %w", err)
		}
		o.Result = model.OutcomeResult(result)
		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}
