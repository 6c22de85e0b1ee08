// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists finished search runs and their contact rows in a
// SQLite database so results can be listed and re-exported later.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

// DefaultPath is the database location used when none is configured.
const DefaultPath = "pubmed-contacts.db"

// timeLayout has a fixed-width fraction so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrRunNotFound is returned when no run matches an ID.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousID is returned when an ID prefix matches more than one run.
	ErrAmbiguousID = errors.New("run ID prefix is ambiguous")
)

// Run is the stored summary of one search.
type Run struct {
	ID                string             `json:"id" yaml:"id"`
	Term              string             `json:"term" yaml:"term"`
	MaxResults        int                `json:"max_results" yaml:"max_results"`
	Filters           types.FilterConfig `json:"filters" yaml:"filters"`
	StartedAt         time.Time          `json:"started_at" yaml:"started_at"`
	FinishedAt        time.Time          `json:"finished_at" yaml:"finished_at"`
	Status            string             `json:"status" yaml:"status"`
	Articles          int                `json:"articles" yaml:"articles"`
	Rows              int                `json:"rows" yaml:"rows"`
	DuplicatesRemoved int                `json:"duplicates_removed" yaml:"duplicates_removed"`
	WithEmail         int                `json:"with_email" yaml:"with_email"`
	Warnings          []string           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Store wraps the SQLite run database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at cfg.Path and creates the schema if
// it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			term TEXT NOT NULL,
			max_results INTEGER NOT NULL,
			filters TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			status TEXT NOT NULL,
			articles INTEGER NOT NULL DEFAULT 0,
			row_count INTEGER NOT NULL DEFAULT 0,
			duplicates_removed INTEGER NOT NULL DEFAULT 0,
			with_email INTEGER NOT NULL DEFAULT 0,
			warnings TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			email TEXT NOT NULL,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun stores a run and its rows in one transaction. A run without an ID
// is assigned a new UUID. The stored ID is returned.
func (s *Store) SaveRun(ctx context.Context, run Run, rows []types.ResultRow) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = run.StartedAt
	}
	run.Rows = len(rows)

	filtersJSON, err := json.Marshal(run.Filters)
	if err != nil {
		return "", fmt.Errorf("encoding filters: %w", err)
	}
	warningsJSON, err := json.Marshal(run.Warnings)
	if err != nil {
		return "", fmt.Errorf("encoding warnings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, term, max_results, filters, started_at, finished_at, status,
			articles, row_count, duplicates_removed, with_email, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			term=excluded.term, max_results=excluded.max_results, filters=excluded.filters,
			started_at=excluded.started_at, finished_at=excluded.finished_at, status=excluded.status,
			articles=excluded.articles, row_count=excluded.row_count,
			duplicates_removed=excluded.duplicates_removed, with_email=excluded.with_email,
			warnings=excluded.warnings`,
		run.ID, run.Term, run.MaxResults, string(filtersJSON),
		run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		run.Status, run.Articles, run.Rows, run.DuplicatesRemoved, run.WithEmail, string(warningsJSON),
	)
	if err != nil {
		return "", fmt.Errorf("upserting run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM contacts WHERE run_id = ?`, run.ID); err != nil {
		return "", fmt.Errorf("deleting old rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO contacts (run_id, position, title, author, email) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, run.ID, i, row.Title, row.Author, row.Email); err != nil {
			return "", fmt.Errorf("inserting row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return run.ID, nil
}

const runColumns = `id, term, max_results, filters, started_at, finished_at, status,
	articles, row_count, duplicates_removed, with_email, warnings`

// ListRuns returns stored runs, most recent first. A limit of zero or less
// returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the run with the given ID. A unique ID prefix is accepted.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	if id == "" {
		return Run{}, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY id = ? DESC LIMIT 2`,
		id, stripWildcards(id)+"%", id)
	if err != nil {
		return Run{}, fmt.Errorf("querying run: %w", err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("querying run: %w", err)
	}

	switch {
	case len(found) == 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	default:
		return Run{}, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

// Rows returns the contact rows of a run in their original order.
func (s *Store) Rows(ctx context.Context, runID string) ([]types.ResultRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, author, email FROM contacts WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying rows: %w", err)
	}
	defer rows.Close()

	var out []types.ResultRow
	for rows.Next() {
		var r types.ResultRow
		if err := rows.Scan(&r.Title, &r.Author, &r.Email); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its rows.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run                   Run
		filters, warnings     sql.NullString
		startedAt, finishedAt string
	)
	if err := sc.Scan(&run.ID, &run.Term, &run.MaxResults, &filters, &startedAt, &finishedAt,
		&run.Status, &run.Articles, &run.Rows, &run.DuplicatesRemoved, &run.WithEmail, &warnings); err != nil {
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	if filters.Valid && filters.String != "" {
		if err := json.Unmarshal([]byte(filters.String), &run.Filters); err != nil {
			return Run{}, fmt.Errorf("decoding filters of run %s: %w", run.ID, err)
		}
	}
	if warnings.Valid && warnings.String != "" && warnings.String != "null" {
		if err := json.Unmarshal([]byte(warnings.String), &run.Warnings); err != nil {
			return Run{}, fmt.Errorf("decoding warnings of run %s: %w", run.ID, err)
		}
	}
	run.StartedAt, _ = time.Parse(timeLayout, startedAt)
	run.FinishedAt, _ = time.Parse(timeLayout, finishedAt)
	return run, nil
}

// stripWildcards removes LIKE wildcards from a user-supplied prefix.
func stripWildcards(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
