package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/agentteam/core"
)

const (
	createResultsTableSQL = `
CREATE TABLE IF NOT EXISTS team_results (
    id VARCHAR(255) PRIMARY KEY,
    team VARCHAR(255) NOT NULL,
    status VARCHAR(32) NOT NULL,
    task TEXT NOT NULL,
    stamp VARCHAR(32) NOT NULL,
    record_json TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
)`

	createResultsTeamIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_team_results_team ON team_results(team)`

	upsertResultSQL = `
INSERT INTO team_results (id, team, status, task, stamp, record_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    team = excluded.team,
    status = excluded.status,
    task = excluded.task,
    stamp = excluded.stamp,
    record_json = excluded.record_json`
)

// SQLiteOptions configure a SQLiteStore.
type SQLiteOptions struct {
	Now func() time.Time
}

// SQLiteStore keeps runs in one SQLite database. The record is stored as
// JSON next to the indexed summary columns.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewSQLiteStore opens or creates the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string, optFns ...func(o *SQLiteOptions)) (*SQLiteStore, error) {
	opts := SQLiteOptions{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	// A single writer avoids "database is locked" between runs.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path, now: opts.Now}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, createResultsTableSQL); err != nil {
		return fmt.Errorf("failed to create team_results table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, createResultsTeamIndexSQL); err != nil {
		return fmt.Errorf("failed to create team index: %w", err)
	}

	return nil
}

// Save upserts r by id and returns "<path>#<id>".
func (s *SQLiteStore) Save(ctx context.Context, r *core.TeamResult) (string, error) {
	if r == nil {
		return "", fmt.Errorf("result is required")
	}

	now := s.now()
	rec := NewRecord(r, now)

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, upsertResultSQL,
		rec.ID, rec.Team, rec.Status, rec.Task, rec.Timestamp, string(data), now.UTC(),
	); err != nil {
		return "", fmt.Errorf("failed to save result %s: %w", rec.ID, err)
	}

	return s.path + "#" + rec.ID, nil
}

// Get loads a record by id or by the reference returned from Save.
func (s *SQLiteStore) Get(ctx context.Context, ref string) (*Record, error) {
	id := ref
	if i := strings.LastIndex(ref, "#"); i >= 0 {
		id = ref[i+1:]
	}

	var data string

	err := s.db.QueryRowContext(ctx, `SELECT record_json FROM team_results WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load result %s: %w", id, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", id, err)
	}

	return &rec, nil
}

// List returns summaries, newest first.
func (s *SQLiteStore) List(ctx context.Context, team string) ([]Summary, error) {
	query := `SELECT id, team, status, task, stamp FROM team_results`
	args := []any{}

	if team != "" {
		query += ` WHERE team = ?`
		args = append(args, team)
	}

	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var out []Summary

	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Team, &sum.Status, &sum.Task, &sum.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		sum.Ref = s.path + "#" + sum.ID
		out = append(out, sum)
	}

	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
