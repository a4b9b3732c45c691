// Package store archives the relation graph of each run in SQLite so runs
// can be listed and diffed later.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// RunSummary describes one archived run.
type RunSummary struct {
	ID           string
	StartedAt    time.Time
	WindowDays   int
	ChannelCount int
	MessageCount int
	EdgeCount    int
}

// EdgeRecord is one directed relation as archived for a run.
type EdgeRecord struct {
	FromID       string
	ToID         string
	MessageCount int
	Strength     int
	Label        string
}

// Store persists run history in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection: SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id             TEXT PRIMARY KEY,
		started_at     DATETIME NOT NULL,
		window_days    INTEGER NOT NULL,
		channel_count  INTEGER NOT NULL,
		message_count  INTEGER NOT NULL,
		edge_count     INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_edges (
		run_id         TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		from_id        TEXT NOT NULL,
		to_id          TEXT NOT NULL,
		message_count  INTEGER NOT NULL,
		strength       INTEGER NOT NULL,
		label          TEXT,
		PRIMARY KEY (run_id, from_id, to_id)
	);
	CREATE INDEX IF NOT EXISTS idx_run_edges_run ON run_edges(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// ArchiveRun stores one run and its edges in a single transaction and
// returns the run id.
func (s *Store) ArchiveRun(ctx context.Context, run RunSummary, edges []EdgeRecord) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, window_days, channel_count, message_count, edge_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.WindowDays, run.ChannelCount, run.MessageCount, run.EdgeCount,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for _, e := range edges {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_edges (run_id, from_id, to_id, message_count, strength, label)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, e.FromID, e.ToID, e.MessageCount, e.Strength, e.Label,
		)
		if err != nil {
			return "", fmt.Errorf("insert edge %s->%s: %w", e.FromID, e.ToID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit archive tx: %w", err)
	}

	s.logger.Info("run archived", "run", run.ID, "edges", len(edges))
	return run.ID, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, window_days, channel_count, message_count, edge_count
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.WindowDays, &r.ChannelCount, &r.MessageCount, &r.EdgeCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunEdges returns a run's edges ordered by (from, to).
func (s *Store) RunEdges(ctx context.Context, runID string) ([]EdgeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id, message_count, strength, label
		 FROM run_edges WHERE run_id = ? ORDER BY from_id, to_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("run edges: %w", err)
	}
	defer rows.Close()

	var edges []EdgeRecord
	for rows.Next() {
		var e EdgeRecord
		var label sql.NullString
		if err := rows.Scan(&e.FromID, &e.ToID, &e.MessageCount, &e.Strength, &label); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Label = label.String
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// DiffEdges compares two edge sets by directed pair.
func DiffEdges(previous, current []EdgeRecord) (added, removed []EdgeRecord) {
	prevSet := make(map[[2]string]struct{}, len(previous))
	for _, e := range previous {
		prevSet[[2]string{e.FromID, e.ToID}] = struct{}{}
	}
	curSet := make(map[[2]string]struct{}, len(current))
	for _, e := range current {
		curSet[[2]string{e.FromID, e.ToID}] = struct{}{}
	}

	for _, e := range current {
		if _, ok := prevSet[[2]string{e.FromID, e.ToID}]; !ok {
			added = append(added, e)
		}
	}
	for _, e := range previous {
		if _, ok := curSet[[2]string{e.FromID, e.ToID}]; !ok {
			removed = append(removed, e)
		}
	}
	return added, removed
}
