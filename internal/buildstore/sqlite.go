package buildstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens a build history database. Use ":memory:" for a
// throwaway store.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A second connection to ":memory:" would see a different database.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		deploy TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		posts INTEGER NOT NULL DEFAULT 0,
		pages INTEGER NOT NULL DEFAULT 0,
		static INTEGER NOT NULL DEFAULT 0,
		changed INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started_at);
	CREATE INDEX IF NOT EXISTS idx_builds_source ON builds(source, status);
	CREATE TABLE IF NOT EXISTS outputs (
		build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		source TEXT NOT NULL,
		kind TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		PRIMARY KEY (build_id, path)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordBuild stores a build and its outputs in one transaction.
func (s *SQLiteStore) RecordBuild(ctx context.Context, b Build, outputs []Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO builds (id, source, deploy, status, started_at, finished_at, posts, pages, static, changed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Source, b.Deploy, string(b.Status), b.StartedAt.UnixMilli(), b.FinishedAt.UnixMilli(),
		b.Posts, b.Pages, b.Static, b.Changed, nullString(b.Error),
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO outputs (build_id, path, source, kind, fingerprint) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare output insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, o := range outputs {
		if _, err := stmt.ExecContext(ctx, b.ID, o.Path, o.Source, o.Kind, o.Fingerprint); err != nil {
			return fmt.Errorf("insert output %s: %w", o.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit build: %w", err)
	}
	return nil
}

// ListBuilds returns the most recent builds first. limit <= 0 means no limit.
func (s *SQLiteStore) ListBuilds(ctx context.Context, limit int) ([]Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, deploy, status, started_at, finished_at, posts, pages, static, changed, error
		FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var builds []Build
	for rows.Next() {
		var b Build
		var status string
		var started, finished int64
		var errText sql.NullString
		if err := rows.Scan(&b.ID, &b.Source, &b.Deploy, &status, &started, &finished,
			&b.Posts, &b.Pages, &b.Static, &b.Changed, &errText); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		b.Status = Status(status)
		b.StartedAt = time.UnixMilli(started).UTC()
		b.FinishedAt = time.UnixMilli(finished).UTC()
		b.Error = errText.String
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return builds, nil
}

// Outputs returns the outputs of one build ordered by path.
func (s *SQLiteStore) Outputs(ctx context.Context, buildID string) ([]Output, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT path, source, kind, fingerprint FROM outputs WHERE build_id = ? ORDER BY path", buildID)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var outputs []Output
	for rows.Next() {
		var o Output
		if err := rows.Scan(&o.Path, &o.Source, &o.Kind, &o.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		outputs = append(outputs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return outputs, nil
}

func (s *SQLiteStore) LastFingerprints(ctx context.Context, source string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT o.path, o.fingerprint FROM outputs o
		WHERE o.build_id = (
			SELECT id FROM builds WHERE source = ? AND status = ?
			ORDER BY started_at DESC, rowid DESC LIMIT 1
		)`, source, string(StatusSuccess))
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var path, fp string
		if err := rows.Scan(&path, &fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		out[path] = fp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
