package eventstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based build history.
// Use ":memory:" for in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap(ErrDatabaseOpenFailed, err)
	}
	// Every pooled connection to ":memory:" would otherwise get its own database.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, wrap(ErrInitializeSchemaFailed, err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT,
		source_commit TEXT,
		page_count INTEGER NOT NULL,
		plain_files INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started_at);
	CREATE TABLE IF NOT EXISTS pages (
		build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
		source TEXT NOT NULL,
		output TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		PRIMARY KEY (build_id, output)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordBuild stores b and its pages in one transaction.
func (s *SQLiteStore) RecordBuild(ctx context.Context, b Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(ErrRecordFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO builds (id, started_at, finished_at, outcome, error, source_commit, page_count, plain_files, warnings, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.StartedAt.UnixNano(), b.FinishedAt.UnixNano(), b.Outcome, b.Error, b.Commit,
		b.PageCount, b.PlainFiles, b.Warnings, b.Duration.Milliseconds(),
	)
	if err != nil {
		return wrap(ErrRecordFailed, err)
	}

	if len(b.Pages) > 0 {
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO pages (build_id, source, output, fingerprint) VALUES (?, ?, ?, ?)")
		if err != nil {
			return wrap(ErrRecordFailed, err)
		}
		defer func() { _ = stmt.Close() }()
		for _, p := range b.Pages {
			if _, err := stmt.ExecContext(ctx, b.ID, p.Source, p.Output, p.Fingerprint); err != nil {
				return wrap(ErrRecordFailed, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap(ErrRecordFailed, err)
	}
	return nil
}

// Recent returns up to n builds, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		n = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, outcome, COALESCE(error, ''), COALESCE(source_commit, ''),
		        page_count, plain_files, warnings, duration_ms
		 FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var builds []Build
	for rows.Next() {
		var (
			b                 Build
			started, finished int64
			durationMS        int64
		)
		if err := rows.Scan(&b.ID, &started, &finished, &b.Outcome, &b.Error, &b.Commit,
			&b.PageCount, &b.PlainFiles, &b.Warnings, &durationMS); err != nil {
			return nil, wrap(ErrQueryFailed, err)
		}
		b.StartedAt = time.Unix(0, started)
		b.FinishedAt = time.Unix(0, finished)
		b.Duration = time.Duration(durationMS) * time.Millisecond
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	return builds, nil
}

// Pages returns the pages written by buildID.
func (s *SQLiteStore) Pages(ctx context.Context, buildID string) ([]Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT source, output, fingerprint FROM pages WHERE build_id = ? ORDER BY output", buildID)
	if err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.Source, &p.Output, &p.Fingerprint); err != nil {
			return nil, wrap(ErrQueryFailed, err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	return pages, nil
}

// Changed compares buildID with the build recorded immediately before it.
func (s *SQLiteStore) Changed(ctx context.Context, buildID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var started int64
	err := s.db.QueryRowContext(ctx, "SELECT started_at FROM builds WHERE id = ?", buildID).Scan(&started)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, wrap(ErrBuildNotFound, err)
	}
	if err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}

	var prev string
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM builds WHERE started_at < ? ORDER BY started_at DESC LIMIT 1", started).Scan(&prev)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return nil, wrap(ErrQueryFailed, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.output FROM pages p
		 WHERE p.build_id = ? AND NOT EXISTS (
		   SELECT 1 FROM pages q WHERE q.build_id = ? AND q.output = p.output AND q.fingerprint = p.fingerprint)
		 ORDER BY p.output`, buildID, prev)
	if err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var changed []string
	for rows.Next() {
		var out string
		if err := rows.Scan(&out); err != nil {
			return nil, wrap(ErrQueryFailed, err)
		}
		changed = append(changed, out)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	return changed, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
