package clients

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/signlearn/gesture-session/rank"
	"github.com/signlearn/gesture-session/summary"
)

// SQLiteStore keeps every session summary for progress tracking.
// Safe for concurrent use.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenSQLite creates the schema on first use. ":memory:" is accepted.
func OpenSQLite(path string) (*SQLiteStore, error) {
	connStr := path
	if path == ":memory:" {
		connStr = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS summaries (
		id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL,
		subject_name TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		elapsed_seconds REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS summary_entries (
		summary_id TEXT NOT NULL REFERENCES summaries(id),
		position INTEGER NOT NULL,
		label TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (summary_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_summaries_subject ON summaries(subject_id, created_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Name() string { return "sqlite" }

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Send inserts the summary and its entries in one transaction. Re-sending the
// same summary ID is a no-op.
func (s *SQLiteStore) Send(ctx context.Context, sum summary.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO summaries (id, subject_id, subject_name, created_at, elapsed_seconds)
		VALUES (?, ?, ?, ?, ?)`,
		sum.ID, sum.SubjectID, sum.SubjectName, sum.CreatedAt.UTC(), sum.ElapsedSeconds)
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tx.Commit()
	}

	for i, e := range sum.TopEntries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO summary_entries (summary_id, position, label, count) VALUES (?, ?, ?, ?)`,
			sum.ID, i, e.Label, e.Count); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}
	return tx.Commit()
}

// History returns a subject's summaries, newest first. limit <= 0 means all.
func (s *SQLiteStore) History(ctx context.Context, subjectID string, limit int) ([]summary.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `SELECT id, subject_id, subject_name, created_at, elapsed_seconds
		FROM summaries WHERE subject_id = ? ORDER BY created_at DESC, id`
	args := []any{subjectID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	var out []summary.Summary
	for rows.Next() {
		var sum summary.Summary
		if err := rows.Scan(&sum.ID, &sum.SubjectID, &sum.SubjectName, &sum.CreatedAt, &sum.ElapsedSeconds); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, sum)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		entries, err := s.entries(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].TopEntries = entries
	}
	return out, nil
}

func (s *SQLiteStore) entries(ctx context.Context, id string) ([]rank.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, count FROM summary_entries WHERE summary_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	out := []rank.Entry{}
	for rows.Next() {
		var e rank.Entry
		if err := rows.Scan(&e.Label, &e.Count); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
