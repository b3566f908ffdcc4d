package results

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is a [Store] backed by a local SQLite database: the default
// persistent backend for single-machine use.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the SQLite database at path and applies
// migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("results: mkdir %q: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("results: open sqlite %q: %w", path, err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY,
			recorded_at TEXT NOT NULL,
			chapter_title TEXT NOT NULL DEFAULT '',
			sentence_text TEXT NOT NULL,
			recognized_text TEXT NOT NULL,
			pronunciation REAL NOT NULL,
			intonation REAL NOT NULL,
			speed REAL NOT NULL,
			total_sync REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_recorded_at ON attempts(recorded_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("results: migrate: %w", err)
		}
	}
	return nil
}

// Append inserts one attempt.
func (s *SQLiteStore) Append(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (recorded_at, chapter_title, sentence_text, recognized_text, pronunciation, intonation, speed, total_sync)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Timestamp.UTC().Format(time.RFC3339Nano),
		a.ChapterTitle,
		a.SentenceText,
		a.RecognizedText,
		a.Scores.Pronunciation,
		a.Scores.Intonation,
		a.Scores.Speed,
		a.Scores.TotalSync,
	)
	if err != nil {
		return fmt.Errorf("results: insert attempt: %w", err)
	}
	return nil
}

// List returns all attempts in insertion order.
func (s *SQLiteStore) List(ctx context.Context) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT recorded_at, chapter_title, sentence_text, recognized_text, pronunciation, intonation, speed, total_sync
		 FROM attempts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("results: query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var (
			a  Attempt
			ts string
		)
		if err := rows.Scan(&ts, &a.ChapterTitle, &a.SentenceText, &a.RecognizedText,
			&a.Scores.Pronunciation, &a.Scores.Intonation, &a.Scores.Speed, &a.Scores.TotalSync); err != nil {
			return nil, fmt.Errorf("results: scan attempt: %w", err)
		}
		if a.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("results: parse timestamp %q: %w", ts, err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("results: iterate attempts: %w", err)
	}
	return attempts, nil
}

// Stats computes the attempt count and mean total score in SQL.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var (
		count int
		avg   sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(total_sync) FROM attempts`).Scan(&count, &avg)
	if err != nil {
		return Stats{}, fmt.Errorf("results: stats: %w", err)
	}
	return Stats{Attempts: count, AverageTotal: avg.Float64}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
