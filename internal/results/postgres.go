package results

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the SQL DDL for the attempts table. Execute it via
// [PGStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS attempts (
    id              BIGSERIAL PRIMARY KEY,
    recorded_at     TIMESTAMPTZ NOT NULL,
    chapter_title   TEXT NOT NULL DEFAULT '',
    sentence_text   TEXT NOT NULL,
    recognized_text TEXT NOT NULL,
    pronunciation   DOUBLE PRECISION NOT NULL,
    intonation      DOUBLE PRECISION NOT NULL,
    speed           DOUBLE PRECISION NOT NULL,
    total_sync      DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_recorded_at ON attempts(recorded_at);
`

// PGDB is the database interface used by [PGStore]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type PGDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGStore is a [Store] backed by PostgreSQL, for deployments where several
// trainer instances share one attempt log.
type PGStore struct {
	db    PGDB
	close func()
}

// Compile-time interface check.
var _ Store = (*PGStore)(nil)

// NewPGStore wraps an existing connection or pool. The caller is
// responsible for calling [PGStore.Migrate] before issuing queries and for
// closing the connection.
func NewPGStore(db PGDB) *PGStore {
	return &PGStore{db: db}
}

// OpenPostgres connects a pool to dsn, applies the schema, and returns a
// ready store. Close releases the pool.
func OpenPostgres(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("results: connect postgres: %w", err)
	}
	s := &PGStore{db: pool, close: pool.Close}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate executes the [Schema] DDL, creating the attempts table and index
// if they do not already exist.
func (s *PGStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("results: migrate: %w", err)
	}
	return nil
}

// Append inserts one attempt.
func (s *PGStore) Append(ctx context.Context, a Attempt) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO attempts (recorded_at, chapter_title, sentence_text, recognized_text, pronunciation, intonation, speed, total_sync)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.Timestamp.UTC(),
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
func (s *PGStore) List(ctx context.Context) ([]Attempt, error) {
	rows, err := s.db.Query(ctx,
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
			ts time.Time
		)
		if err := rows.Scan(&ts, &a.ChapterTitle, &a.SentenceText, &a.RecognizedText,
			&a.Scores.Pronunciation, &a.Scores.Intonation, &a.Scores.Speed, &a.Scores.TotalSync); err != nil {
			return nil, fmt.Errorf("results: scan attempt: %w", err)
		}
		a.Timestamp = ts
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("results: iterate attempts: %w", err)
	}
	return attempts, nil
}

// Stats computes the attempt count and mean total score in SQL.
func (s *PGStore) Stats(ctx context.Context) (Stats, error) {
	var (
		count int
		avg   *float64
	)
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*), AVG(total_sync) FROM attempts`).Scan(&count, &avg)
	if err != nil {
		return Stats{}, fmt.Errorf("results: stats: %w", err)
	}
	st := Stats{Attempts: count}
	if avg != nil {
		st.AverageTotal = *avg
	}
	return st, nil
}

// Close releases the pool when the store owns one.
func (s *PGStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
