package results_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/echodrill/internal/results"
	"github.com/MrWong99/echodrill/internal/scoring"
)

func attempt(total float64, sentence string) results.Attempt {
	return results.Attempt{
		Timestamp:      time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		ChapterTitle:   "Greetings",
		SentenceText:   sentence,
		RecognizedText: sentence,
		Scores: scoring.ScoreSet{
			Pronunciation: total,
			Intonation:    total,
			Speed:         total,
			TotalSync:     total,
		},
	}
}

// storeUnderTest runs the shared Store contract checks.
func storeUnderTest(t *testing.T, s results.Store) {
	t.Helper()
	ctx := context.Background()

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats on empty store: %v", err)
	}
	if st.Attempts != 0 {
		t.Fatalf("empty store reports %d attempts", st.Attempts)
	}

	totals := []float64{10.0, 5.0, 7.5}
	for _, v := range totals {
		if err := s.Append(ctx, attempt(v, "hello")); err != nil {
			t.Fatalf("Append(%v): %v", v, err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != len(totals) {
		t.Fatalf("List returned %d attempts, want %d", len(list), len(totals))
	}
	for i, v := range totals {
		if list[i].Scores.TotalSync != v {
			t.Errorf("attempt %d total = %v, want %v (insertion order)", i, list[i].Scores.TotalSync, v)
		}
	}

	st, err = s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", st.Attempts)
	}
	if math.Abs(st.AverageTotal-7.5) > 1e-9 {
		t.Errorf("AverageTotal = %v, want 7.5", st.AverageTotal)
	}
}

func TestMemStore(t *testing.T) {
	t.Parallel()
	storeUnderTest(t, results.NewMemStore())
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "attempts.jsonl")
	fs, err := results.OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	storeUnderTest(t, fs)

	// Reopening must recover the running statistics from disk.
	reopened, err := results.OpenFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	st, err := reopened.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats after reopen: %v", err)
	}
	if st.Attempts != 3 {
		t.Errorf("Attempts after reopen = %d, want 3", st.Attempts)
	}
	if math.Abs(st.AverageTotal-7.5) > 1e-9 {
		t.Errorf("AverageTotal after reopen = %v, want 7.5", st.AverageTotal)
	}
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	s, err := results.OpenSQLite(filepath.Join(t.TempDir(), "echodrill.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	storeUnderTest(t, s)
}

func TestMemStore_RunningAverageIncremental(t *testing.T) {
	t.Parallel()

	s := results.NewMemStore()
	ctx := context.Background()

	// The running mean after each append must match
	// newAvg = (oldAvg·(n−1) + latest) / n.
	values := []float64{9.1, 3.3, 7.0, 10.0, 0.0}
	var want float64
	for n, v := range values {
		if err := s.Append(ctx, attempt(v, "x")); err != nil {
			t.Fatalf("Append: %v", err)
		}
		want = (want*float64(n) + v) / float64(n+1)

		st, err := s.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if math.Abs(st.AverageTotal-want) > 1e-9 {
			t.Fatalf("after %d appends: avg = %v, want %v", n+1, st.AverageTotal, want)
		}
	}
}
