package results

import (
	"context"
	"sync"
)

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// MemStore is an in-memory [Store]. It is the default backend: the attempt
// log lives for the process lifetime, matching the page-session semantics
// of the original trainer. Safe for concurrent use.
type MemStore struct {
	mu       sync.Mutex
	attempts []Attempt
	avg      float64
}

// NewMemStore returns an empty in-memory attempt log.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Append records a new attempt and folds its total score into the running
// average.
func (m *MemStore) Append(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.avg = addToMean(m.avg, len(m.attempts), a.Scores.TotalSync)
	m.attempts = append(m.attempts, a)
	return nil
}

// List returns a copy of the attempt log in insertion order.
func (m *MemStore) List(_ context.Context) ([]Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Attempt, len(m.attempts))
	copy(out, m.attempts)
	return out, nil
}

// Stats returns the attempt count and running average total score.
func (m *MemStore) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{Attempts: len(m.attempts), AverageTotal: m.avg}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error { return nil }
