// Package results persists scored attempts and running training
// statistics. The attempt log is append-only and insertion-ordered:
// attempts are never mutated or removed, and the log length always equals
// the number of completed recognition events since session start.
package results

import (
	"context"
	"time"

	"github.com/MrWong99/echodrill/internal/scoring"
)

// Attempt is one scored repetition within a drill.
type Attempt struct {
	Timestamp      time.Time        `json:"timestamp"`
	ChapterTitle   string           `json:"chapter_title,omitempty"`
	SentenceText   string           `json:"sentence_text"`
	RecognizedText string           `json:"recognized_text"`
	Scores         scoring.ScoreSet `json:"scores"`
}

// Stats summarises the attempt log.
type Stats struct {
	// Attempts is the number of scored attempts recorded.
	Attempts int

	// AverageTotal is the running mean of the attempts' total scores,
	// maintained incrementally: newAvg = (oldAvg·(n−1) + latest) / n.
	AverageTotal float64
}

// Store is the attempt log abstraction. Implementations must be safe for
// concurrent use, although the drill controller only ever writes from one
// goroutine at a time.
type Store interface {
	// Append records one scored attempt. Attempts are immutable once
	// appended.
	Append(ctx context.Context, a Attempt) error

	// List returns all recorded attempts in insertion order.
	List(ctx context.Context) ([]Attempt, error)

	// Stats returns the running statistics over the log.
	Stats(ctx context.Context) (Stats, error)

	// Close releases any underlying resources. Calling Close more than
	// once is safe.
	Close() error
}

// addToMean folds one more value into a running mean over n prior values.
func addToMean(oldAvg float64, n int, latest float64) float64 {
	return (oldAvg*float64(n) + latest) / float64(n+1)
}
