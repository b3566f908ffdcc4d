// Package stt defines the speech recognition provider contract.
package stt

import (
	"context"
	"time"
)

// Result is one finished recognition of a learner utterance.
type Result struct {
	// Transcript is the recognized text, possibly empty when nothing
	// intelligible was heard.
	Transcript string

	// Confidence is the engine's confidence in [0, 1]. Only meaningful
	// when HasConfidence is true; engines that do not report confidence
	// leave it false so the caller can fall back to a derived value.
	Confidence    float64
	HasConfidence bool

	// SpeechDuration is how long the learner actually spoke, excluding
	// any network or inference time the engine spent afterwards. Zero
	// when the engine cannot separate the two; callers then fall back
	// to their own timing.
	SpeechDuration time.Duration
}

// Recognizer captures and recognizes a single learner utterance.
//
// Listen blocks until the utterance is complete (end-of-speech detected
// or an engine-specific limit is hit) and returns the recognition. A
// cancelled ctx aborts the capture; Listen then returns ctx.Err().
// Implementations must be safe for use from multiple goroutines, though
// the drill cycle issues at most one Listen at a time.
type Recognizer interface {
	Listen(ctx context.Context) (Result, error)
}
