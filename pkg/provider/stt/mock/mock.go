// Package mock provides a scriptable stt.Recognizer for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/echodrill/pkg/provider/stt"
)

var _ stt.Recognizer = (*Recognizer)(nil)

// Step is one scripted Listen outcome.
type Step struct {
	Result stt.Result
	Err    error
	// Delay is how long Listen blocks before returning, emulating the
	// learner speaking. Zero returns immediately.
	Delay time.Duration
}

// Recognizer replays scripted steps in order. Once the script is
// exhausted the last step repeats. Safe for concurrent use.
type Recognizer struct {
	mu    sync.Mutex
	steps []Step
	next  int
	calls int
}

// New creates a Recognizer that replays the given steps.
func New(steps ...Step) *Recognizer {
	if len(steps) == 0 {
		steps = []Step{{}}
	}
	return &Recognizer{steps: steps}
}

func (r *Recognizer) Listen(ctx context.Context) (stt.Result, error) {
	r.mu.Lock()
	step := r.steps[r.next]
	if r.next < len(r.steps)-1 {
		r.next++
	}
	r.calls++
	r.mu.Unlock()

	if step.Delay > 0 {
		select {
		case <-time.After(step.Delay):
		case <-ctx.Done():
			return stt.Result{}, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return stt.Result{}, err
	}
	return step.Result, step.Err
}

// Calls reports how many times Listen has been invoked.
func (r *Recognizer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
