package resilience

import (
	"context"

	"github.com/MrWong99/echodrill/pkg/provider/stt"
)

// ListenFallback implements [stt.Recognizer] with automatic failover across
// multiple recognition backends. Each backend has its own circuit breaker.
type ListenFallback struct {
	group *FallbackGroup[stt.Recognizer]
}

// Compile-time interface assertion.
var _ stt.Recognizer = (*ListenFallback)(nil)

// NewListenFallback creates a [ListenFallback] with primary as the preferred
// backend.
func NewListenFallback(primary stt.Recognizer, primaryName string, cfg FallbackConfig) *ListenFallback {
	return &ListenFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional recognizer as a fallback.
func (f *ListenFallback) AddFallback(name string, rec stt.Recognizer) {
	f.group.AddFallback(name, rec)
}

// Listen captures one utterance via the first healthy recognizer. A
// cancelled listening window aborts the call rather than re-listening on a
// fallback.
func (f *ListenFallback) Listen(ctx context.Context) (stt.Result, error) {
	return ExecuteWithResult(f.group, func(r stt.Recognizer) (stt.Result, error) {
		return r.Listen(ctx)
	})
}
