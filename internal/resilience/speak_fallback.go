package resilience

import (
	"context"

	"github.com/MrWong99/echodrill/pkg/provider/tts"
)

// SpeakFallback implements [tts.Provider] with automatic failover across
// multiple synthesis backends. Each backend has its own circuit breaker, so
// a Coqui server that keeps timing out is bypassed in favour of a healthy
// fallback instead of stalling every repetition.
type SpeakFallback struct {
	group *FallbackGroup[tts.Provider]
}

// Compile-time interface assertion.
var _ tts.Provider = (*SpeakFallback)(nil)

// NewSpeakFallback creates a [SpeakFallback] with primary as the preferred
// backend.
func NewSpeakFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *SpeakFallback {
	return &SpeakFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional synthesis provider as a fallback.
func (f *SpeakFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Speak plays req via the first healthy provider. An aborted playback
// (context cancellation) aborts the whole call instead of replaying the
// sentence on a fallback.
func (f *SpeakFallback) Speak(ctx context.Context, req tts.Request) error {
	return f.group.Execute(func(p tts.Provider) error {
		return p.Speak(ctx, req)
	})
}
