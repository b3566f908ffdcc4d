package resilience

import (
	"context"

	"github.com/MrWong99/echodrill/pkg/provider/translate"
)

// TranslateFallback implements [translate.Translator] behind per-backend
// circuit breakers. Even with a single backend this is useful: the free
// MyMemory API rate-limits aggressively, and an open breaker stops the
// session from hammering it once lookups start failing.
type TranslateFallback struct {
	group *FallbackGroup[translate.Translator]
}

// Compile-time interface assertion.
var _ translate.Translator = (*TranslateFallback)(nil)

// NewTranslateFallback creates a [TranslateFallback] with primary as the
// preferred backend.
func NewTranslateFallback(primary translate.Translator, primaryName string, cfg FallbackConfig) *TranslateFallback {
	return &TranslateFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional translator as a fallback.
func (f *TranslateFallback) AddFallback(name string, tr translate.Translator) {
	f.group.AddFallback(name, tr)
}

// Translate looks text up via the first healthy translator.
func (f *TranslateFallback) Translate(ctx context.Context, text string, pair translate.Pair) (string, error) {
	return ExecuteWithResult(f.group, func(tr translate.Translator) (string, error) {
		return tr.Translate(ctx, text, pair)
	})
}
