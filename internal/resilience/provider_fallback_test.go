package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/echodrill/pkg/provider/stt"
	sttmock "github.com/MrWong99/echodrill/pkg/provider/stt/mock"
	"github.com/MrWong99/echodrill/pkg/provider/translate"
	"github.com/MrWong99/echodrill/pkg/provider/tts"
	ttsmock "github.com/MrWong99/echodrill/pkg/provider/tts/mock"
)

func TestSpeakFallbackUsesSecondaryOnFailure(t *testing.T) {
	t.Parallel()

	primary := ttsmock.New()
	primary.Err = errors.New("server down")
	secondary := ttsmock.New()

	f := NewSpeakFallback(primary, "primary", FallbackConfig{})
	f.AddFallback("secondary", secondary)

	req := tts.Request{Text: "hello there", Gender: "female", Rate: 0.9}
	if err := f.Speak(context.Background(), req); err != nil {
		t.Fatalf("Speak: %v", err)
	}

	if got := len(secondary.Requests()); got != 1 {
		t.Fatalf("secondary spoke %d times, want 1", got)
	}
	if got := secondary.Requests()[0].Text; got != "hello there" {
		t.Fatalf("secondary spoke %q", got)
	}
}

func TestSpeakFallbackAbortStopsChain(t *testing.T) {
	t.Parallel()

	primary := ttsmock.New()
	secondary := ttsmock.New()

	f := NewSpeakFallback(primary, "primary", FallbackConfig{})
	f.AddFallback("secondary", secondary)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.Speak(ctx, tts.Request{Text: "hi"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Speak err = %v, want context.Canceled", err)
	}
	// A cancelled playback must not replay the sentence on the fallback.
	if got := len(secondary.Requests()); got != 0 {
		t.Fatalf("secondary spoke %d times, want 0", got)
	}
}

func TestListenFallbackReturnsSecondaryResult(t *testing.T) {
	t.Parallel()

	primary := sttmock.New(sttmock.Step{Err: errors.New("whisper unreachable")})
	secondary := sttmock.New(sttmock.Step{
		Result: stt.Result{Transcript: "good morning", Confidence: 0.8, HasConfidence: true},
	})

	f := NewListenFallback(primary, "primary", FallbackConfig{})
	f.AddFallback("secondary", secondary)

	res, err := f.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if res.Transcript != "good morning" {
		t.Fatalf("Transcript = %q", res.Transcript)
	}
	if primary.Calls() != 1 || secondary.Calls() != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", primary.Calls(), secondary.Calls())
	}
}

type scriptedTranslator struct {
	gloss string
	err   error
	calls int
}

func (s *scriptedTranslator) Translate(context.Context, string, translate.Pair) (string, error) {
	s.calls++
	return s.gloss, s.err
}

func TestTranslateFallbackAllFailed(t *testing.T) {
	t.Parallel()

	broken := &scriptedTranslator{err: errors.New("quota exceeded")}

	f := NewTranslateFallback(broken, "mymemory", FallbackConfig{})

	_, err := f.Translate(context.Background(), "hello", translate.Pair{Source: "en", Target: "ko"})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestTranslateFallbackBreakerStopsHammering(t *testing.T) {
	t.Parallel()

	broken := &scriptedTranslator{err: errors.New("quota exceeded")}

	f := NewTranslateFallback(broken, "mymemory", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2},
	})

	pair := translate.Pair{Source: "en", Target: "ko"}
	for i := 0; i < 5; i++ {
		_, _ = f.Translate(context.Background(), "hello", pair)
	}

	// After two consecutive failures the breaker opens and the backend
	// stops being called.
	if broken.calls != 2 {
		t.Fatalf("backend called %d times, want 2", broken.calls)
	}
}
