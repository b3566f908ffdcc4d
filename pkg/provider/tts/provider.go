// Package tts defines the Provider interface for speech synthesis
// backends.
//
// The drill only needs batch playback with lifecycle signals: speak one
// reference sentence with a voice selected by the item's gender tag and a
// playback rate, and learn when playback starts and ends. Speak blocks
// until playback has finished so that the controller can treat its return
// as the playback-end signal; cancel ctx to abort playback early.
//
// Implementations must be safe for concurrent use, although the drill
// controller never overlaps playbacks.
package tts

import "context"

// Playback rates used by the drill. A rate of 1.0 is the voice's natural
// speed.
const (
	// DrillRate slows reference playback slightly so the learner can
	// track the sentence.
	DrillRate = 0.9

	// PlayAllRate is used by the play-all listening mode.
	PlayAllRate = 1.0
)

// Request describes one utterance to synthesise and play.
type Request struct {
	// Text is the sentence to speak. Must be non-empty.
	Text string

	// Gender selects the provider voice ("male" or "female"). Providers
	// fall back to a default voice for unknown tags.
	Gender string

	// Rate is the playback rate. Zero means 1.0.
	Rate float64

	// OnStart, when non-nil, is invoked once audio actually begins
	// playing. It is called on the provider's goroutine and must not
	// block.
	OnStart func()
}

// Provider is the abstraction over any speech synthesis backend.
type Provider interface {
	// Speak synthesises and plays req, returning once playback has
	// completed. Returns ctx.Err() when the context is cancelled
	// mid-playback; any other error means the utterance was not played.
	Speak(ctx context.Context, req Request) error
}
