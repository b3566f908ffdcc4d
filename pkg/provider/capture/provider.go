// Package capture defines the microphone capture contract used for
// intonation analysis. While a recognizer handles the words, a capture
// Source streams raw analysis windows so pitch and volume can be scored
// in parallel.
package capture

import (
	"context"

	"github.com/MrWong99/echodrill/pkg/audio"
)

// Config describes the analysis stream to open.
type Config struct {
	// SampleRate in Hz. Zero selects the device default.
	SampleRate int
	// WindowSize is the number of samples per emitted frame. Zero
	// selects audio.AnalysisWindowSize.
	WindowSize int
	// Smoothing in [0, 1) applied by the device's analyser. Zero selects
	// audio.SmoothingConstant.
	Smoothing float64
}

// WithDefaults returns a copy of c with zero fields filled in.
func (c Config) WithDefaults() Config {
	if c.SampleRate == 0 {
		c.SampleRate = audio.DefaultSampleRate
	}
	if c.WindowSize == 0 {
		c.WindowSize = audio.AnalysisWindowSize
	}
	if c.Smoothing == 0 {
		c.Smoothing = audio.SmoothingConstant
	}
	return c
}

// Window is one open capture stream.
type Window interface {
	// Frames returns the stream of analysis frames. The channel is
	// closed when the stream ends, whether by Close, context
	// cancellation or device loss.
	Frames() <-chan audio.Frame

	// Close stops capture and releases the device. Safe to call more
	// than once.
	Close() error
}

// Source opens capture streams. Implementations wrap a microphone, a
// replay file or a test fixture.
type Source interface {
	Open(ctx context.Context, cfg Config) (Window, error)
}
