// Package audio defines the audio frame type and sample math shared by the
// capture providers and the scoring engine.
//
// Frames carry raw 8-bit time-domain samples the way an analyser window
// exposes them: values in [0, 255] centred on a bias of 128. All scoring
// maths first normalises samples to [-1, 1] via [Normalize].
package audio

import (
	"math"
	"time"
)

const (
	// BiasLevel is the centre value of an 8-bit time-domain sample.
	BiasLevel = 128

	// AnalysisWindowSize is the number of samples per captured frame.
	AnalysisWindowSize = 2048

	// DefaultSampleRate is the capture rate used when a source does not
	// pick its own.
	DefaultSampleRate = 44100

	// SmoothingConstant is the analyser smoothing factor applied by capture
	// providers before a frame is snapshotted.
	SmoothingConstant = 0.8
)

// Frame is one snapshot of time-domain samples taken during a listening
// window. Frames are ephemeral: the whole sequence captured during a window
// is discarded once the window's utterance has been scored.
type Frame struct {
	// Samples holds raw 8-bit time-domain values centred at [BiasLevel].
	Samples []byte

	// SampleRate in Hz of the stream the snapshot was taken from.
	SampleRate int

	// Timestamp marks when this frame was captured, relative to the start
	// of the listening window.
	Timestamp time.Duration
}

// Normalize maps an 8-bit biased sample to [-1, 1].
func Normalize(s byte) float64 {
	return (float64(s) - BiasLevel) / BiasLevel
}

// RMS returns the root-mean-square energy of the samples after
// normalisation. An empty slice has zero energy.
func RMS(samples []byte) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := Normalize(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
