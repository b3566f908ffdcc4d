// Package scoring implements the signal-derived scoring engine for the
// drill: pitch detection from raw audio samples, intonation analysis over a
// captured utterance, edit-distance pronunciation similarity, and the
// aggregation of sub-scores into one scored attempt.
package scoring

import (
	"errors"
	"math"

	"github.com/MrWong99/echodrill/pkg/audio"
)

// ErrNoPitch is returned by [DetectPitch] when no fundamental frequency can
// be estimated: the frame is too quiet, or no correlation peak qualifies.
var ErrNoPitch = errors.New("scoring: no pitch detected")

const (
	// silenceGate is the RMS level below which a frame is treated as
	// silence and pitch detection is skipped entirely.
	silenceGate = 0.01

	// correlationThreshold is the minimum autocorrelation a lag must reach
	// before it is considered a periodicity candidate.
	correlationThreshold = 0.9

	// minBestCorrelation rejects degenerate detections where the best
	// candidate barely correlates at all.
	minBestCorrelation = 0.01
)

// DetectPitch estimates the fundamental frequency of one frame of 8-bit
// time-domain samples using time-domain autocorrelation.
//
// The frame is normalised to [-1, 1]; frames whose RMS falls below the
// silence gate return [ErrNoPitch] immediately. Candidate lags from 1 to
// len(samples)/2 are scored as 1 minus the mean absolute difference between
// the signal and its shifted copy, and the detector keeps the best-scoring
// lag that both exceeds the correlation threshold and rises above the
// previous lag's score. That favours the first strong, locally-peaking
// periodicity over the globally strongest one, which tracks short voiced
// segments better than a global argmax.
func DetectPitch(samples []byte, sampleRate int) (float64, error) {
	size := len(samples)
	half := size / 2
	if half < 1 || sampleRate <= 0 {
		return 0, ErrNoPitch
	}

	if audio.RMS(samples) < silenceGate {
		return 0, ErrNoPitch
	}

	bestOffset := -1
	bestCorrelation := 0.0
	lastCorrelation := 1.0

	for offset := 1; offset < half; offset++ {
		var diff float64
		for i := 0; i < half; i++ {
			diff += math.Abs(audio.Normalize(samples[i]) - audio.Normalize(samples[i+offset]))
		}
		correlation := 1 - diff/float64(half)

		if correlation > correlationThreshold && correlation > lastCorrelation && correlation > bestCorrelation {
			bestCorrelation = correlation
			bestOffset = offset
		}
		lastCorrelation = correlation
	}

	if bestOffset > 0 && bestCorrelation > minBestCorrelation {
		return float64(sampleRate) / float64(bestOffset), nil
	}
	return 0, ErrNoPitch
}
