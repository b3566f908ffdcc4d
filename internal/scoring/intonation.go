package scoring

import (
	"github.com/MrWong99/echodrill/pkg/audio"
)

const (
	// voiceBandMaxHz is the upper bound of the plausible voice band.
	// Detected pitches at or above this are discarded, not clamped.
	voiceBandMaxHz = 500

	// minValidPitches is the minimum number of in-band pitch detections
	// required before a variation-based score is computed.
	minValidPitches = 5

	// defaultIntonationScore is returned when too few pitches were
	// detected to say anything meaningful about the utterance.
	defaultIntonationScore = 5.0

	intonationFloor   = 3.0
	intonationCeiling = 10.0

	// Normalisation divisors for the variation measures: typical speech
	// varies pitch by tens of Hz and volume by a few hundredths RMS.
	pitchVariationUnit  = 5.0
	volumeVariationUnit = 0.02

	pitchWeight  = 0.7
	volumeWeight = 0.3
)

// Analyzer turns the per-frame pitch and loudness of a captured utterance
// into a single intonation score. The zero value is not usable; construct
// with [NewAnalyzer]. An Analyzer is read-only after construction and safe
// for concurrent use.
type Analyzer struct {
	voiceBandMax float64
	minPitches   int
	defaultScore float64
}

// AnalyzerOption configures an [Analyzer].
type AnalyzerOption func(*Analyzer)

// WithVoiceBandMax sets the exclusive upper frequency bound for pitch
// detections to count as voice. Default: 500 Hz.
func WithVoiceBandMax(hz float64) AnalyzerOption {
	return func(a *Analyzer) { a.voiceBandMax = hz }
}

// WithMinValidPitches sets how many in-band pitch detections are required
// before a variation-based score is computed. Default: 5.
func WithMinValidPitches(n int) AnalyzerOption {
	return func(a *Analyzer) { a.minPitches = n }
}

// NewAnalyzer returns an [Analyzer] configured with the supplied options.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		voiceBandMax: voiceBandMaxHz,
		minPitches:   minValidPitches,
		defaultScore: defaultIntonationScore,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Score analyses the frames captured during one listening window and
// returns an intonation score in [3.0, 10.0], rounded to one decimal.
//
// Pitch is detected per frame and restricted to the plausible voice band;
// the RMS volume series is collected for every frame regardless of pitch
// validity. When fewer than the minimum number of valid pitches were found
// the fixed default (5.0) is returned — a low-confidence fallback, not a
// computed score. Otherwise the standard deviations of the pitch and volume
// series are normalised and combined, pitch variability weighted more
// heavily as the primary proxy for expressive intonation.
func (a *Analyzer) Score(frames []audio.Frame) float64 {
	if len(frames) == 0 {
		return a.defaultScore
	}

	var pitches, volumes []float64
	for _, f := range frames {
		if hz, err := DetectPitch(f.Samples, f.SampleRate); err == nil && hz > 0 && hz < a.voiceBandMax {
			pitches = append(pitches, hz)
		}
		volumes = append(volumes, audio.RMS(f.Samples))
	}

	if len(pitches) < a.minPitches {
		return a.defaultScore
	}

	pitchScore := clamp(intonationFloor, intonationCeiling, stdDev(pitches)/pitchVariationUnit*2)
	volumeScore := clamp(intonationFloor, intonationCeiling, stdDev(volumes)/volumeVariationUnit*2)

	score := pitchScore*pitchWeight + volumeScore*volumeWeight
	return round1(clamp(intonationFloor, intonationCeiling, score))
}
