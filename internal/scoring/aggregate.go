package scoring

import (
	"math"
	"time"
)

// ScoreSet is the result of scoring one recognised repetition. All fields
// lie in [0.0, 10.0] and are rounded to one decimal. TotalSync is the
// arithmetic mean of the other three. Immutable after creation.
type ScoreSet struct {
	Pronunciation float64 `json:"pronunciation"`
	Intonation    float64 `json:"intonation"`
	Speed         float64 `json:"speed"`
	TotalSync     float64 `json:"total_sync"`
}

// ConfidenceInput carries the evidence available for the intonation
// sub-score of one attempt. The fields form a fallback chain evaluated in
// priority order by [Aggregate]:
//
//  1. the recognition engine's own confidence, when reported and non-zero;
//  2. the intonation analyser's score over the captured audio;
//  3. a fixed last-resort default when no audio frames were captured.
type ConfidenceInput struct {
	// Engine is the recognition engine's self-reported confidence in [0, 1].
	Engine float64

	// HasEngine is false when the engine did not report a confidence.
	HasEngine bool

	// Intonation is the analyser's score in [3, 10] over the captured
	// frames. Ignored unless HasIntonation is set.
	Intonation float64

	// HasIntonation is false when no audio frames were captured.
	HasIntonation bool
}

// defaultConfidence substitutes for a missing confidence when neither the
// engine nor the audio analysis produced one.
const defaultConfidence = 0.5

// DefaultSpeedScore is used when no listening-window timing is available to
// measure actual speaking speed.
const DefaultSpeedScore = 8.0

// targetWordsPerMinute is the speaking rate that earns a full speed score.
// Conversational English sits around 120–150 WPM.
const targetWordsPerMinute = 130.0

// Aggregate combines the pronunciation sub-score, the confidence evidence
// and a speed sub-score into a [ScoreSet]. It is a pure function;
// persistence of the resulting attempt is the caller's responsibility.
//
// The intonation sub-score is the selected confidence value scaled to
// [0, 10]. A reported engine confidence of exactly zero is treated as
// absent and falls through to the audio analysis, since several
// recognition engines emit zero to mean "not measured". A NaN confidence
// is a malformed report, not a missing one: it takes the fixed default
// directly, even when audio frames were captured.
func Aggregate(pronunciation float64, conf ConfidenceInput, speed float64) ScoreSet {
	value := defaultConfidence
	switch {
	case conf.HasEngine && math.IsNaN(conf.Engine):
		// keep the default
	case conf.HasEngine && conf.Engine != 0:
		value = conf.Engine
	case conf.HasIntonation:
		value = conf.Intonation / 10
	}

	intonation := round1(clamp(0, 10, value*10))
	pronunciation = round1(clamp(0, 10, pronunciation))
	speed = round1(clamp(0, 10, speed))

	return ScoreSet{
		Pronunciation: pronunciation,
		Intonation:    intonation,
		Speed:         speed,
		TotalSync:     round1((pronunciation + intonation + speed) / 3),
	}
}

// SpeedFromDuration converts a measured utterance into a speed sub-score in
// [0.0, 10.0]. The words-per-minute rate is compared against the target
// conversational rate; the score decays linearly with the relative
// deviation and reaches zero at twice the target (or at standstill).
//
// When no words or no usable duration are available the fixed
// [DefaultSpeedScore] is returned.
func SpeedFromDuration(words int, d time.Duration) float64 {
	if words <= 0 || d <= 0 {
		return DefaultSpeedScore
	}
	wpm := float64(words) / d.Minutes()
	deviation := math.Abs(wpm-targetWordsPerMinute) / targetWordsPerMinute
	return round1(clamp(0, 10, 10*(1-deviation)))
}
