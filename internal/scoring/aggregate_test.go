package scoring_test

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/MrWong99/echodrill/internal/scoring"
)

func TestAggregate_EngineConfidencePreferred(t *testing.T) {
	t.Parallel()

	set := scoring.Aggregate(8.0, scoring.ConfidenceInput{
		Engine:        0.92,
		HasEngine:     true,
		Intonation:    3.0,
		HasIntonation: true,
	}, 8.0)
	if set.Intonation != 9.2 {
		t.Errorf("intonation = %v, want 9.2 from engine confidence", set.Intonation)
	}
}

func TestAggregate_ZeroEngineConfidenceFallsBack(t *testing.T) {
	t.Parallel()

	// A reported confidence of exactly zero means "not measured" and must
	// fall through to the audio analysis.
	set := scoring.Aggregate(8.0, scoring.ConfidenceInput{
		Engine:        0,
		HasEngine:     true,
		Intonation:    7.4,
		HasIntonation: true,
	}, 8.0)
	if set.Intonation != 7.4 {
		t.Errorf("intonation = %v, want 7.4 from audio analysis", set.Intonation)
	}
}

func TestAggregate_LastResortDefault(t *testing.T) {
	t.Parallel()

	// No engine confidence, no captured audio: the fixed 0.5 default.
	set := scoring.Aggregate(8.0, scoring.ConfidenceInput{Engine: 0, HasEngine: true}, 8.0)
	if set.Intonation != 5.0 {
		t.Errorf("intonation = %v, want 5.0 (0.5 × 10)", set.Intonation)
	}
}

func TestAggregate_NaNConfidenceTakesDefault(t *testing.T) {
	t.Parallel()

	// A NaN report is malformed, not absent: it takes the fixed default
	// even when an audio-derived value is available.
	set := scoring.Aggregate(8.0, scoring.ConfidenceInput{
		Engine:        math.NaN(),
		HasEngine:     true,
		Intonation:    9.0,
		HasIntonation: true,
	}, 8.0)
	if set.Intonation != 5.0 {
		t.Errorf("intonation = %v, want 5.0 default for NaN confidence", set.Intonation)
	}

	set = scoring.Aggregate(8.0, scoring.ConfidenceInput{
		Engine:    math.NaN(),
		HasEngine: true,
	}, 8.0)
	if set.Intonation != 5.0 {
		t.Errorf("intonation = %v, want 5.0 default without audio too", set.Intonation)
	}
}

func TestAggregate_RandomizedBounds(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		pron := rng.Float64() * 10
		speed := rng.Float64() * 10
		conf := scoring.ConfidenceInput{
			Engine:    rng.Float64(),
			HasEngine: true,
		}
		set := scoring.Aggregate(pron, conf, speed)

		for name, v := range map[string]float64{
			"pronunciation": set.Pronunciation,
			"intonation":    set.Intonation,
			"speed":         set.Speed,
			"total":         set.TotalSync,
		} {
			if v < 0 || v > 10 {
				t.Fatalf("iteration %d: %s = %v outside [0, 10]", i, name, v)
			}
		}

		wantTotal := math.Round((set.Pronunciation+set.Intonation+set.Speed)/3*10) / 10
		if set.TotalSync != wantTotal {
			t.Fatalf("iteration %d: totalSync = %v, want %v", i, set.TotalSync, wantTotal)
		}
	}
}

func TestSpeedFromDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		words int
		d     time.Duration
		want  float64
	}{
		{"target rate", 13, 6 * time.Second, 10.0}, // exactly 130 WPM
		{"half rate", 13, 12 * time.Second, 5.0},   // 65 WPM, halfway off
		{"no words", 0, 6 * time.Second, scoring.DefaultSpeedScore},
		{"no duration", 13, 0, scoring.DefaultSpeedScore},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := scoring.SpeedFromDuration(c.words, c.d); got != c.want {
				t.Errorf("SpeedFromDuration(%d, %v) = %v, want %v", c.words, c.d, got, c.want)
			}
		})
	}
}

func TestSpeedFromDuration_DoubleRateScoresZero(t *testing.T) {
	t.Parallel()

	// 260 WPM is a full deviation above target.
	if got := scoring.SpeedFromDuration(26, 6*time.Second); got != 0 {
		t.Errorf("SpeedFromDuration = %v, want 0 at twice the target rate", got)
	}
}
