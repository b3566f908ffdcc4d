package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// cleanTranscript lowercases s, strips sentence punctuation and trims
// surrounding whitespace so that "I am going to the store." and
// "i am going to the store" compare as equal.
func cleanTranscript(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '?', '!':
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// ScorePronunciation compares the recognised utterance against the
// reference sentence and returns a score in [0.0, 10.0], rounded to one
// decimal.
//
// Both strings are cleaned, then the single-character Levenshtein distance
// between them is normalised by the longer cleaned length:
//
//	similarity = 1 − distance / max(len(reference), len(recognized))
//
// Lengths are counted in runes to match the distance, which is also
// rune-based; transcripts routinely carry curly apostrophes or accented
// characters and must not score differently for it.
//
// Two empty cleaned strings score 0, not 10 — an empty recognition carries
// no evidence of pronunciation quality.
func ScorePronunciation(reference, recognized string) float64 {
	ref := cleanTranscript(reference)
	rec := cleanTranscript(recognized)

	maxLen := max(utf8.RuneCountInString(ref), utf8.RuneCountInString(rec))
	if maxLen == 0 {
		return 0
	}

	distance := matchr.Levenshtein(ref, rec)
	similarity := 1 - float64(distance)/float64(maxLen)

	return round1(clamp(0, 10, similarity*10))
}
