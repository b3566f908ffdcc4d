// Package translate defines the sentence translation contract used to
// show learners a native-language gloss of the drill sentence.
package translate

import "context"

// Pair names a source and target language as ISO 639-1 codes.
type Pair struct {
	Source string
	Target string
}

// String renders the pair in "en|ko" form.
func (p Pair) String() string { return p.Source + "|" + p.Target }

// Translator translates short sentences.
type Translator interface {
	Translate(ctx context.Context, text string, pair Pair) (string, error)
}
