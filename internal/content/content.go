// Package content loads and validates the chapter corpus the drill trains
// on. Chapters are read-only to the rest of the system: once loaded they
// are never mutated, only cursored over by a drill session.
package content

import (
	"errors"
	"fmt"
)

// ErrNoChapters is returned when a content file parses but contains no
// chapters. Fatal to session start.
var ErrNoChapters = errors.New("content: no chapters")

// Gender tags an item's speaker and selects the synthesis voice.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// IsValid reports whether g is a recognised gender tag.
func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale
}

// Item is one drill unit: a reference sentence together with its speaker
// metadata. Immutable once loaded.
type Item struct {
	// Text is the reference sentence the learner repeats. Never empty.
	Text string `json:"text"`

	// Speaker is the display label of the voice (e.g., "Anna").
	Speaker string `json:"speaker"`

	// Gender selects the synthesis voice for this item.
	Gender Gender `json:"gender"`
}

// Chapter is an ordered sequence of items under a title. Immutable.
type Chapter struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// Validate checks that chapters form a usable corpus: at least one
// chapter, every chapter non-empty, every item with text and a known
// gender tag. Returns a joined error listing all failures found.
func Validate(chapters []Chapter) error {
	if len(chapters) == 0 {
		return ErrNoChapters
	}

	var errs []error
	for ci, ch := range chapters {
		prefix := fmt.Sprintf("chapters[%d]", ci)
		if ch.Title == "" {
			errs = append(errs, fmt.Errorf("%s.title is required", prefix))
		}
		if len(ch.Items) == 0 {
			errs = append(errs, fmt.Errorf("%s (%q) has no items", prefix, ch.Title))
			continue
		}
		for ii, item := range ch.Items {
			if item.Text == "" {
				errs = append(errs, fmt.Errorf("%s.items[%d].text is required", prefix, ii))
			}
			if item.Gender != "" && !item.Gender.IsValid() {
				errs = append(errs, fmt.Errorf("%s.items[%d].gender %q is invalid; valid values: male, female", prefix, ii, item.Gender))
			}
		}
	}
	return errors.Join(errs...)
}
