// Package drill implements the training cycle state machine: play the
// reference sentence, listen to the learner's repetition, score it, and
// repeat up to [MaxRepeats] times per sentence before awaiting an advance
// to the next one.
//
// The controller is event driven. Blocking provider calls (playback,
// recognition) run on the cycle goroutine and their returns are the
// lifecycle signals; fixed delays between phases are cancellable sleeps.
// Every cycle goroutine carries a generation token taken when it was
// started, and all state mutations re-check the token under the lock, so
// a stale goroutine that outlives a pause or stop can never corrupt the
// next cycle's state.
package drill

import (
	"errors"

	"github.com/MrWong99/echodrill/internal/results"
)

// MaxRepeats is how many scored repetitions complete one sentence's drill.
const MaxRepeats = 10

var (
	// ErrRecognizerUnavailable is returned by StartAuto when no recognizer
	// is configured. Play-all mode remains usable.
	ErrRecognizerUnavailable = errors.New("drill: no recognizer configured, auto mode unavailable")

	// ErrDrillActive is returned when starting a mode that is already
	// running.
	ErrDrillActive = errors.New("drill: a drill is already active")

	// ErrNotPaused is returned by Resume when there is nothing to resume.
	ErrNotPaused = errors.New("drill: not paused")

	// ErrEmptyChapter is returned when starting any mode over a chapter
	// with no items.
	ErrEmptyChapter = errors.New("drill: chapter has no items")
)

// State is the training cycle state.
type State int

const (
	StateIdle State = iota
	StatePlayingTTS
	StateListening
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlayingTTS:
		return "playing_tts"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// EventKind discriminates controller events.
type EventKind int

const (
	// EventStateChanged reports a state transition.
	EventStateChanged EventKind = iota

	// EventAttemptScored reports one completed, recorded repetition.
	EventAttemptScored

	// EventRetryScheduled reports a recoverable recognition failure; the
	// same repeat will be retried after the retry delay.
	EventRetryScheduled

	// EventDrillComplete reports that the current sentence reached
	// MaxRepeats. Auto mode has stopped; the caller decides when to
	// Advance.
	EventDrillComplete

	// EventSectionComplete reports that Advance moved past the last item
	// and wrapped to the first.
	EventSectionComplete

	// EventPlayAllDone reports that play-all mode finished the chapter.
	EventPlayAllDone
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state_changed"
	case EventAttemptScored:
		return "attempt_scored"
	case EventRetryScheduled:
		return "retry_scheduled"
	case EventDrillComplete:
		return "drill_complete"
	case EventSectionComplete:
		return "section_complete"
	case EventPlayAllDone:
		return "play_all_done"
	default:
		return "unknown"
	}
}

// Event is one controller notification. ItemIndex and Repeat are the
// session cursor at emission time.
type Event struct {
	Kind      EventKind
	State     State
	ItemIndex int
	Repeat    int

	// Attempt is set on EventAttemptScored.
	Attempt *results.Attempt

	// Err is set on EventRetryScheduled.
	Err error
}
