package drill

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/echodrill/internal/content"
	"github.com/MrWong99/echodrill/internal/observe"
	"github.com/MrWong99/echodrill/internal/results"
	"github.com/MrWong99/echodrill/internal/scoring"
	"github.com/MrWong99/echodrill/pkg/provider/capture"
	"github.com/MrWong99/echodrill/pkg/provider/stt"
	"github.com/MrWong99/echodrill/pkg/provider/tts"
)

// Phase delay defaults, matching the drill pacing the scoring was tuned
// against.
const (
	defaultListenDelay  = 500 * time.Millisecond
	defaultCycleDelay   = 1500 * time.Millisecond
	defaultRetryDelay   = 2000 * time.Millisecond
	defaultPlayAllDelay = 500 * time.Millisecond

	eventBufferSize = 64
)

type mode int

const (
	modeIdle mode = iota
	modeAuto
	modePlayAll
)

// Option configures a [Controller].
type Option func(*Controller)

// WithCaptureSource attaches an audio capture source for intonation
// analysis. Without one, the intonation sub-score degrades to the
// confidence fallback chain.
func WithCaptureSource(src capture.Source) Option {
	return func(c *Controller) { c.source = src }
}

// WithAnalyzer overrides the intonation analyzer.
func WithAnalyzer(a *scoring.Analyzer) Option {
	return func(c *Controller) { c.analyzer = a }
}

// WithLogger sets the controller logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithMetrics sets the metrics instruments. Default:
// observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithListenDelay sets the pause between playback end and listening start.
func WithListenDelay(d time.Duration) Option {
	return func(c *Controller) { c.listenDelay = d }
}

// WithCycleDelay sets the pause between a scored repetition and the next
// playback.
func WithCycleDelay(d time.Duration) Option {
	return func(c *Controller) { c.cycleDelay = d }
}

// WithRetryDelay sets the backoff after a recoverable recognition error.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Controller) { c.retryDelay = d }
}

// WithPlayAllDelay sets the gap between items in play-all mode.
func WithPlayAllDelay(d time.Duration) Option {
	return func(c *Controller) { c.playAllDelay = d }
}

// Controller drives the drill over one chapter. All exported methods are
// safe for concurrent use; the cycle itself runs on a dedicated goroutine
// per start/resume.
type Controller struct {
	chapter  content.Chapter
	speaker  tts.Provider
	rec      stt.Recognizer
	source   capture.Source
	store    results.Store
	analyzer *scoring.Analyzer
	log      *slog.Logger
	metrics  *observe.Metrics

	listenDelay  time.Duration
	cycleDelay   time.Duration
	retryDelay   time.Duration
	playAllDelay time.Duration

	events chan Event

	mu        sync.Mutex
	state     State
	mode      mode
	paused    bool
	itemIndex int
	repeat    int

	// gen invalidates goroutines started before the last command; every
	// mutation from a cycle goroutine re-checks it under mu.
	gen    uint64
	cancel context.CancelFunc
}

// New creates a Controller over the given chapter. rec may be nil, in
// which case auto mode is unavailable but play-all still works.
func New(chapter content.Chapter, speaker tts.Provider, rec stt.Recognizer, store results.Store, opts ...Option) *Controller {
	c := &Controller{
		chapter:      chapter,
		speaker:      speaker,
		rec:          rec,
		store:        store,
		analyzer:     scoring.NewAnalyzer(),
		log:          slog.Default(),
		metrics:      observe.DefaultMetrics(),
		listenDelay:  defaultListenDelay,
		cycleDelay:   defaultCycleDelay,
		retryDelay:   defaultRetryDelay,
		playAllDelay: defaultPlayAllDelay,
		events:       make(chan Event, eventBufferSize),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Events returns the controller's notification stream. Events are dropped
// rather than blocking the cycle when the consumer falls behind.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// State returns the current cycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Position returns the session cursor: current item index and how many
// repeats of it have been scored.
func (c *Controller) Position() (item, repeat int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemIndex, c.repeat
}

// StartAuto begins the repeat drill at the current item with the repeat
// counter reset. A running play-all is stopped first. Returns
// ErrRecognizerUnavailable when no recognizer is configured,
// ErrEmptyChapter when the chapter has no items and ErrDrillActive when
// an unpaused drill is already running.
func (c *Controller) StartAuto(ctx context.Context) error {
	if c.rec == nil {
		return ErrRecognizerUnavailable
	}
	if len(c.chapter.Items) == 0 {
		return ErrEmptyChapter
	}

	c.mu.Lock()
	if c.mode == modeAuto && !c.paused {
		c.mu.Unlock()
		return ErrDrillActive
	}
	c.interruptLocked()
	c.mode = modeAuto
	c.paused = false
	c.repeat = 0
	runCtx, gen := c.armLocked(ctx)
	c.mu.Unlock()

	c.metrics.ActiveDrills.Add(ctx, 1)
	go c.autoLoop(runCtx, gen)
	return nil
}

// Pause cancels any in-flight playback, capture and recognition and
// returns the cycle to idle while preserving the item/repeat cursor. The
// repetition that was in progress is discarded unscored.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != modeAuto || c.paused {
		return
	}
	c.interruptLocked()
	c.paused = true
	c.setStateLocked(StateIdle)
}

// Resume re-enters the drill at the preserved item/repeat cursor.
// Completed repeats are not replayed.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != modeAuto || !c.paused {
		c.mu.Unlock()
		return ErrNotPaused
	}
	c.paused = false
	runCtx, gen := c.armLocked(ctx)
	c.mu.Unlock()

	go c.autoLoop(runCtx, gen)
	return nil
}

// Stop cancels whatever is running and resets the repeat counter. The
// item cursor keeps its position for a later restart.
func (c *Controller) Stop() {
	c.mu.Lock()
	wasAuto := c.mode == modeAuto
	c.interruptLocked()
	c.mode = modeIdle
	c.paused = false
	c.repeat = 0
	c.setStateLocked(StateIdle)
	c.mu.Unlock()

	if wasAuto {
		c.metrics.ActiveDrills.Add(context.Background(), -1)
	}
}

// Advance moves the cursor to the next item and resets the repeat
// counter. When the cursor runs past the last item it wraps to the first
// and a section-complete event is emitted; wrapped reports that case.
// Advance does not start playback; the caller decides when to StartAuto
// again.
func (c *Controller) Advance() (wrapped bool) {
	c.mu.Lock()
	c.repeat = 0
	c.itemIndex++
	if c.itemIndex >= len(c.chapter.Items) {
		c.itemIndex = 0
		wrapped = true
	}
	item, repeat, state := c.itemIndex, c.repeat, c.state
	c.mu.Unlock()

	if wrapped {
		c.emit(Event{Kind: EventSectionComplete, State: state, ItemIndex: item, Repeat: repeat})
	}
	return wrapped
}

// StartPlayAll plays every item's reference audio once at normal rate,
// without listening or scoring. A running drill is stopped first; the two
// modes are mutually exclusive.
func (c *Controller) StartPlayAll(ctx context.Context) error {
	if len(c.chapter.Items) == 0 {
		return ErrEmptyChapter
	}
	c.mu.Lock()
	if c.mode == modePlayAll {
		c.mu.Unlock()
		return ErrDrillActive
	}
	wasAuto := c.mode == modeAuto
	c.interruptLocked()
	c.mode = modePlayAll
	c.paused = false
	c.repeat = 0
	runCtx, gen := c.armLocked(ctx)
	c.mu.Unlock()

	if wasAuto {
		c.metrics.ActiveDrills.Add(ctx, -1)
	}
	go c.playAllLoop(runCtx, gen)
	return nil
}

// interruptLocked cancels the running cycle goroutine, if any, and bumps
// the generation so its pending mutations become no-ops. Callers hold mu.
func (c *Controller) interruptLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
}

// armLocked prepares a cancelable context and generation token for a new
// cycle goroutine. Callers hold mu.
func (c *Controller) armLocked(ctx context.Context) (context.Context, uint64) {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	return runCtx, c.gen
}

// setStateLocked transitions the state and emits the change. Callers
// hold mu.
func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.emit(Event{Kind: EventStateChanged, State: s, ItemIndex: c.itemIndex, Repeat: c.repeat})
}

// current returns the generation-checked cursor, or ok=false when the
// calling goroutine has been superseded.
func (c *Controller) current(gen uint64) (item content.Item, idx int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return content.Item{}, 0, false
	}
	return c.chapter.Items[c.itemIndex], c.itemIndex, true
}

// transition performs a generation-checked state change.
func (c *Controller) transition(gen uint64, s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.setStateLocked(s)
	return true
}

func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn("event dropped, consumer too slow", "kind", ev.Kind.String())
	}
}

// sleep waits d or until ctx is cancelled; it reports whether the full
// delay elapsed.
func (c *Controller) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
