package drill

import (
	"context"
	"strings"
	"time"

	"github.com/MrWong99/echodrill/internal/content"
	"github.com/MrWong99/echodrill/internal/results"
	"github.com/MrWong99/echodrill/internal/scoring"
	"github.com/MrWong99/echodrill/pkg/audio"
	"github.com/MrWong99/echodrill/pkg/provider/capture"
	"github.com/MrWong99/echodrill/pkg/provider/stt"
	"github.com/MrWong99/echodrill/pkg/provider/tts"
)

// autoLoop runs repeat cycles for the current item until the drill
// completes, a command interrupts it, or ctx is cancelled.
func (c *Controller) autoLoop(ctx context.Context, gen uint64) {
	for {
		item, idx, ok := c.current(gen)
		if !ok {
			return
		}
		if !c.transition(gen, StatePlayingTTS) {
			return
		}

		ttsStart := time.Now()
		err := c.speaker.Speak(ctx, tts.Request{
			Text:   item.Text,
			Gender: string(item.Gender),
			Rate:   tts.DrillRate,
		})
		if ctx.Err() != nil {
			return
		}
		c.metrics.TTSDuration.Record(ctx, time.Since(ttsStart).Seconds())
		if err != nil {
			c.log.Error("playback failed, retrying", "item", idx, "error", err)
			c.metrics.RecordProviderError(ctx, "tts", "speak")
			if !c.sleep(ctx, c.retryDelay) {
				return
			}
			continue
		}

		if !c.sleep(ctx, c.listenDelay) {
			return
		}
		if !c.transition(gen, StateListening) {
			return
		}

		res, frames, listenDur, err := c.listenOnce(ctx)
		if ctx.Err() != nil {
			// Paused or stopped mid-listen: discard the repetition.
			return
		}
		c.metrics.ListenDuration.Record(ctx, listenDur.Seconds())
		if err != nil {
			c.log.Warn("recognition failed, retrying repeat", "item", idx, "error", err)
			c.metrics.RecognitionErrors.Add(ctx, 1)
			c.metrics.RecordRepetition(ctx, "retried")
			c.emitRetry(gen, err)
			if !c.sleep(ctx, c.retryDelay) {
				return
			}
			continue
		}

		if !c.transition(gen, StateProcessing) {
			return
		}

		scoringStart := time.Now()
		attempt := c.scoreAttempt(item, res, frames, listenDur)
		c.metrics.ScoringDuration.Record(ctx, time.Since(scoringStart).Seconds())
		if err := c.store.Append(ctx, attempt); err != nil {
			c.log.Error("recording attempt failed", "item", idx, "error", err)
		}

		done, ok := c.finishRepeat(gen, &attempt)
		if !ok {
			return
		}
		c.metrics.RecordAttempt(ctx, c.chapter.Title, attempt.Scores.TotalSync)
		c.metrics.RecordRepetition(ctx, "scored")
		if done {
			c.metrics.DrillsCompleted.Add(ctx, 1)
			c.metrics.ActiveDrills.Add(ctx, -1)
			return
		}

		if !c.sleep(ctx, c.cycleDelay) {
			return
		}
	}
}

// listenOnce opens one capture window, runs one recognition over it and
// returns the result together with the frames captured while listening.
// The window is fully drained before returning: no frame arrives after
// the listening phase ends.
func (c *Controller) listenOnce(ctx context.Context) (stt.Result, []audio.Frame, time.Duration, error) {
	var (
		win       capture.Window
		frames    []audio.Frame
		collected chan struct{}
	)
	if c.source != nil {
		w, err := c.source.Open(ctx, capture.Config{})
		if err != nil {
			// Intonation degrades to the confidence fallback chain.
			c.log.Warn("audio capture unavailable", "error", err)
		} else {
			win = w
			collected = make(chan struct{})
			go func() {
				defer close(collected)
				for f := range win.Frames() {
					frames = append(frames, f)
				}
			}()
		}
	}

	start := time.Now()
	res, err := c.rec.Listen(ctx)
	dur := time.Since(start)

	if win != nil {
		_ = win.Close()
		<-collected
	}
	return res, frames, dur, err
}

// scoreAttempt turns one recognition into a recorded attempt.
func (c *Controller) scoreAttempt(item content.Item, res stt.Result, frames []audio.Frame, listenDur time.Duration) results.Attempt {
	pron := scoring.ScorePronunciation(item.Text, res.Transcript)

	conf := scoring.ConfidenceInput{
		Engine:    res.Confidence,
		HasEngine: res.HasConfidence,
	}
	if len(frames) > 0 {
		conf.Intonation = c.analyzer.Score(frames)
		conf.HasIntonation = true
	}

	words := len(strings.Fields(res.Transcript))
	speed := scoring.SpeedFromDuration(words, speechDuration(res, frames, listenDur))

	return results.Attempt{
		Timestamp:      time.Now(),
		ChapterTitle:   c.chapter.Title,
		SentenceText:   item.Text,
		RecognizedText: res.Transcript,
		Scores:         scoring.Aggregate(pron, conf, speed),
	}
}

// speechDuration picks the best available measure of how long the
// learner spoke. The recognizer's own figure is preferred; the last
// captured frame's offset is the next best. The full listen round-trip,
// which includes upload and inference time on remote engines, is only a
// last resort so a slow backend cannot drag down the speed score.
func speechDuration(res stt.Result, frames []audio.Frame, listenDur time.Duration) time.Duration {
	if res.SpeechDuration > 0 {
		return res.SpeechDuration
	}
	if len(frames) > 0 {
		if ts := frames[len(frames)-1].Timestamp; ts > 0 {
			return ts
		}
	}
	return listenDur
}

// finishRepeat increments the repeat counter and emits the scored
// attempt. done reports that the sentence reached MaxRepeats, in which
// case auto mode has stopped and a drill-complete event was emitted.
func (c *Controller) finishRepeat(gen uint64, attempt *results.Attempt) (done, ok bool) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false, false
	}
	c.repeat++
	idx, rep := c.itemIndex, c.repeat
	done = rep >= MaxRepeats
	if done {
		c.mode = modeIdle
		c.setStateLocked(StateIdle)
	}
	c.mu.Unlock()

	c.emit(Event{Kind: EventAttemptScored, State: c.State(), ItemIndex: idx, Repeat: rep, Attempt: attempt})
	if done {
		c.emit(Event{Kind: EventDrillComplete, State: StateIdle, ItemIndex: idx, Repeat: rep})
	}
	return done, true
}

// emitRetry emits a retry event with the current cursor, unless the
// goroutine has been superseded.
func (c *Controller) emitRetry(gen uint64, cause error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	ev := Event{Kind: EventRetryScheduled, State: c.state, ItemIndex: c.itemIndex, Repeat: c.repeat, Err: cause}
	c.mu.Unlock()
	c.emit(ev)
}

// playAllLoop plays every item once at normal rate with a fixed gap, then
// returns to idle. The session cursor is untouched; event ItemIndex
// reflects play-all's own position.
func (c *Controller) playAllLoop(ctx context.Context, gen uint64) {
	for i, item := range c.chapter.Items {
		if ctx.Err() != nil {
			return
		}
		if !c.transition(gen, StatePlayingTTS) {
			return
		}

		err := c.speaker.Speak(ctx, tts.Request{
			Text:   item.Text,
			Gender: string(item.Gender),
			Rate:   tts.PlayAllRate,
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			// Skip the unplayable item rather than abort the run.
			c.log.Error("playback failed, skipping item", "item", i, "error", err)
			c.metrics.RecordProviderError(ctx, "tts", "speak")
		}

		if i < len(c.chapter.Items)-1 && !c.sleep(ctx, c.playAllDelay) {
			return
		}
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.mode = modeIdle
	c.setStateLocked(StateIdle)
	idx := c.itemIndex
	c.mu.Unlock()
	c.emit(Event{Kind: EventPlayAllDone, State: StateIdle, ItemIndex: idx})
}
