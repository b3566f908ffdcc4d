// Package mock provides an in-memory capture.Source for tests.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/echodrill/pkg/audio"
	"github.com/MrWong99/echodrill/pkg/provider/capture"
)

var (
	_ capture.Source = (*Source)(nil)
	_ capture.Window = (*Window)(nil)
)

// Source hands out windows that emit a pre-seeded frame sequence.
type Source struct {
	mu     sync.Mutex
	frames []audio.Frame
	err    error
	opens  int
}

// New creates a Source whose windows emit the given frames then idle
// until closed.
func New(frames ...audio.Frame) *Source {
	return &Source{frames: frames}
}

// Fail makes subsequent Open calls return err.
func (s *Source) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Opens reports how many windows were opened.
func (s *Source) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

func (s *Source) Open(ctx context.Context, cfg capture.Config) (capture.Window, error) {
	s.mu.Lock()
	s.opens++
	err := s.err
	frames := s.frames
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	w := &Window{ch: make(chan audio.Frame), done: make(chan struct{})}
	go func() {
		defer close(w.ch)
		for _, f := range frames {
			select {
			case w.ch <- f:
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
		select {
		case <-w.done:
		case <-ctx.Done():
		}
	}()
	return w, nil
}

// Window is the mock capture stream.
type Window struct {
	ch   chan audio.Frame
	done chan struct{}
	once sync.Once
}

func (w *Window) Frames() <-chan audio.Frame { return w.ch }

func (w *Window) Close() error {
	w.once.Do(func() { close(w.done) })
	return nil
}
