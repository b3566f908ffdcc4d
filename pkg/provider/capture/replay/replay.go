// Package replay provides a capture.Source backed by a raw sample file,
// used for demos and offline runs where no microphone is attached. The
// file holds unsigned 8-bit PCM samples; frames are emitted at real-time
// pace so downstream timing behaves like a live capture.
package replay

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/MrWong99/echodrill/pkg/audio"
	"github.com/MrWong99/echodrill/pkg/provider/capture"
)

var _ capture.Source = (*Source)(nil)

// Source replays one raw PCM file per opened window.
type Source struct {
	path string
}

// New creates a Source replaying the raw u8 PCM file at path.
func New(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Open(ctx context.Context, cfg capture.Config) (capture.Window, error) {
	cfg = cfg.WithDefaults()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("replay: read %s: %w", s.path, err)
	}

	w := &window{ch: make(chan audio.Frame), done: make(chan struct{})}
	frameDur := time.Duration(cfg.WindowSize) * time.Second / time.Duration(cfg.SampleRate)
	go w.run(ctx, data, cfg, frameDur)
	return w, nil
}

type window struct {
	ch   chan audio.Frame
	done chan struct{}
	once sync.Once
}

func (w *window) run(ctx context.Context, data []byte, cfg capture.Config, frameDur time.Duration) {
	defer close(w.ch)
	ticker := time.NewTicker(frameDur)
	defer ticker.Stop()

	elapsed := time.Duration(0)
	for off := 0; off+cfg.WindowSize <= len(data); off += cfg.WindowSize {
		select {
		case <-ticker.C:
		case <-w.done:
			return
		case <-ctx.Done():
			return
		}
		f := audio.Frame{
			Samples:    data[off : off+cfg.WindowSize],
			SampleRate: cfg.SampleRate,
			Timestamp:  elapsed,
		}
		elapsed += frameDur
		select {
		case w.ch <- f:
		case <-w.done:
			return
		case <-ctx.Done():
			return
		}
	}
	// File exhausted; stay open until the listener closes the window.
	select {
	case <-w.done:
	case <-ctx.Done():
	}
}

func (w *window) Frames() <-chan audio.Frame { return w.ch }

func (w *window) Close() error {
	w.once.Do(func() { close(w.done) })
	return nil
}
