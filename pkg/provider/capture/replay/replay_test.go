package replay_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/echodrill/pkg/provider/capture"
	"github.com/MrWong99/echodrill/pkg/provider/capture/replay"
)

func TestOpenEmitsFramesFromFile(t *testing.T) {
	t.Parallel()

	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(100 + i)
	}
	path := filepath.Join(t.TempDir(), "clip.raw")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	src := replay.New(path)
	// High sample rate relative to window keeps the test fast.
	w, err := src.Open(context.Background(), capture.Config{SampleRate: 8000, WindowSize: 8})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()

	var frames int
	timeout := time.After(2 * time.Second)
	for frames < 2 {
		select {
		case f, ok := <-w.Frames():
			if !ok {
				t.Fatalf("stream closed after %d frames, want 2", frames)
			}
			if len(f.Samples) != 8 {
				t.Fatalf("frame size = %d, want 8", len(f.Samples))
			}
			if f.SampleRate != 8000 {
				t.Fatalf("sample rate = %d", f.SampleRate)
			}
			frames++
		case <-timeout:
			t.Fatalf("timed out after %d frames", frames)
		}
	}
}

func TestCloseEndsStream(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "clip.raw")
	if err := os.WriteFile(path, make([]byte, 4096), 0o644); err != nil {
		t.Fatal(err)
	}

	src := replay.New(path)
	w, err := src.Open(context.Background(), capture.Config{SampleRate: 44100, WindowSize: 2048})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	select {
	case _, ok := <-w.Frames():
		if ok {
			// One buffered frame may slip through before the close lands.
			if _, ok := <-w.Frames(); ok {
				t.Fatal("stream still producing after Close")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close")
	}
}

func TestOpenMissingFile(t *testing.T) {
	t.Parallel()

	src := replay.New(filepath.Join(t.TempDir(), "nope.raw"))
	if _, err := src.Open(context.Background(), capture.Config{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}
