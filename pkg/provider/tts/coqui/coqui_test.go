package coqui_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrWong99/echodrill/pkg/provider/tts"
	"github.com/MrWong99/echodrill/pkg/provider/tts/coqui"
)

func TestSpeakRequestsSpeakerAndPlays(t *testing.T) {
	t.Parallel()

	var gotText, gotSpeaker string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotText = r.URL.Query().Get("text")
		gotSpeaker = r.URL.Query().Get("speaker_id")
		w.Write([]byte("RIFFfakewav"))
	}))
	defer srv.Close()

	var playedRate float64
	var played []byte
	p := coqui.New(srv.URL,
		coqui.WithVoice("female", "p225"),
		coqui.WithVoice("male", "p226"),
		coqui.WithPlayer(func(ctx context.Context, wav []byte, rate float64) error {
			played = wav
			playedRate = rate
			return nil
		}),
	)

	started := false
	err := p.Speak(context.Background(), tts.Request{
		Text:    "hello there",
		Gender:  "male",
		Rate:    tts.DrillRate,
		OnStart: func() { started = true },
	})
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if gotText != "hello there" {
		t.Errorf("text = %q, want %q", gotText, "hello there")
	}
	if gotSpeaker != "p226" {
		t.Errorf("speaker_id = %q, want p226", gotSpeaker)
	}
	if !started {
		t.Error("OnStart was not invoked")
	}
	if string(played) != "RIFFfakewav" {
		t.Errorf("player received %q", played)
	}
	if playedRate != tts.DrillRate {
		t.Errorf("rate = %v, want %v", playedRate, tts.DrillRate)
	}
}

func TestSpeakUnknownGenderFallsBack(t *testing.T) {
	t.Parallel()

	var gotSpeaker string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSpeaker = r.URL.Query().Get("speaker_id")
		w.Write([]byte("RIFF"))
	}))
	defer srv.Close()

	p := coqui.New(srv.URL,
		coqui.WithVoice("female", "p225"),
		coqui.WithPlayer(func(context.Context, []byte, float64) error { return nil }),
	)
	if err := p.Speak(context.Background(), tts.Request{Text: "hi", Gender: "robot"}); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if gotSpeaker != "p225" {
		t.Errorf("speaker_id = %q, want fallback p225", gotSpeaker)
	}
}

func TestSpeakServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := coqui.New(srv.URL)
	err := p.Speak(context.Background(), tts.Request{Text: "hi"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestSpeakEmptyText(t *testing.T) {
	t.Parallel()

	p := coqui.New("http://localhost:0")
	if err := p.Speak(context.Background(), tts.Request{Text: "   "}); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestSpeakPlayerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("RIFF"))
	}))
	defer srv.Close()

	sinkErr := errors.New("device busy")
	p := coqui.New(srv.URL, coqui.WithPlayer(func(context.Context, []byte, float64) error {
		return sinkErr
	}))
	if err := p.Speak(context.Background(), tts.Request{Text: "hi"}); !errors.Is(err, sinkErr) {
		t.Fatalf("err = %v, want %v", err, sinkErr)
	}
}

func TestSpeakContextCancelDuringEstimatedPlayback(t *testing.T) {
	t.Parallel()

	// Large enough clip that estimated playback takes seconds.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 44100*5))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	p := coqui.New(srv.URL)

	done := make(chan error, 1)
	go func() { done <- p.Speak(ctx, tts.Request{Text: "hi"}) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Speak did not return after cancel")
	}
}
