package whisper_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrWong99/echodrill/pkg/provider/stt/whisper"
)

func fixedRecorder(wav []byte) whisper.RecordFunc {
	return func(ctx context.Context) ([]byte, error) { return wav, nil }
}

func TestListenSendsClipAndReturnsTranscript(t *testing.T) {
	t.Parallel()

	var gotClip []byte
	var gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("path = %q, want /inference", r.URL.Path)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotClip, _ = io.ReadAll(f)
		gotLang = r.FormValue("language")
		io.WriteString(w, `{"text": " I like apples. \n"}`)
	}))
	defer srv.Close()

	rec, err := whisper.New(srv.URL, fixedRecorder([]byte("RIFFclip")), whisper.WithLanguage("en"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := rec.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if res.Transcript != "I like apples." {
		t.Errorf("transcript = %q", res.Transcript)
	}
	if res.HasConfidence {
		t.Error("whisper should not report confidence")
	}
	if string(gotClip) != "RIFFclip" {
		t.Errorf("server received clip %q", gotClip)
	}
	if gotLang != "en" {
		t.Errorf("language = %q, want en", gotLang)
	}
}

func TestListenSpeechDurationExcludesInference(t *testing.T) {
	t.Parallel()

	// The server (upload plus inference) stalls far longer than the
	// recording; only the recording window may count as speaking time.
	const inferenceStall = 250 * time.Millisecond
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(inferenceStall)
		io.WriteString(w, `{"text": "hello"}`)
	}))
	defer srv.Close()

	const speakTime = 20 * time.Millisecond
	rec, err := whisper.New(srv.URL, func(ctx context.Context) ([]byte, error) {
		time.Sleep(speakTime)
		return []byte("RIFF"), nil
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := rec.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if res.SpeechDuration < speakTime {
		t.Errorf("SpeechDuration = %v, want at least %v", res.SpeechDuration, speakTime)
	}
	if res.SpeechDuration >= inferenceStall {
		t.Errorf("SpeechDuration = %v includes the server round-trip", res.SpeechDuration)
	}
}

func TestListenRecorderError(t *testing.T) {
	t.Parallel()

	micErr := errors.New("mic unavailable")
	rec, err := whisper.New("http://localhost:0", func(context.Context) ([]byte, error) {
		return nil, micErr
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := rec.Listen(context.Background()); !errors.Is(err, micErr) {
		t.Fatalf("err = %v, want %v", err, micErr)
	}
}

func TestListenServerFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no model", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rec, err := whisper.New(srv.URL, fixedRecorder([]byte("RIFF")))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := rec.Listen(context.Background()); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestListenInferenceError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"text": "", "error": "audio too short"}`)
	}))
	defer srv.Close()

	rec, err := whisper.New(srv.URL, fixedRecorder([]byte("RIFF")))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := rec.Listen(context.Background()); err == nil {
		t.Fatal("expected error from error payload")
	}
}

func TestNewRequiresRecorder(t *testing.T) {
	t.Parallel()

	if _, err := whisper.New("http://localhost:0", nil); err == nil {
		t.Fatal("expected error for nil recorder")
	}
}
