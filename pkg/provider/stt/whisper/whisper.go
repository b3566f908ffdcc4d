// Package whisper provides an stt.Recognizer backed by a whisper.cpp
// server's /inference endpoint.
//
// Capturing the learner's voice is not the recognizer's job; a
// RecordFunc is injected to produce the raw WAV clip (microphone,
// replay file, test fixture), and this package only handles the
// round-trip to the recognition server. whisper.cpp does not report a
// per-utterance confidence, so results carry HasConfidence=false and
// the scoring layer derives one instead.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/echodrill/pkg/provider/stt"
)

var _ stt.Recognizer = (*Recognizer)(nil)

const (
	inferenceEndpoint = "/inference"
	defaultTimeout    = 60 * time.Second
)

// RecordFunc captures one learner utterance and returns it as WAV bytes.
// It blocks until end of speech and honors ctx cancellation.
type RecordFunc func(ctx context.Context) ([]byte, error)

// Option is a functional option for configuring a [Recognizer].
type Option func(*Recognizer)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Recognizer) { r.httpClient = c }
}

// WithTimeout sets the per-request HTTP timeout. Default: 60s.
func WithTimeout(d time.Duration) Option {
	return func(r *Recognizer) { r.httpClient.Timeout = d }
}

// WithLanguage pins the recognition language (e.g. "en"). When unset the
// server auto-detects.
func WithLanguage(lang string) Option {
	return func(r *Recognizer) { r.language = lang }
}

// Recognizer implements stt.Recognizer against a whisper.cpp server.
type Recognizer struct {
	serverURL  string
	httpClient *http.Client
	record     RecordFunc
	language   string
}

// New creates a Recognizer targeting the whisper.cpp server at serverURL,
// using record to capture utterances.
func New(serverURL string, record RecordFunc, opts ...Option) (*Recognizer, error) {
	if record == nil {
		return nil, errors.New("whisper: nil record func")
	}
	r := &Recognizer{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		record:     record,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

type inferenceResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Listen records one utterance and sends it for recognition. The
// returned SpeechDuration covers only the recording itself; the server
// round-trip can take seconds on a loaded model and must not count as
// speaking time.
func (r *Recognizer) Listen(ctx context.Context) (stt.Result, error) {
	recordStart := time.Now()
	wav, err := r.record(ctx)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: record: %w", err)
	}
	spoke := time.Since(recordStart)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: build form: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: build form: %w", err)
	}
	if r.language != "" {
		if err := mw.WriteField("language", r.language); err != nil {
			return stt.Result{}, fmt.Errorf("whisper: build form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serverURL+inferenceEndpoint, &body)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return stt.Result{}, fmt.Errorf("whisper: server returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var out inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: decode response: %w", err)
	}
	if out.Error != "" {
		return stt.Result{}, fmt.Errorf("whisper: inference failed: %s", out.Error)
	}

	return stt.Result{
		Transcript:     strings.TrimSpace(out.Text),
		SpeechDuration: spoke,
	}, nil
}
