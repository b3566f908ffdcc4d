// Package coqui provides a tts.Provider backed by a locally-running Coqui
// TTS server (ghcr.io/coqui-ai/tts-cpu). Synthesis is performed via
// GET /api/tts with URL query parameters; the response is a WAV clip.
//
// Playback is delegated to a PlayFunc so that the audio sink stays
// platform-specific and testable. When no PlayFunc is configured the
// provider emulates playback timing by sleeping for the clip's estimated
// duration — enough for drills where the speaker device is wired up
// elsewhere.
//
// Typical usage:
//
//	p := coqui.New("http://localhost:5002",
//	    coqui.WithVoice("female", "p225"),
//	    coqui.WithVoice("male", "p226"),
//	    coqui.WithPlayer(alsaPlay),
//	)
package coqui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/echodrill/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	apiTTSEndpoint = "/api/tts"
	defaultTimeout = 30 * time.Second

	// estimateBytesPerSecond approximates the server's default output of
	// 16-bit mono PCM at 22.05 kHz, used when no player is configured.
	estimateBytesPerSecond = 44100
)

// PlayFunc plays one synthesised WAV clip at the given rate and returns
// when playback has finished.
type PlayFunc func(ctx context.Context, wav []byte, rate float64) error

// Option is a functional option for configuring a [Provider].
type Option func(*Provider)

// WithVoice maps a gender tag ("male"/"female") to a server speaker ID.
// The first registered voice doubles as the fallback for unknown tags.
func WithVoice(gender, speakerID string) Option {
	return func(p *Provider) {
		if p.fallbackVoice == "" {
			p.fallbackVoice = speakerID
		}
		p.voices[strings.ToLower(gender)] = speakerID
	}
}

// WithTimeout sets the per-request HTTP timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// WithPlayer sets the playback sink. When unset, Speak sleeps for the
// clip's estimated duration instead of playing audio.
func WithPlayer(play PlayFunc) Option {
	return func(p *Provider) { p.play = play }
}

// Provider implements tts.Provider against a Coqui TTS server.
// Safe for concurrent use.
type Provider struct {
	serverURL     string
	httpClient    *http.Client
	voices        map[string]string
	fallbackVoice string
	play          PlayFunc
}

// New creates a Provider targeting the Coqui server at serverURL.
func New(serverURL string, opts ...Option) *Provider {
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		voices:     make(map[string]string),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Speak synthesises req.Text and plays the result, blocking until playback
// completes.
func (p *Provider) Speak(ctx context.Context, req tts.Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return errors.New("coqui: empty text")
	}

	wav, err := p.synthesize(ctx, req.Text, req.Gender)
	if err != nil {
		return err
	}

	if req.OnStart != nil {
		req.OnStart()
	}

	rate := req.Rate
	if rate == 0 {
		rate = 1.0
	}
	if p.play != nil {
		return p.play(ctx, wav, rate)
	}

	// No sink configured: emulate playback timing so the drill cycle
	// still paces correctly.
	est := time.Duration(float64(len(wav)) / estimateBytesPerSecond / rate * float64(time.Second))
	select {
	case <-time.After(est):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Provider) synthesize(ctx context.Context, text, gender string) ([]byte, error) {
	q := url.Values{}
	q.Set("text", text)
	if speaker := p.voiceFor(gender); speaker != "" {
		q.Set("speaker_id", speaker)
	}

	reqURL := p.serverURL + apiTTSEndpoint + "?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: build request: %w", err)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("coqui: synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("coqui: server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coqui: read audio: %w", err)
	}
	return wav, nil
}

// voiceFor resolves a gender tag to a speaker ID, falling back to the
// first registered voice.
func (p *Provider) voiceFor(gender string) string {
	if id, ok := p.voices[strings.ToLower(gender)]; ok {
		return id
	}
	return p.fallbackVoice
}
