// Package mock provides a scriptable tts.Provider for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/echodrill/pkg/provider/tts"
)

// Compile-time interface check.
var _ tts.Provider = (*Provider)(nil)

// Provider is a test double that records every Speak request and simulates
// playback with a configurable duration. Safe for concurrent use.
type Provider struct {
	mu       sync.Mutex
	requests []tts.Request

	// Playback is how long each Speak call blocks. Zero returns
	// immediately.
	Playback time.Duration

	// Err, when non-nil, is returned by every Speak call.
	Err error
}

// New returns a mock provider with instant playback.
func New() *Provider {
	return &Provider{}
}

// Speak records req, fires OnStart, then sleeps for Playback or until ctx
// is cancelled.
func (p *Provider) Speak(ctx context.Context, req tts.Request) error {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	err := p.Err
	d := p.Playback
	p.mu.Unlock()

	if err != nil {
		return err
	}
	if req.OnStart != nil {
		req.OnStart()
	}
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return ctx.Err()
}

// Requests returns a snapshot of all recorded requests.
func (p *Provider) Requests() []tts.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]tts.Request, len(p.requests))
	copy(out, p.requests)
	return out
}
