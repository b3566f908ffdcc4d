// Package mymemory provides a translate.Translator backed by the free
// MyMemory translation API (https://mymemory.translated.net).
package mymemory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/echodrill/pkg/provider/translate"
)

var _ translate.Translator = (*Translator)(nil)

const (
	defaultBaseURL = "https://api.mymemory.translated.net"
	defaultTimeout = 10 * time.Second
)

// Option is a functional option for configuring a [Translator].
type Option func(*Translator)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(t *Translator) { t.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Translator) { t.httpClient = c }
}

// Translator implements translate.Translator via MyMemory's GET /get API.
type Translator struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Translator against the public MyMemory API.
func New(opts ...Option) *Translator {
	t := &Translator{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

type apiResponse struct {
	ResponseStatus  json.Number `json:"responseStatus"`
	ResponseDetails string      `json:"responseDetails"`
	ResponseData    struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
}

// Translate fetches a translation of text for the given language pair.
func (t *Translator) Translate(ctx context.Context, text string, pair translate.Pair) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("mymemory: empty text")
	}
	if pair.Source == "" || pair.Target == "" {
		return "", errors.New("mymemory: incomplete language pair")
	}

	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", pair.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/get?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("mymemory: build request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mymemory: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mymemory: server returned %s", resp.Status)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("mymemory: decode response: %w", err)
	}
	// The API reports failures inside a 200 body with a non-200 status
	// field, sometimes as a string.
	if status, err := out.ResponseStatus.Int64(); err == nil && status != 200 {
		return "", fmt.Errorf("mymemory: api status %d: %s", status, out.ResponseDetails)
	}
	translated := strings.TrimSpace(out.ResponseData.TranslatedText)
	if translated == "" {
		return "", errors.New("mymemory: empty translation")
	}
	return translated, nil
}
