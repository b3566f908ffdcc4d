package content

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Load reads the JSON content file at path and returns the validated
// chapters. The file is an array of chapter objects:
//
//	[{"title": "...", "items": [{"text": "...", "speaker": "...", "gender": "female"}]}]
func Load(path string) ([]Chapter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("content: open %q: %w", path, err)
	}
	defer f.Close()

	chapters, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("content: parse %q: %w", path, err)
	}
	return chapters, nil
}

// LoadFromReader decodes a chapter corpus from r and validates the result.
// Useful in tests where corpora are constructed from string literals.
func LoadFromReader(r io.Reader) ([]Chapter, error) {
	var chapters []Chapter
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&chapters); err != nil {
		return nil, fmt.Errorf("content: decode json: %w", err)
	}
	if err := Validate(chapters); err != nil {
		return nil, err
	}
	return chapters, nil
}
