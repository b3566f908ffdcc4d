package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"tts":       {"coqui", "mock"},
	"stt":       {"whisper", "mock"},
	"capture":   {"replay", "mock"},
	"translate": {"mymemory"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Content
	if cfg.Content.Path == "" {
		errs = append(errs, errors.New("content.path is required"))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("capture", cfg.Providers.Capture.Name)
	validateProviderName("translate", cfg.Providers.Translate.Name)

	// Provider availability warnings
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no TTS provider configured; neither auto mode nor play-all can run")
	}
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no STT provider configured; auto mode will be unavailable, play-all still works")
	}
	if cfg.Providers.Capture.Name == "" {
		slog.Warn("no capture provider configured; intonation scoring degrades to the confidence fallback")
	}

	// Drill pacing
	for _, d := range []struct {
		name string
		val  Duration
	}{
		{"drill.listen_delay", cfg.Drill.ListenDelay},
		{"drill.cycle_delay", cfg.Drill.CycleDelay},
		{"drill.retry_delay", cfg.Drill.RetryDelay},
		{"drill.play_all_delay", cfg.Drill.PlayAllDelay},
	} {
		if d.val < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", d.name))
		}
	}
	if (cfg.Drill.Translation.Source == "") != (cfg.Drill.Translation.Target == "") {
		errs = append(errs, errors.New("drill.translation requires both source and target, or neither"))
	}

	// Results
	if cfg.Results.Backend != "" && !cfg.Results.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("results.backend %q is invalid; valid values: memory, file, sqlite, postgres", cfg.Results.Backend))
	}
	switch cfg.Results.Backend {
	case BackendFile, BackendSQLite:
		if cfg.Results.Path == "" {
			errs = append(errs, fmt.Errorf("results.path is required when backend is %q", cfg.Results.Backend))
		}
	case BackendPostgres:
		if cfg.Results.PostgresDSN == "" {
			errs = append(errs, errors.New("results.postgres_dsn is required when backend is postgres"))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
