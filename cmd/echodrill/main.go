// Command echodrill is the main entry point for the Echodrill shadowing
// trainer.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/echodrill/internal/app"
	"github.com/MrWong99/echodrill/internal/config"
	"github.com/MrWong99/echodrill/internal/observe"
	"github.com/MrWong99/echodrill/internal/resilience"
	"github.com/MrWong99/echodrill/pkg/provider/capture"
	capturemock "github.com/MrWong99/echodrill/pkg/provider/capture/mock"
	"github.com/MrWong99/echodrill/pkg/provider/capture/replay"
	"github.com/MrWong99/echodrill/pkg/provider/stt"
	sttmock "github.com/MrWong99/echodrill/pkg/provider/stt/mock"
	"github.com/MrWong99/echodrill/pkg/provider/stt/whisper"
	"github.com/MrWong99/echodrill/pkg/provider/translate"
	"github.com/MrWong99/echodrill/pkg/provider/translate/mymemory"
	"github.com/MrWong99/echodrill/pkg/provider/tts"
	"github.com/MrWong99/echodrill/pkg/provider/tts/coqui"
	ttsmock "github.com/MrWong99/echodrill/pkg/provider/tts/mock"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "echodrill: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "echodrill: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	logger := newLogger(cfg.Server.LogLevel, level)
	slog.SetDefault(logger)

	slog.Info("echodrill starting",
		"config", *configPath,
		"content", cfg.Content.Path,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers,
		app.WithLogLevelVar(level),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot-reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, application.ApplyConfigChange)
	if err != nil {
		slog.Warn("config watcher unavailable", "err", err)
	} else {
		defer watcher.Stop()
	}

	slog.Info("session ready — press Ctrl+C to finish")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders maps provider category names to the implementations that
// ship with Echodrill. Used for startup logging.
var builtinProviders = map[string][]string{
	"tts":       {"coqui", "mock"},
	"stt":       {"whisper", "mock"},
	"capture":   {"replay", "mock"},
	"translate": {"mymemory"},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the
// appropriate provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		if entry.BaseURL == "" {
			return nil, errors.New("coqui requires base_url")
		}
		var opts []coqui.Option
		if id := entry.StringOption("female_speaker", ""); id != "" {
			opts = append(opts, coqui.WithVoice("female", id))
		}
		if id := entry.StringOption("male_speaker", ""); id != "" {
			opts = append(opts, coqui.WithVoice("male", id))
		}
		if cmd := entry.StringOption("play_cmd", ""); cmd != "" {
			opts = append(opts, coqui.WithPlayer(commandPlayer(cmd)))
		}
		return coqui.New(entry.BaseURL, opts...), nil
	})

	// A silent provider that simulates playback timing. Useful for dry
	// runs without a Coqui server.
	reg.RegisterTTS("mock", func(config.ProviderEntry) (tts.Provider, error) {
		p := ttsmock.New()
		p.Playback = time.Second
		return p, nil
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Recognizer, error) {
		if entry.BaseURL == "" {
			return nil, errors.New("whisper requires base_url")
		}
		record, err := recordFuncFor(entry)
		if err != nil {
			return nil, err
		}
		var opts []whisper.Option
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, record, opts...)
	})

	reg.RegisterSTT("mock", func(entry config.ProviderEntry) (stt.Recognizer, error) {
		// Echoes a fixed transcript after a short pause, simulating a
		// learner who always answers the same thing.
		return sttmock.New(sttmock.Step{
			Result: stt.Result{Transcript: entry.StringOption("transcript", "hello")},
			Delay:  2 * time.Second,
		}), nil
	})

	// ── Capture ───────────────────────────────────────────────────────────────

	reg.RegisterCapture("replay", func(entry config.ProviderEntry) (capture.Source, error) {
		path := entry.StringOption("path", "")
		if path == "" {
			return nil, errors.New("replay capture requires options.path")
		}
		return replay.New(path), nil
	})

	reg.RegisterCapture("mock", func(config.ProviderEntry) (capture.Source, error) {
		return capturemock.New(), nil
	})

	// ── Translate ─────────────────────────────────────────────────────────────

	reg.RegisterTranslate("mymemory", func(entry config.ProviderEntry) (translate.Translator, error) {
		var opts []mymemory.Option
		if entry.BaseURL != "" {
			opts = append(opts, mymemory.WithBaseURL(entry.BaseURL))
		}
		return mymemory.New(opts...), nil
	})

	// Debug log of all registered providers.
	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to
// consume. Only TTS is mandatory; the application degrades around the rest.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		// options.fallback names a second registered provider to fail
		// over to when the primary's circuit breaker opens.
		if fb := cfg.Providers.TTS.StringOption("fallback", ""); fb != "" {
			entry := cfg.Providers.TTS
			entry.Name = fb
			secondary, err := reg.CreateTTS(entry)
			if err != nil {
				return nil, fmt.Errorf("create tts fallback %q: %w", fb, err)
			}
			group := resilience.NewSpeakFallback(p, name, resilience.FallbackConfig{})
			group.AddFallback(fb, secondary)
			p = group
			slog.Info("tts failover enabled", "primary", name, "fallback", fb)
		}
		ps.TTS = p
		slog.Info("provider created", "kind", "tts", "name", name)
	}

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		if fb := cfg.Providers.STT.StringOption("fallback", ""); fb != "" {
			entry := cfg.Providers.STT
			entry.Name = fb
			secondary, err := reg.CreateSTT(entry)
			if err != nil {
				return nil, fmt.Errorf("create stt fallback %q: %w", fb, err)
			}
			group := resilience.NewListenFallback(p, name, resilience.FallbackConfig{})
			group.AddFallback(fb, secondary)
			p = group
			slog.Info("stt failover enabled", "primary", name, "fallback", fb)
		}
		ps.STT = p
		slog.Info("provider created", "kind", "stt", "name", name)
	}

	if name := cfg.Providers.Capture.Name; name != "" {
		p, err := reg.CreateCapture(cfg.Providers.Capture)
		if err != nil {
			return nil, fmt.Errorf("create capture provider %q: %w", name, err)
		}
		ps.Capture = p
		slog.Info("provider created", "kind", "capture", "name", name)
	}

	if name := cfg.Providers.Translate.Name; name != "" {
		p, err := reg.CreateTranslate(cfg.Providers.Translate)
		if err != nil {
			return nil, fmt.Errorf("create translate provider %q: %w", name, err)
		}
		// The free translation APIs rate-limit hard; a breaker keeps a
		// failing backend from being hit once per sentence.
		ps.Translate = resilience.NewTranslateFallback(p, name, resilience.FallbackConfig{})
		slog.Info("provider created", "kind", "translate", "name", name)
	}

	return ps, nil
}

// recordFuncFor builds the utterance recorder for the whisper provider.
// options.record_cmd runs a shell command that writes WAV to stdout
// (e.g. "arecord -d 5 -f S16_LE -r 16000 -t wav -"); options.input_wav
// replays a fixed clip, useful for rehearsing without a microphone.
func recordFuncFor(entry config.ProviderEntry) (whisper.RecordFunc, error) {
	if cmd := entry.StringOption("record_cmd", ""); cmd != "" {
		return func(ctx context.Context) ([]byte, error) {
			var out bytes.Buffer
			c := exec.CommandContext(ctx, "sh", "-c", cmd)
			c.Stdout = &out
			c.Stderr = os.Stderr
			if err := c.Run(); err != nil {
				return nil, fmt.Errorf("record_cmd: %w", err)
			}
			return out.Bytes(), nil
		}, nil
	}

	if path := entry.StringOption("input_wav", ""); path != "" {
		return func(context.Context) ([]byte, error) {
			return os.ReadFile(path)
		}, nil
	}

	return nil, errors.New("whisper requires options.record_cmd or options.input_wav")
}

// commandPlayer builds a coqui.PlayFunc that pipes the WAV clip to a shell
// command (e.g. "aplay -q -"). The playback rate is exported as RATE for
// commands that support it.
func commandPlayer(cmd string) coqui.PlayFunc {
	return func(ctx context.Context, wav []byte, rate float64) error {
		c := exec.CommandContext(ctx, "sh", "-c", cmd)
		c.Stdin = bytes.NewReader(wav)
		c.Stderr = os.Stderr
		c.Env = append(os.Environ(), fmt.Sprintf("RATE=%.2f", rate))
		if err := c.Run(); err != nil {
			return fmt.Errorf("play_cmd: %w", err)
		}
		return nil
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Echodrill — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("TTS", cfg.Providers.TTS.Name)
	printProvider("STT", cfg.Providers.STT.Name)
	printProvider("Capture", cfg.Providers.Capture.Name)
	printProvider("Translate", cfg.Providers.Translate.Name)
	printField("Content", cfg.Content.Path)
	if cfg.Content.Chapter != "" {
		printField("Chapter", cfg.Content.Chapter)
	}
	printField("Results", string(cfg.Results.Backend))
	if cfg.Server.MetricsAddr != "" {
		printField("Metrics addr", cfg.Server.MetricsAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name string) {
	if name == "" {
		name = "(not configured)"
	}
	printField(kind, name)
}

func printField(kind, value string) {
	if value == "" {
		value = "(default)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel, lvl *slog.LevelVar) *slog.Logger {
	switch level {
	case config.LogDebug:
		lvl.Set(slog.LevelDebug)
	case config.LogWarn:
		lvl.Set(slog.LevelWarn)
	case config.LogError:
		lvl.Set(slog.LevelError)
	default:
		lvl.Set(slog.LevelInfo)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
