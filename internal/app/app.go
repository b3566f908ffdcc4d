// Package app wires all Echodrill subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the training loop, and Shutdown tears
// everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithDrillOptions, etc.). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/echodrill/internal/config"
	"github.com/MrWong99/echodrill/internal/content"
	"github.com/MrWong99/echodrill/internal/drill"
	"github.com/MrWong99/echodrill/internal/health"
	"github.com/MrWong99/echodrill/internal/observe"
	"github.com/MrWong99/echodrill/internal/results"
	"github.com/MrWong99/echodrill/pkg/provider/capture"
	"github.com/MrWong99/echodrill/pkg/provider/stt"
	"github.com/MrWong99/echodrill/pkg/provider/translate"
	"github.com/MrWong99/echodrill/pkg/provider/tts"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// translateTimeout bounds each gloss lookup so a slow translation API
// cannot stall the event loop.
const translateTimeout = 10 * time.Second

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured and the drill degrades per its availability
// rules. Populated by main.go via the config registry.
type Providers struct {
	TTS       tts.Provider
	STT       stt.Recognizer
	Capture   capture.Source
	Translate translate.Translator
}

// App owns all subsystem lifetimes and orchestrates the training cycle.
type App struct {
	cfg       *config.Config
	providers *Providers
	logLevel  *slog.LevelVar

	// Subsystems. Initialised in New, torn down in Shutdown.
	store      results.Store
	chapter    content.Chapter
	controller *drill.Controller
	metrics    *observe.Metrics

	// glosses caches one translation per item index so each sentence is
	// looked up at most once per session.
	glossMu sync.Mutex
	glosses map[int]string

	drillOpts []drill.Option

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects an attempt store instead of creating one from config.
func WithStore(s results.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects metrics instruments instead of using the shared
// default set.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogLevelVar attaches the level var backing the process logger so
// config reloads can adjust verbosity at runtime.
func WithLogLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = v }
}

// WithDrillOptions appends extra controller options, mainly to shorten
// pacing in tests.
func WithDrillOptions(opts ...drill.Option) Option {
	return func(a *App) { a.drillOpts = append(a.drillOpts, opts...) }
}

// New creates an App by wiring all subsystems together. The providers
// struct comes from main.go (populated via the config registry). A TTS
// provider is required; everything else degrades when absent.
//
// New performs all initialisation synchronously: attempt store creation,
// chapter corpus loading, and drill controller assembly.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	if providers.TTS == nil {
		return nil, errors.New("app: a tts provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
		glosses:   make(map[int]string),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	if err := a.initContent(); err != nil {
		return nil, fmt.Errorf("app: init content: %w", err)
	}

	a.initController()

	return a, nil
}

// initStore creates the attempt store selected by results.backend, unless
// one was injected.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	backend := a.cfg.Results.Backend
	if backend == "" {
		backend = config.BackendMemory
	}

	switch backend {
	case config.BackendMemory:
		a.store = results.NewMemStore()

	case config.BackendFile:
		fs, err := results.OpenFileStore(a.cfg.Results.Path)
		if err != nil {
			return err
		}
		a.store = fs

	case config.BackendSQLite:
		db, err := results.OpenSQLite(a.cfg.Results.Path)
		if err != nil {
			return err
		}
		a.store = db

	case config.BackendPostgres:
		pg, err := results.OpenPostgres(ctx, a.cfg.Results.PostgresDSN)
		if err != nil {
			return err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return fmt.Errorf("migrate: %w", err)
		}
		a.store = pg

	default:
		return fmt.Errorf("unknown results backend %q", backend)
	}

	a.closers = append(a.closers, a.store.Close)
	slog.Info("attempt store ready", "backend", backend)
	return nil
}

// initContent loads the chapter corpus and selects the chapter to drill.
func (a *App) initContent() error {
	chapters, err := content.Load(a.cfg.Content.Path)
	if err != nil {
		return err
	}

	if title := a.cfg.Content.Chapter; title != "" {
		for _, ch := range chapters {
			if ch.Title == title {
				a.chapter = ch
				break
			}
		}
		if a.chapter.Title == "" {
			return fmt.Errorf("chapter %q not found in %s", title, a.cfg.Content.Path)
		}
	} else {
		a.chapter = chapters[0]
	}

	slog.Info("chapter loaded",
		"title", a.chapter.Title,
		"items", len(a.chapter.Items),
	)
	return nil
}

// initController assembles the drill controller from config pacing and
// the available providers.
func (a *App) initController() {
	opts := []drill.Option{drill.WithMetrics(a.metrics)}
	if a.providers.Capture != nil {
		opts = append(opts, drill.WithCaptureSource(a.providers.Capture))
	}

	d := a.cfg.Drill
	if d.ListenDelay > 0 {
		opts = append(opts, drill.WithListenDelay(d.ListenDelay.Std()))
	}
	if d.CycleDelay > 0 {
		opts = append(opts, drill.WithCycleDelay(d.CycleDelay.Std()))
	}
	if d.RetryDelay > 0 {
		opts = append(opts, drill.WithRetryDelay(d.RetryDelay.Std()))
	}
	if d.PlayAllDelay > 0 {
		opts = append(opts, drill.WithPlayAllDelay(d.PlayAllDelay.Std()))
	}
	opts = append(opts, a.drillOpts...)

	a.controller = drill.New(a.chapter, a.providers.TTS, a.providers.STT, a.store, opts...)
}

// Controller exposes the drill controller for callers that drive the
// session directly (tests, future UIs).
func (a *App) Controller() *drill.Controller { return a.controller }

// Run starts the training session and blocks until ctx is cancelled.
//
// Run consumes controller events (logging scores, fetching glosses,
// auto-advancing after each completed drill), serves the metrics/stats
// endpoint when configured, and kicks off the first drill. When ctx is
// done, Run returns context.Canceled.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.consumeEvents(ctx)
		return nil
	})

	if addr := a.cfg.Server.MetricsAddr; addr != "" {
		srv := a.newMetricsServer(addr)
		g.Go(func() error {
			slog.Info("metrics server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if a.providers.STT != nil {
		if err := a.controller.StartAuto(ctx); err != nil {
			return fmt.Errorf("app: start drill: %w", err)
		}
	} else {
		slog.Warn("no recognizer configured; drill mode unavailable, starting play-all")
		if err := a.controller.StartPlayAll(ctx); err != nil {
			return fmt.Errorf("app: start play-all: %w", err)
		}
	}

	g.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})

	return g.Wait()
}

// consumeEvents drains the controller's notification stream until ctx is
// done, logging progress and re-arming the drill after each completion.
func (a *App) consumeEvents(ctx context.Context) {
	events := a.controller.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			a.handleEvent(ctx, ev)
		}
	}
}

func (a *App) handleEvent(ctx context.Context, ev drill.Event) {
	switch ev.Kind {
	case drill.EventStateChanged:
		slog.Debug("drill state",
			"state", ev.State,
			"item", ev.ItemIndex,
			"repeat", ev.Repeat,
		)
		if ev.State == drill.StatePlayingTTS {
			a.announceItem(ctx, ev.ItemIndex)
		}

	case drill.EventAttemptScored:
		att := ev.Attempt
		slog.Info("attempt scored",
			"item", ev.ItemIndex,
			"repeat", ev.Repeat+1,
			"of", drill.MaxRepeats,
			"recognized", att.RecognizedText,
			"total", att.Scores.TotalSync,
			"pronunciation", att.Scores.Pronunciation,
			"intonation", att.Scores.Intonation,
			"speed", att.Scores.Speed,
		)

	case drill.EventRetryScheduled:
		slog.Warn("recognition failed, retrying",
			"item", ev.ItemIndex,
			"repeat", ev.Repeat,
			"err", ev.Err,
		)

	case drill.EventDrillComplete:
		slog.Info("sentence drilled", "item", ev.ItemIndex, "repeats", drill.MaxRepeats)
		wrapped := a.controller.Advance()
		if wrapped {
			slog.Info("chapter complete, starting over", "chapter", a.chapter.Title)
		}
		if err := a.controller.StartAuto(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("failed to restart drill", "err", err)
		}

	case drill.EventSectionComplete:
		// Logged by the DrillComplete branch that triggered the wrap;
		// external Advance callers get the cursor from Position.

	case drill.EventPlayAllDone:
		slog.Info("play-all finished", "items", len(a.chapter.Items))
	}
}

// announceItem logs the sentence about to play, with its native-language
// gloss when a translator is configured. Each item is translated at most
// once per session.
func (a *App) announceItem(ctx context.Context, idx int) {
	if idx < 0 || idx >= len(a.chapter.Items) {
		return
	}
	item := a.chapter.Items[idx]

	gloss := a.glossFor(ctx, idx, item.Text)
	if gloss != "" {
		slog.Info("now drilling",
			"item", idx,
			"speaker", item.Speaker,
			"text", item.Text,
			"gloss", gloss,
		)
		return
	}
	slog.Info("now drilling", "item", idx, "speaker", item.Speaker, "text", item.Text)
}

func (a *App) glossFor(ctx context.Context, idx int, text string) string {
	if a.providers.Translate == nil {
		return ""
	}

	a.glossMu.Lock()
	cached, ok := a.glosses[idx]
	a.glossMu.Unlock()
	if ok {
		return cached
	}

	pair := translate.Pair{
		Source: a.cfg.Drill.Translation.Source,
		Target: a.cfg.Drill.Translation.Target,
	}
	if pair.Source == "" || pair.Target == "" {
		return ""
	}

	tctx, cancel := context.WithTimeout(ctx, translateTimeout)
	defer cancel()

	gloss, err := a.providers.Translate.Translate(tctx, text, pair)
	if err != nil {
		slog.Warn("translation failed", "item", idx, "err", err)
		a.metrics.RecordProviderError(ctx, "translate", "request")
		// Cache the miss so a broken API is not hammered once per repeat.
		gloss = ""
	}

	a.glossMu.Lock()
	a.glosses[idx] = gloss
	a.glossMu.Unlock()
	return gloss
}

// newMetricsServer builds the HTTP server exposing Prometheus metrics,
// health probes, and a JSON stats snapshot of the attempt log.
func (a *App) newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/stats", a.handleStats)

	probes := health.New(health.Checker{
		Name: "store",
		Check: func(ctx context.Context) error {
			_, err := a.store.Stats(ctx)
			return err
		},
	})
	probes.Register(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.store.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	item, repeat := a.controller.Position()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"chapter":       a.chapter.Title,
		"item":          item,
		"repeat":        repeat,
		"state":         a.controller.State().String(),
		"attempts":      stats.Attempts,
		"average_total": stats.AverageTotal,
	})
}

// ApplyConfigChange reacts to a reloaded configuration. Log level changes
// apply immediately via the attached level var; pacing and structural
// changes are logged but need a restart to take effect.
func (a *App) ApplyConfigChange(old, new *config.Config) {
	diff := config.Diff(old, new)

	if diff.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(slogLevel(diff.NewLogLevel))
		slog.Info("log level updated", "level", diff.NewLogLevel)
	}
	if diff.PacingChanged {
		slog.Info("drill pacing changed in config; takes effect on restart")
	}
	if diff.RestartNeeded {
		slog.Warn("config change requires a restart to take effect")
	}
}

// slogLevel maps a config log level to its slog equivalent.
func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Shutdown stops the drill, exports the attempt log when configured, and
// tears down all subsystems in order. It respects the context deadline:
// if ctx expires before all closers finish, remaining closers are skipped
// and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.controller.Stop()

		if path := a.cfg.Results.ExportPath; path != "" {
			if err := a.exportCSV(ctx, path); err != nil {
				slog.Warn("csv export failed", "path", path, "err", err)
			} else {
				slog.Info("attempt log exported", "path", path)
			}
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// exportCSV writes the full attempt log to path in the spreadsheet-ready
// export format.
func (a *App) exportCSV(ctx context.Context, path string) error {
	attempts, err := a.store.List(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := results.WriteCSV(f, attempts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
