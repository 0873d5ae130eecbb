// Package internal wires configuration, storage and the batch passes into
// the commands exposed by cmd/app.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/papernotes/internal/api"
	"github.com/starford/papernotes/internal/archive"
	"github.com/starford/papernotes/internal/arxiv"
	"github.com/starford/papernotes/internal/index"
	"github.com/starford/papernotes/internal/mcpserver"
	"github.com/starford/papernotes/internal/paperservice"
	"github.com/starford/papernotes/internal/pipeline"
	"github.com/starford/papernotes/internal/source"
	"github.com/starford/papernotes/internal/sse"
	"github.com/starford/papernotes/internal/storage"
	"github.com/starford/papernotes/internal/tagging"
)

// Version is reported by the CLI and the MCP server.
const Version = "0.1.0"

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
		slog.SetDefault(app.logger)
	}
	if app.fetcher == nil {
		app.fetcher = arxiv.NewClient(app.config.Metadata.Endpoint, app.config.Metadata.Timeout, app.logger)
	}
	return app, nil
}

func (a *application) openArchive() (*archive.Store, storage.Provider, error) {
	if err := os.MkdirAll(a.config.Archive.Root, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create archive dir: %w", err)
	}
	fs, err := storage.NewFS(a.config.Archive.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	return archive.New(fs, a.logger), fs, nil
}

func (a *application) generator(store *archive.Store) *pipeline.Generator {
	cfg := a.config
	g := pipeline.NewGenerator(pipeline.GenerateConfig{
		SourcePath:      cfg.Source.Path,
		Column:          cfg.Source.Column,
		FingerprintPath: cfg.Source.FingerprintPath,
		Year:            cfg.Archive.Year,
		MaxIdeas:        cfg.Archive.MaxIdeas,
		Force:           a.force,
	}, store, a.fetcher, a.logger)
	if a.now != nil {
		g.WithClock(a.now)
	}
	return g
}

// resolveSuggester builds the tagging client, failing with a ConfigError
// when no credential is configured.
func (a *application) resolveSuggester() error {
	if a.suggester != nil {
		return nil
	}
	if err := a.config.ValidateTagging(); err != nil {
		return err
	}
	client, err := tagging.NewOpenAIClient(a.config.Tagging.Options())
	if err != nil {
		return err
	}
	a.suggester = client
	return nil
}

func (a *application) tagger(store *archive.Store) (*pipeline.Tagger, error) {
	if err := a.resolveSuggester(); err != nil {
		return nil, err
	}
	return pipeline.NewTagger(store, a.suggester, a.logger), nil
}

// checkSource reports a missing source table or reference column before
// the archive directory is created.
func (a *application) checkSource() error {
	_, err := source.LoadFile(a.config.Source.Path, a.config.Source.Column)
	return err
}

func (a *application) fail(msg string, err error) error {
	a.logger.Error(msg, slog.String("error", err.Error()))
	return err
}

// RunGenerate runs pass 1 once.
func RunGenerate(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if err := app.checkSource(); err != nil {
		return app.fail("generate failed", err)
	}
	store, _, err := app.openArchive()
	if err != nil {
		return err
	}
	if _, err := app.generator(store).Run(ctx); err != nil {
		return app.fail("generate failed", err)
	}
	return nil
}

// RunTag runs pass 2 once.
func RunTag(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if err := app.resolveSuggester(); err != nil {
		return app.fail("tag failed", err)
	}
	store, _, err := app.openArchive()
	if err != nil {
		return err
	}
	t, err := app.tagger(store)
	if err != nil {
		return app.fail("tag failed", err)
	}
	if _, err := t.Run(ctx); err != nil {
		return app.fail("tag failed", err)
	}
	return nil
}

// RunAll runs pass 1 then pass 2. The tagging credential is checked before
// pass 1 so a misconfiguration never leaves a half-finished run behind.
func RunAll(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if err := app.resolveSuggester(); err != nil {
		return app.fail("run failed", err)
	}
	if err := app.checkSource(); err != nil {
		return app.fail("run failed", err)
	}
	store, _, err := app.openArchive()
	if err != nil {
		return err
	}
	t, err := app.tagger(store)
	if err != nil {
		return app.fail("run failed", err)
	}
	if _, _, err := pipeline.NewRunner(app.generator(store), t).All(ctx); err != nil {
		return app.fail("run failed", err)
	}
	return nil
}

// RunWatch runs pass 1 now and again whenever the source table changes,
// until ctx is cancelled or the process is interrupted.
func RunWatch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if err := app.checkSource(); err != nil {
		return app.fail("generate failed", err)
	}
	store, _, err := app.openArchive()
	if err != nil {
		return err
	}
	gen := app.generator(store)
	run := func(ctx context.Context) error {
		_, err := gen.Run(ctx)
		return err
	}
	if err := run(ctx); err != nil {
		return app.fail("generate failed", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return pipeline.WatchSource(ctx, app.config.Source.Path, app.logger, run)
}

// broadcastPasses announces finished HTTP-triggered passes over SSE.
type broadcastPasses struct {
	runner *pipeline.Runner
	broker *sse.Broker
}

func (b broadcastPasses) Generate(ctx context.Context) (pipeline.GenerateReport, error) {
	rep, err := b.runner.Generate(ctx)
	if err == nil {
		b.broker.Publish(sse.Event{Type: sse.TypePassFinished, Data: map[string]any{
			"pass": "generate", "created": len(rep.Created), "unchanged": rep.Unchanged,
		}})
	}
	return rep, err
}

func (b broadcastPasses) Tag(ctx context.Context) (pipeline.TagReport, error) {
	rep, err := b.runner.Tag(ctx)
	if err == nil {
		b.broker.Publish(sse.Event{Type: sse.TypePassFinished, Data: map[string]any{
			"pass": "tag", "tagged": len(rep.Tagged), "skipped": rep.Skipped,
		}})
	}
	return rep, err
}

func (a *application) openIndex(fs storage.Provider) (*index.DB, error) {
	db, err := index.Open(a.config.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, fs, a.logger); err != nil {
		a.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return db, nil
}

// RunServe starts the HTTP API, the SSE stream and the archive watcher.
func RunServe(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger

	logger.Info("configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("archive_root", cfg.Archive.Root),
		slog.String("source_path", cfg.Source.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, fs, err := app.openArchive()
	if err != nil {
		return err
	}
	db, err := app.openIndex(fs)
	if err != nil {
		return err
	}
	defer db.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := paperservice.NewService(store, db)
	reindex := func(p string) {
		if err := svc.IndexFile(p); err != nil {
			logger.Warn("reindex failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}

	gen := app.generator(store)
	gen.OnCreated = func(p string) {
		reindex(p)
		broker.PaperCreated(p)
	}
	tagger, err := app.tagger(store)
	if err != nil {
		logger.Warn("tagging disabled", slog.String("error", err.Error()))
	} else {
		tagger.OnTagged = func(p string, tags tagging.TagSet) {
			reindex(p)
			broker.PaperTagged(p, tags)
		}
	}
	passes := broadcastPasses{runner: pipeline.NewRunner(gen, tagger), broker: broker}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	health := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
	r.Get("/health/live", health)
	r.Get("/health/ready", health)
	r.Mount("/api", api.NewRouter(svc, passes, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, db, fs, logger, func(kind, p string) {
			broker.IndexChange(kind, p)
		})
	})

	g.Go(func() error {
		logger.Info("starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("application error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("server stopped")
	return nil
}

// errShutdown cancels the group's context so the watcher exits with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the archive tools over stdio. Logs go to stderr since
// stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	store, fs, err := app.openArchive()
	if err != nil {
		return err
	}
	db, err := app.openIndex(fs)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := index.Watch(ctx, db, fs, app.logger, nil); err != nil {
			app.logger.Warn("archive watcher stopped", slog.String("error", err.Error()))
		}
	}()

	srv := mcpserver.New(paperservice.NewService(store, db), Version)
	app.logger.Info("mcp server starting", slog.String("archive_root", fs.Root()))
	return srv.ServeStdio()
}
