package internal

import (
	"io"
	"log/slog"
	"time"

	"github.com/starford/papernotes/internal/pipeline"
	"github.com/starford/papernotes/internal/tagging"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logger    *slog.Logger
	logOutput io.Writer
	fetcher   pipeline.MetadataFetcher
	suggester tagging.Suggester
	now       func() time.Time
	force     bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the JSON logger built from the config.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithLogOutput redirects the default JSON logger.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithFetcher replaces the arXiv metadata client.
func WithFetcher(f pipeline.MetadataFetcher) Option {
	return func(a *application) {
		a.fetcher = f
	}
}

// WithSuggester replaces the OpenAI tagging client. The credential check
// is skipped when a suggester is injected.
func WithSuggester(s tagging.Suggester) Option {
	return func(a *application) {
		a.suggester = s
	}
}

// WithClock sets the clock used for the Added date of new notes.
func WithClock(now func() time.Time) Option {
	return func(a *application) {
		a.now = now
	}
}

// WithForce makes pass 1 ignore the stored fingerprint.
func WithForce(force bool) Option {
	return func(a *application) {
		a.force = force
	}
}
