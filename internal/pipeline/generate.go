// Package pipeline drives the two batch passes over the archive: note
// generation from the source table and tag completion for untagged notes.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/papernotes/internal/apperr"
	"github.com/starford/papernotes/internal/archive"
	"github.com/starford/papernotes/internal/arxiv"
	"github.com/starford/papernotes/internal/fingerprint"
	"github.com/starford/papernotes/internal/note"
	"github.com/starford/papernotes/internal/paperid"
	"github.com/starford/papernotes/internal/source"
)

// MetadataFetcher looks up title and abstract for an identifier. It never
// fails; unavailable metadata comes back as arxiv.Unknown().
type MetadataFetcher interface {
	Fetch(ctx context.Context, id paperid.ID) arxiv.Metadata
}

// GenerateConfig holds the pass 1 settings.
type GenerateConfig struct {
	SourcePath      string
	Column          string
	FingerprintPath string
	Year            string
	MaxIdeas        int
	Force           bool // ignore the fingerprint and scan every row
}

// GenerateReport summarizes one pass 1 run.
type GenerateReport struct {
	Unchanged bool // source matched the stored fingerprint; nothing ran
	Rows      int
	Created   []string
	Existing  int
	Blank     int
	Skipped   int
}

// Generator is pass 1: source rows to new notes.
type Generator struct {
	cfg     GenerateConfig
	gate    *fingerprint.Gate
	store   *archive.Store
	fetcher MetadataFetcher
	logger  *slog.Logger
	now     func() time.Time

	// OnCreated, if set, is called with the archive path of each new note.
	OnCreated func(path string)
}

// NewGenerator wires a Generator.
func NewGenerator(cfg GenerateConfig, store *archive.Store, fetcher MetadataFetcher, logger *slog.Logger) *Generator {
	if cfg.Year == "" {
		cfg.Year = archive.DefaultYear
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		cfg:     cfg,
		gate:    fingerprint.NewGate(cfg.SourcePath, cfg.FingerprintPath),
		store:   store,
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the clock used for the Added date.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Run performs pass 1. Configuration problems (missing table, missing
// column) are returned before any note is written. Per-row failures are
// logged and skipped. The fingerprint is committed only after every row
// has been processed.
func (g *Generator) Run(ctx context.Context) (GenerateReport, error) {
	var rep GenerateReport

	decision, err := g.gate.Check()
	if err != nil {
		return rep, err
	}
	table, err := source.Parse(decision.Source, g.cfg.Column)
	if err != nil {
		return rep, err
	}
	if !decision.Proceed && !g.cfg.Force {
		g.logger.Info("generate: source unchanged, skipping", slog.String("source", g.cfg.SourcePath))
		rep.Unchanged = true
		return rep, nil
	}

	g.logger.Info("generate: source updated, generating notes",
		slog.String("source", g.cfg.SourcePath),
		slog.String("previous_fingerprint", decision.Previous),
		slog.Int("rows", len(table.Rows)))

	for _, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Rows++
		if row.URL == "" {
			rep.Blank++
			continue
		}

		path, created, err := g.processRow(ctx, row)
		switch {
		case apperr.IsRecoverable(err):
			rep.Skipped++
			g.logger.Warn("generate: row skipped",
				slog.Int("line", row.Line),
				slog.String("url", row.URL),
				slog.String("error", err.Error()))
		case err != nil:
			return rep, fmt.Errorf("generate: line %d: %w", row.Line, err)
		case created:
			rep.Created = append(rep.Created, path)
			g.logger.Info("generate: created", slog.String("path", path))
			if g.OnCreated != nil {
				g.OnCreated(path)
			}
		default:
			rep.Existing++
			g.logger.Debug("generate: exists, left as is", slog.String("path", path))
		}
	}

	if err := g.gate.Commit(decision.Sum); err != nil {
		return rep, fmt.Errorf("generate: %w", err)
	}
	g.logger.Info("generate: fingerprint updated",
		slog.Int("created", len(rep.Created)),
		slog.Int("existing", rep.Existing),
		slog.Int("skipped", rep.Skipped))
	return rep, nil
}

func (g *Generator) processRow(ctx context.Context, row source.Row) (string, bool, error) {
	id, err := paperid.Resolve(row.URL)
	if err != nil {
		return "", false, err
	}
	path := archive.Path(g.cfg.Year, id)

	// Existing notes may carry manual edits; skip before spending a request.
	exists, err := g.store.Exists(g.cfg.Year, id)
	if err != nil {
		return path, false, err
	}
	if exists {
		return path, false, nil
	}

	content, err := note.Synthesize(note.Input{
		ID:           id,
		ReferenceURL: row.URL,
		Meta:         g.fetcher.Fetch(ctx, id),
		Added:        g.now(),
		MaxIdeas:     g.cfg.MaxIdeas,
	})
	if err != nil {
		return path, false, fmt.Errorf("synthesize %s: %w", id, err)
	}
	created, err := g.store.CreateIfAbsent(g.cfg.Year, id, content)
	return path, created, err
}
