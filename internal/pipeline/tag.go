package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/starford/papernotes/internal/apperr"
	"github.com/starford/papernotes/internal/archive"
	"github.com/starford/papernotes/internal/note"
	"github.com/starford/papernotes/internal/tagging"
)

// TagReport summarizes one pass 2 run.
type TagReport struct {
	Candidates int
	Tagged     map[string]tagging.TagSet
	Skipped    int
}

// Tagger is pass 2: untagged notes to tagged notes.
type Tagger struct {
	store     *archive.Store
	suggester tagging.Suggester
	logger    *slog.Logger

	// OnTagged, if set, is called after a note's tags were written.
	OnTagged func(path string, tags tagging.TagSet)
}

// NewTagger wires a Tagger.
func NewTagger(store *archive.Store, suggester tagging.Suggester, logger *slog.Logger) *Tagger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tagger{store: store, suggester: suggester, logger: logger}
}

// Run performs pass 2 over the archive's current contents. A note whose
// Notes section is missing or whose tagging request fails is skipped and
// stays eligible for the next run. Any other failure aborts the batch; it
// is logged with its stack and returned.
func (t *Tagger) Run(ctx context.Context) (rep TagReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tag: batch panicked: %v", r)
			t.logger.Error("tag: batch aborted",
				slog.String("error", err.Error()),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	rep.Tagged = make(map[string]tagging.TagSet)

	cands, err := t.store.Candidates()
	if err != nil {
		t.logger.Error("tag: scan failed", slog.String("error", err.Error()))
		return rep, fmt.Errorf("tag: %w", err)
	}
	rep.Candidates = len(cands)
	if len(cands) == 0 {
		t.logger.Info("tag: no papers need tagging")
		return rep, nil
	}
	t.logger.Info("tag: tagging papers", slog.Int("count", len(cands)))

	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		tags, err := t.tagOne(ctx, c)
		switch {
		case apperr.IsRecoverable(err):
			rep.Skipped++
			t.logger.Warn("tag: skipped", slog.String("path", c.Path), slog.String("error", err.Error()))
		case err != nil:
			t.logger.Error("tag: batch aborted", slog.String("path", c.Path), slog.String("error", err.Error()))
			return rep, fmt.Errorf("tag: %s: %w", c.Path, err)
		default:
			rep.Tagged[c.Path] = tags
			t.logger.Info("tag: tagged", slog.String("path", c.Path), slog.String("tags", tags.String()))
			if t.OnTagged != nil {
				t.OnTagged(c.Path, tags)
			}
		}
	}
	return rep, nil
}

func (t *Tagger) tagOne(ctx context.Context, c archive.Candidate) (tagging.TagSet, error) {
	notes, err := note.ExtractSection(c.Content, note.NotesSection)
	if err != nil {
		return nil, err
	}
	// Left untagged so the note is picked up once Notes is filled in.
	if notes == "" {
		return nil, apperr.Record("extract", c.Path, fmt.Errorf("%w: %q", apperr.ErrEmptySection, note.NotesSection))
	}
	tags, err := tagging.Tags(ctx, t.suggester, c.Path, notes)
	if err != nil {
		return nil, err
	}
	if err := t.store.ReplaceTagged(c.Path, note.MergeTags(c.Content, tags)); err != nil {
		return nil, err
	}
	return tags, nil
}
