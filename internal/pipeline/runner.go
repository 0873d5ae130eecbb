package pipeline

import (
	"context"
	"errors"
	"sync"
)

// ErrPassUnavailable is returned when a pass was not wired into the Runner.
var ErrPassUnavailable = errors.New("pipeline: pass not configured")

// Runner serializes passes so at most one batch touches the archive at a
// time, whichever surface (CLI, watcher, HTTP) triggered it.
type Runner struct {
	mu        sync.Mutex
	generator *Generator
	tagger    *Tagger
}

// NewRunner returns a Runner. Either pass may be nil when the caller
// lacks its dependencies (e.g. no tagging credential).
func NewRunner(g *Generator, t *Tagger) *Runner {
	return &Runner{generator: g, tagger: t}
}

// Generate runs pass 1.
func (r *Runner) Generate(ctx context.Context) (GenerateReport, error) {
	if r.generator == nil {
		return GenerateReport{}, ErrPassUnavailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generator.Run(ctx)
}

// Tag runs pass 2.
func (r *Runner) Tag(ctx context.Context) (TagReport, error) {
	if r.tagger == nil {
		return TagReport{}, ErrPassUnavailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tagger.Run(ctx)
}

// All runs pass 1 then pass 2. Pass 2 is not attempted if pass 1 failed.
func (r *Runner) All(ctx context.Context) (GenerateReport, TagReport, error) {
	gen, err := r.Generate(ctx)
	if err != nil {
		return gen, TagReport{}, err
	}
	tag, err := r.Tag(ctx)
	return gen, tag, err
}
