package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/papernotes/internal/apperr"
	"github.com/starford/papernotes/internal/arxiv"
	"github.com/starford/papernotes/internal/paperid"
	"github.com/starford/papernotes/internal/testutil"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, paperid.ID) arxiv.Metadata {
	return arxiv.Metadata{Title: "Example Paper", Abstract: "We propose X. We evaluate Y. Z happens. Conclusion."}
}

type stubSuggester struct{ calls int }

func (s *stubSuggester) Suggest(context.Context, string) ([]string, error) {
	s.calls++
	return []string{"LLM", "Agents", "RAG"}, nil
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Source.Path = filepath.Join(dir, "papers.csv")
	cfg.Source.FingerprintPath = filepath.Join(dir, "papers.csv.sha256")
	cfg.Archive.Root = filepath.Join(dir, "papers")
	cfg.SQLite.Path = filepath.Join(dir, "index.db")
	require.NoError(t, os.WriteFile(cfg.Source.Path, []byte("task\nhttps://example.org/papers/2501.12345\n"), 0o644))
	return cfg
}

func baseOpts(cfg *Config) []Option {
	return []Option{
		WithConfig(cfg),
		WithLogger(testutil.Logger()),
		WithFetcher(stubFetcher{}),
		WithClock(func() time.Time { return time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC) }),
	}
}

func TestRunAllGeneratesAndTags(t *testing.T) {
	cfg := testConfig(t)
	sug := &stubSuggester{}

	err := RunAll(context.Background(), append(baseOpts(cfg), WithSuggester(sug))...)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(cfg.Archive.Root, "2025", "2501.12345.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "- **Tags**: #llm #agents #rag\n")
	assert.Contains(t, string(data), "- **Added**: 2025-01-15\n")
	assert.Equal(t, 1, sug.calls)

	// Both passes are idempotent.
	require.NoError(t, RunAll(context.Background(), append(baseOpts(cfg), WithSuggester(sug))...))
	again, err := os.ReadFile(filepath.Join(cfg.Archive.Root, "2025", "2501.12345.md"))
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
	assert.Equal(t, 1, sug.calls)
}

func TestRunAllMissingCredentialTouchesNothing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tagging.APIKey = ""

	err := RunAll(context.Background(), baseOpts(cfg)...)
	require.Error(t, err)
	assert.True(t, apperr.IsFatal(err))
	assert.Contains(t, err.Error(), "tagging.api_key")

	assert.NoDirExists(t, cfg.Archive.Root)
	_, statErr := os.Stat(cfg.Source.FingerprintPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunGenerateMissingColumn(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Source.Path, []byte("url\nhttps://example.org/papers/2501.12345\n"), 0o644))

	err := RunGenerate(context.Background(), baseOpts(cfg)...)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "expected [task]"), err.Error())
	assert.NoDirExists(t, cfg.Archive.Root)
}

func TestRunGenerateMissingSourceCreatesNothing(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.Remove(cfg.Source.Path))

	err := RunGenerate(context.Background(), baseOpts(cfg)...)
	require.Error(t, err)
	assert.True(t, apperr.IsFatal(err))
	assert.NoDirExists(t, cfg.Archive.Root)
}

func TestRunTagMissingCredentialCreatesNothing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tagging.APIKey = ""

	err := RunTag(context.Background(), baseOpts(cfg)...)
	require.Error(t, err)
	assert.True(t, apperr.IsFatal(err))
	assert.NoDirExists(t, cfg.Archive.Root)
}

func TestRunTagWithoutNotes(t *testing.T) {
	cfg := testConfig(t)
	sug := &stubSuggester{}
	require.NoError(t, RunTag(context.Background(), append(baseOpts(cfg), WithSuggester(sug))...))
	assert.Zero(t, sug.calls)
}

func TestRunRequiresConfig(t *testing.T) {
	assert.Error(t, RunGenerate(context.Background()))
}
