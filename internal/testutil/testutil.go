// Package testutil provides shared test helpers for archives and indexes.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/papernotes/internal/archive"
	"github.com/starford/papernotes/internal/arxiv"
	"github.com/starford/papernotes/internal/index"
	"github.com/starford/papernotes/internal/note"
	"github.com/starford/papernotes/internal/paperid"
	"github.com/starford/papernotes/internal/storage"
)

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite index that is cleaned up with t.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "papernotes-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestArchive creates a temporary archive root with a store on top.
func TestArchive(t *testing.T) (*archive.Store, storage.Provider) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return archive.New(fs, Logger()), fs
}

// AddPaper synthesizes a note for id under year, optionally tags it, and
// indexes it when db is non-nil. It returns the archive path.
func AddPaper(t *testing.T, store *archive.Store, db *index.DB, year, id, title, abstract string, tags ...string) string {
	t.Helper()
	content, err := note.Synthesize(note.Input{
		ID:           paperid.ID(id),
		ReferenceURL: "https://example.org/papers/" + id,
		Meta:         arxiv.Metadata{Title: title, Abstract: abstract},
		Added:        time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) > 0 {
		content = note.MergeTags(content, tags)
	}
	if _, err := store.CreateIfAbsent(year, paperid.ID(id), content); err != nil {
		t.Fatal(err)
	}
	p := archive.Path(year, paperid.ID(id))
	if db != nil {
		if err := index.IndexFile(db, p, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	return p
}
