// Package archive lays paper notes out as <year>/<id>.md on top of a
// storage.Provider and finds notes that still need tags.
package archive

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/papernotes/internal/apperr"
	"github.com/starford/papernotes/internal/note"
	"github.com/starford/papernotes/internal/paperid"
	"github.com/starford/papernotes/internal/storage"
)

// DefaultYear partitions notes when no year is derived from the source.
const DefaultYear = "2025"

// Store is the create-if-absent note store.
type Store struct {
	fs     storage.Provider
	logger *slog.Logger
}

// New creates a Store over fs.
func New(fs storage.Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{fs: fs, logger: logger}
}

// Path returns the archive-relative location of a note.
func Path(year string, id paperid.ID) string {
	return path.Join(year, id.String()+".md")
}

// Split recovers the year and identifier from an archive-relative path.
func Split(p string) (year string, id paperid.ID, ok bool) {
	dir, file := path.Split(p)
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" || strings.Contains(dir, "/") || !strings.HasSuffix(file, ".md") {
		return "", "", false
	}
	return dir, paperid.ID(strings.TrimSuffix(file, ".md")), true
}

// Exists reports whether a note for id is stored under year.
func (s *Store) Exists(year string, id paperid.ID) (bool, error) {
	return s.fs.Exists(Path(year, id))
}

// CreateIfAbsent writes content for id unless a note already exists. The
// existing note is neither read nor touched; created reports whether a
// write happened.
func (s *Store) CreateIfAbsent(year string, id paperid.ID, content string) (created bool, err error) {
	p := Path(year, id)
	if err := s.fs.Create(p, []byte(content)); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("archive: create %s: %w", p, err)
	}
	return true, nil
}

// Read returns the content of the note at p.
func (s *Store) Read(p string) (string, error) {
	data, err := s.fs.Read(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReplaceTagged writes a note whose Tags line was just merged. It is the
// only path that mutates an existing note.
func (s *Store) ReplaceTagged(p, content string) error {
	if err := s.fs.Write(p, []byte(content)); err != nil {
		return fmt.Errorf("archive: write %s: %w", p, err)
	}
	return nil
}

// Paths lists every stored note.
func (s *Store) Paths() ([]string, error) {
	metas, err := s.fs.List("")
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	out := make([]string, 0, len(metas))
	for _, m := range metas {
		out = append(out, m.Path)
	}
	return out, nil
}

// Candidate is a stored note that lacks tags.
type Candidate struct {
	Path    string
	Content string
}

// Candidates returns every note whose Tags line is empty or missing.
// Unreadable notes are logged and skipped.
func (s *Store) Candidates() ([]Candidate, error) {
	paths, err := s.Paths()
	if err != nil {
		return nil, err
	}
	var out []Candidate
	for _, p := range paths {
		content, err := s.Read(p)
		if err != nil {
			s.logger.Warn("scan: read failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if note.HasTags(content) {
			continue
		}
		out = append(out, Candidate{Path: p, Content: content})
	}
	return out, nil
}
