// Package paperservice is the read side of the archive shared by the HTTP
// API and the MCP server.
package paperservice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/starford/papernotes/internal/apperr"
	"github.com/starford/papernotes/internal/archive"
	"github.com/starford/papernotes/internal/checksum"
	"github.com/starford/papernotes/internal/index"
	"github.com/starford/papernotes/internal/models"
	"github.com/starford/papernotes/internal/note"
	"github.com/starford/papernotes/internal/paperid"
)

// Links are the canonical URLs for a paper.
type Links struct {
	Abs      string `json:"abs"`
	PDF      string `json:"pdf"`
	AlphaXiv string `json:"alphaxiv"`
}

// PaperDetail is the full representation of one note.
type PaperDetail struct {
	models.Paper
	Links   Links             `json:"links"`
	Fields  map[string]string `json:"fields"`
	Notes   string            `json:"notes"`
	Content string            `json:"content"`
}

// SearchHit is one search result.
type SearchHit struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Service coordinates the note store and the index.
type Service struct {
	store *archive.Store
	db    index.PaperIndex
}

// NewService creates a paper service.
func NewService(store *archive.Store, db index.PaperIndex) *Service {
	return &Service{store: store, db: db}
}

// GetPaper reads the note for year/id straight from the archive.
func (s *Service) GetPaper(ctx context.Context, year, id string) (*PaperDetail, error) {
	if year == "" || id == "" || strings.ContainsAny(year+id, `/\`) || strings.Contains(id, "..") {
		return nil, apperr.ErrNotFound
	}
	return s.ReadPath(ctx, archive.Path(year, paperid.ID(id)))
}

// ReadPath reads the note stored at the archive-relative path p.
func (s *Service) ReadPath(_ context.Context, p string) (*PaperDetail, error) {
	content, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return buildDetail(p, content), nil
}

// ListPapers returns indexed papers matching f and the total match count.
func (s *Service) ListPapers(_ context.Context, f index.ListFilter) ([]models.Paper, int, error) {
	rows, total, err := s.db.ListPapers(f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]models.Paper, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]SearchHit, error) {
	res, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SearchHit, len(res))
	for i, r := range res {
		out[i] = SearchHit{Path: r.Path, Title: r.Title, Snippet: r.Snippet}
	}
	return out, nil
}

// Candidates lists the notes pass 2 would tag right now. It scans the
// archive rather than the index so the answer matches the tagger's.
func (s *Service) Candidates(_ context.Context) ([]models.Paper, error) {
	cands, err := s.store.Candidates()
	if err != nil {
		return nil, err
	}
	out := make([]models.Paper, len(cands))
	for i, c := range cands {
		out[i] = buildDetail(c.Path, c.Content).Paper
	}
	return out, nil
}

// IndexFile re-reads the note at p and upserts it into the index.
func (s *Service) IndexFile(p string) error {
	content, err := s.store.Read(p)
	if err != nil {
		return err
	}
	return index.IndexFile(s.db, p, []byte(content))
}

func buildDetail(p, content string) *PaperDetail {
	row := index.RowFromNote(p, []byte(content))
	doc := note.Parse(content)

	fields := make(map[string]string)
	for _, f := range doc.Fields() {
		fields[f.Name] = strings.TrimSpace(f.Value)
	}
	notes, _ := doc.Section(note.NotesSection)

	d := &PaperDetail{
		Paper:   fromRow(row),
		Fields:  fields,
		Notes:   notes,
		Content: content,
	}
	d.Checksum = checksum.Sum([]byte(content))
	if row.ID != "" {
		id := paperid.ID(row.ID)
		d.Links = Links{Abs: paperid.AbsURL(id), PDF: paperid.PDFURL(id), AlphaXiv: paperid.AlphaXivURL(id)}
	}
	return d
}

func fromRow(r index.PaperRow) models.Paper {
	updated := r.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	return models.Paper{
		ID:        r.ID,
		Year:      r.Year,
		Path:      r.Path,
		Title:     r.Title,
		Tags:      nonNilSlice(r.Tags),
		Tagged:    r.Tagged,
		Checksum:  r.Checksum,
		UpdatedAt: updated,
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
