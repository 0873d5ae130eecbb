package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/papernotes/internal/apperr"
	"github.com/starford/papernotes/internal/paperid"
)

// PaperRow represents a row in the papers table.
type PaperRow struct {
	Path      string
	ID        string
	Year      string
	Title     string
	Checksum  string
	Tags      []string
	Tagged    bool
	UpdatedAt time.Time
}

// ListFilter narrows ListPapers. Zero values mean "no constraint".
type ListFilter struct {
	Tag      string // with or without the leading marker
	Year     string
	Untagged bool
	Limit    int
	Offset   int
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

const selectCols = `path, paper_id, year, title, checksum, tags, tagged, updated_at`

// UpsertPaper inserts or replaces a paper and its FTS entry within a transaction.
func (db *DB) UpsertPaper(p PaperRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if p.Tags == nil {
		p.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(p.Tags)
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO papers (path, paper_id, year, title, checksum, tags, tagged, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			paper_id   = excluded.paper_id,
			year       = excluded.year,
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			tagged     = excluded.tagged,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, p.Path, p.ID, p.Year, p.Title, p.Checksum, string(tagsJSON), p.Tagged, body, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert paper: %w", err)
	}
	if err := ftsUpsert(tx, p, body); err != nil {
		return err
	}
	return tx.Commit()
}

// idQuery reports whether a search query names a single paper, either as
// a bare identifier or as a URL that resolves to one.
func idQuery(query string) (paperid.ID, bool) {
	q := strings.TrimSpace(query)
	if q == "" || strings.ContainsAny(q, " \t") {
		return "", false
	}
	id, err := paperid.Resolve(q)
	return id, err == nil
}

// DeletePaper removes a paper and its FTS entry.
func (db *DB) DeletePaper(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM papers WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete paper: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a paper, or "" if not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM papers WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed paper.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM papers`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// GetPaper returns one indexed paper or apperr.ErrNotFound.
func (db *DB) GetPaper(path string) (*PaperRow, error) {
	row := db.conn.QueryRow(`SELECT `+selectCols+` FROM papers WHERE path = ?`, path)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get paper: %w", err)
	}
	return p, nil
}

// ListPapers returns papers matching f ordered by year then id, newest
// first, along with the total match count ignoring pagination.
func (db *DB) ListPapers(f ListFilter) ([]PaperRow, int, error) {
	var where []string
	var args []any
	if f.Tag != "" {
		tag := f.Tag
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		where = append(where, `EXISTS (SELECT 1 FROM json_each(papers.tags) WHERE value = ?)`)
		args = append(args, strings.ToLower(tag))
	}
	if f.Year != "" {
		where = append(where, `year = ?`)
		args = append(args, f.Year)
	}
	if f.Untagged {
		where = append(where, `tagged = 0`)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM papers`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count papers: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`SELECT `+selectCols+` FROM papers`+clause+
		` ORDER BY year DESC, paper_id DESC LIMIT ? OFFSET ?`,
		append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list papers: %w", err)
	}
	defer rows.Close()

	var out []PaperRow
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(s scanner) (*PaperRow, error) {
	var p PaperRow
	var tagsJSON string
	if err := s.Scan(&p.Path, &p.ID, &p.Year, &p.Title, &p.Checksum, &tagsJSON, &p.Tagged, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
		p.Tags = nil
	}
	return &p, nil
}
