//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

// Without FTS5 the body column in papers serves LIKE search.
func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ *sql.Tx, _ PaperRow, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// Search looks up an arXiv identifier (or a URL carrying one) exactly and
// otherwise runs a case-insensitive LIKE over title, body and tags.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		rows *sql.Rows
		err  error
	)
	if id, ok := idQuery(query); ok {
		rows, err = db.conn.Query(`
			SELECT path, title, substr(body, 1, 200)
			FROM papers
			WHERE paper_id = ?
			ORDER BY year DESC
			LIMIT ?
		`, id, limit)
	} else {
		like := "%" + query + "%"
		rows, err = db.conn.Query(`
			SELECT path, title, substr(body, 1, 200)
			FROM papers
			WHERE title LIKE ? OR body LIKE ? OR tags LIKE ?
			ORDER BY year DESC, paper_id DESC
			LIMIT ?
		`, like, like, like, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
