//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Column order matters to bm25 weights and snippet below.
func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS papers_fts USING fts5(
			path UNINDEXED,
			paper_id,
			title,
			tags,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, p PaperRow, body string) error {
	if _, err := tx.Exec(`DELETE FROM papers_fts WHERE path = ?`, p.Path); err != nil {
		return fmt.Errorf("index: clear fts: %w", err)
	}
	_, err := tx.Exec(`INSERT INTO papers_fts (path, paper_id, title, tags, body) VALUES (?, ?, ?, ?, ?)`,
		p.Path, p.ID, p.Title, strings.Join(p.Tags, " "), body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM papers_fts WHERE path = ?`, path)
}

// Search matches an arXiv identifier (or a URL carrying one) against the
// paper_id column and anything else as quoted terms over title, tags and
// Notes body. Title hits rank above tag hits, tag hits above body hits.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	expr := matchExpr(query)
	if expr == "" {
		return nil, nil
	}
	rows, err := db.conn.Query(`
		SELECT path,
		       title,
		       snippet(papers_fts, 4, '<b>', '</b>', '...', 32)
		FROM papers_fts
		WHERE papers_fts MATCH ?
		ORDER BY bm25(papers_fts, 0.0, 20.0, 10.0, 5.0, 1.0)
		LIMIT ?
	`, expr, limit)
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

// matchExpr turns free text into an FTS5 expression. Terms are quoted so
// "#llm" or "retrieval-augmented" never hit the query syntax; a trailing
// "*" keeps prefix search.
func matchExpr(query string) string {
	if id, ok := idQuery(query); ok {
		return `paper_id : "` + id.String() + `"`
	}
	var terms []string
	for _, f := range strings.Fields(query) {
		prefix := strings.HasSuffix(f, "*")
		f = strings.TrimRight(f, "*")
		if f == "" {
			continue
		}
		term := `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		if prefix {
			term += "*"
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, " ")
}
