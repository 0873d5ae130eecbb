//go:build sqlite_fts5

package index

import "testing"

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM papers_fts`).Scan(&count); err != nil {
		t.Fatalf("papers_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertPaper(PaperRow{Path: "2025/f.md", Title: "FTS Paper"}, "We propose a powerful retrieval method."); err != nil {
		t.Fatal(err)
	}
	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "2025/f.md" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Snippet == "" {
		t.Error("expected snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPaper(PaperRow{Path: "2025/d.md", Title: "Gone"}, "ephemeral content")
	if err := db.DeletePaper("2025/d.md"); err != nil {
		t.Fatal(err)
	}
	results, _ := db.Search("ephemeral", 10)
	if len(results) != 0 {
		t.Errorf("expected no results after delete, got %d", len(results))
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPaper(PaperRow{Path: "2025/u.md", Title: "U"}, "original words")
	_ = db.UpsertPaper(PaperRow{Path: "2025/u.md", Title: "U"}, "replacement words")

	if r, _ := db.Search("original", 10); len(r) != 0 {
		t.Errorf("stale content still searchable: %+v", r)
	}
	if r, _ := db.Search("replacement", 10); len(r) != 1 {
		t.Errorf("new content not searchable: %+v", r)
	}
}

func TestFTS5_SearchByPaperID(t *testing.T) {
	db := testDB(t)
	seed(t, db,
		PaperRow{Path: "2025/2501.12345.md", ID: "2501.12345", Title: "Target"},
		PaperRow{Path: "2025/2501.99999.md", ID: "2501.99999", Title: "Other 12345"},
	)
	for _, q := range []string{"2501.12345", "https://arxiv.org/abs/2501.12345"} {
		results, err := db.Search(q, 10)
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		if len(results) != 1 || results[0].Path != "2025/2501.12345.md" {
			t.Errorf("Search(%q) = %+v", q, results)
		}
	}
}

func TestFTS5_QuerySyntaxIsEscaped(t *testing.T) {
	db := testDB(t)
	seed(t, db, PaperRow{Path: "2025/r.md", Title: "Retrieval-Augmented Agents", Tags: []string{"#llm"}})
	for _, q := range []string{"retrieval-augmented", "#llm", `"agents`, "retriev*"} {
		results, err := db.Search(q, 10)
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		if len(results) != 1 {
			t.Errorf("Search(%q) = %+v", q, results)
		}
	}
}

func TestFTS5_TitleRanksAboveBody(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPaper(PaperRow{Path: "2025/body.md", Title: "Unrelated"}, "mentions diffusion once")
	_ = db.UpsertPaper(PaperRow{Path: "2025/title.md", Title: "Diffusion Policies"}, "nothing here")
	results, err := db.Search("diffusion", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Path != "2025/title.md" {
		t.Errorf("results = %+v", results)
	}
}
