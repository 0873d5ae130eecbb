package index

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/papernotes/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "papernotes-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seed(t *testing.T, db *DB, rows ...PaperRow) {
	t.Helper()
	for _, r := range rows {
		if err := db.UpsertPaper(r, "body of "+r.Title); err != nil {
			t.Fatalf("UpsertPaper(%s): %v", r.Path, err)
		}
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM papers`).Scan(&count); err != nil {
		t.Fatalf("papers table missing: %v", err)
	}
}

func TestUpsertAndGetPaper(t *testing.T) {
	db := testDB(t)
	now := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	seed(t, db, PaperRow{
		Path: "2025/2501.12345.md", ID: "2501.12345", Year: "2025",
		Title: "Example Paper", Checksum: "abc", Tags: []string{"#llm"}, Tagged: true, UpdatedAt: now,
	})

	got, err := db.GetPaper("2025/2501.12345.md")
	if err != nil {
		t.Fatalf("GetPaper: %v", err)
	}
	if got.Title != "Example Paper" || got.ID != "2501.12345" || !got.Tagged {
		t.Errorf("GetPaper = %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "#llm" {
		t.Errorf("tags = %v", got.Tags)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Errorf("updated_at = %v", got.UpdatedAt)
	}

	cs, err := db.GetChecksum("2025/2501.12345.md")
	if err != nil || cs != "abc" {
		t.Errorf("GetChecksum = %q, %v", cs, err)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	seed(t, db, PaperRow{Path: "2025/1.1.md", Title: "Old", Checksum: "1"})
	seed(t, db, PaperRow{Path: "2025/1.1.md", Title: "New", Checksum: "2", Tags: []string{"#a"}, Tagged: true})

	got, err := db.GetPaper("2025/1.1.md")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "New" || got.Checksum != "2" || !got.Tagged {
		t.Errorf("GetPaper = %+v", got)
	}
}

func TestGetPaperNotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetPaper("nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	cs, err := db.GetChecksum("nope.md")
	if err != nil || cs != "" {
		t.Errorf("GetChecksum = %q, %v", cs, err)
	}
}

func TestDeletePaper(t *testing.T) {
	db := testDB(t)
	seed(t, db, PaperRow{Path: "2025/del.md", Checksum: "x"})
	if err := db.DeletePaper("2025/del.md"); err != nil {
		t.Fatalf("DeletePaper: %v", err)
	}
	all, err := db.AllChecksums()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("AllChecksums = %v", all)
	}
}

func TestListPapersFilters(t *testing.T) {
	db := testDB(t)
	seed(t, db,
		PaperRow{Path: "2024/2401.1.md", ID: "2401.1", Year: "2024", Title: "A", Tags: []string{"#llm", "#rag"}, Tagged: true},
		PaperRow{Path: "2025/2501.1.md", ID: "2501.1", Year: "2025", Title: "B", Tags: []string{"#vision"}, Tagged: true},
		PaperRow{Path: "2025/2501.2.md", ID: "2501.2", Year: "2025", Title: "C"},
	)

	all, total, err := db.ListPapers(ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("total = %d, len = %d", total, len(all))
	}
	if all[0].Path != "2025/2501.2.md" {
		t.Errorf("order: first = %s", all[0].Path)
	}

	byTag, total, err := db.ListPapers(ListFilter{Tag: "LLM"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || byTag[0].Title != "A" {
		t.Errorf("tag filter = %+v", byTag)
	}

	untagged, _, err := db.ListPapers(ListFilter{Untagged: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(untagged) != 1 || untagged[0].Title != "C" {
		t.Errorf("untagged = %+v", untagged)
	}

	page, total, err := db.ListPapers(ListFilter{Year: "2025", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(page) != 1 || page[0].Title != "B" {
		t.Errorf("paged = %+v total=%d", page, total)
	}
}

func TestRowFromNote(t *testing.T) {
	data := []byte("# Example Paper\n\n- **Tags**: #llm #agents\n\n## Notes\nbody\n")
	row := RowFromNote("2025/2501.12345.md", data)
	if row.ID != "2501.12345" || row.Year != "2025" || row.Title != "Example Paper" {
		t.Errorf("row = %+v", row)
	}
	if !row.Tagged || len(row.Tags) != 2 {
		t.Errorf("tags = %v tagged=%v", row.Tags, row.Tagged)
	}

	loose := RowFromNote("misc.md", []byte("# Loose\n- **Tags**:\n"))
	if loose.ID != "misc" || loose.Year != "" || loose.Tagged {
		t.Errorf("loose row = %+v", loose)
	}
}
