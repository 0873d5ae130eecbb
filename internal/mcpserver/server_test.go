package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/papernotes/internal/paperservice"
	"github.com/starford/papernotes/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	store, _ := testutil.TestArchive(t)
	db := testutil.TestDB(t)
	testutil.AddPaper(t, store, db, "2025", "2501.12345", "Example Paper", "We propose X. We evaluate Y.", "#llm", "#agents")
	testutil.AddPaper(t, store, db, "2024", "2410.00001", "Older Paper", "Retrieval methods.")
	return New(paperservice.NewService(store, db), "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper; dispatch to the handlers directly.
	var (
		result *mcp.CallToolResult
		err    error
	)
	switch name {
	case "search_papers":
		result, err = srv.searchPapers(ctx, req)
	case "read_paper":
		result, err = srv.readPaper(ctx, req)
	case "list_papers":
		result, err = srv.listPapers(ctx, req)
	case "list_untagged":
		result, err = srv.listUntagged(ctx, req)
	case "get_note_template":
		result, err = srv.getNoteTemplate(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestReadPaper(t *testing.T) {
	srv := testServer(t)

	byPath := resultText(callTool(t, srv, "read_paper", map[string]any{"path": "2025/2501.12345.md"}))
	if !strings.HasPrefix(byPath, "# Example Paper\n") {
		t.Errorf("read by path = %q", byPath)
	}
	byID := resultText(callTool(t, srv, "read_paper", map[string]any{"year": "2025", "id": "2501.12345"}))
	if byID != byPath {
		t.Error("read by year/id should match read by path")
	}
}

func TestReadPaperErrors(t *testing.T) {
	srv := testServer(t)
	if r := callTool(t, srv, "read_paper", map[string]any{"path": "2025/nope.md"}); !r.IsError {
		t.Error("expected error for missing paper")
	}
	if r := callTool(t, srv, "read_paper", map[string]any{"year": "2025"}); !r.IsError {
		t.Error("expected error without id")
	}
}

func TestSearchPapers(t *testing.T) {
	srv := testServer(t)
	text := resultText(callTool(t, srv, "search_papers", map[string]any{"query": "Retrieval"}))
	var hits []paperservice.SearchHit
	if err := json.Unmarshal([]byte(text), &hits); err != nil {
		t.Fatalf("decode %q: %v", text, err)
	}
	if len(hits) != 1 || hits[0].Path != "2024/2410.00001.md" {
		t.Errorf("hits = %+v", hits)
	}

	if text := resultText(callTool(t, srv, "search_papers", map[string]any{"query": "zzzz"})); text != "no papers found" {
		t.Errorf("empty search = %q", text)
	}
	if r := callTool(t, srv, "search_papers", map[string]any{}); !r.IsError {
		t.Error("expected error without query")
	}
}

func TestListPapers(t *testing.T) {
	srv := testServer(t)
	text := resultText(callTool(t, srv, "list_papers", map[string]any{"tag": "#agents"}))
	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 {
		t.Errorf("tag filter total = %d", resp.Total)
	}

	text = resultText(callTool(t, srv, "list_papers", map[string]any{"year": "2024"}))
	if !strings.Contains(text, "2410.00001") || strings.Contains(text, "2501.12345") {
		t.Errorf("year filter = %s", text)
	}
}

func TestListUntagged(t *testing.T) {
	srv := testServer(t)
	text := resultText(callTool(t, srv, "list_untagged", nil))
	if text != "1 untagged\n2024/2410.00001.md\n" {
		t.Errorf("list_untagged = %q", text)
	}
}

func TestNoteTemplate(t *testing.T) {
	srv := testServer(t)
	text := resultText(callTool(t, srv, "get_note_template", nil))
	if !strings.Contains(text, "- **Tags**:") || !strings.Contains(text, "## Notes") {
		t.Errorf("template text missing layout: %q", text)
	}

	res, err := srv.readTemplateResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(res) != 1 {
		t.Fatalf("resource = %v, %v", res, err)
	}
	if tc, ok := res[0].(mcp.TextResourceContents); !ok || tc.URI != TemplateURI {
		t.Errorf("resource contents = %+v", res[0])
	}
}
