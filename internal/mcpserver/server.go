// Package mcpserver exposes the paper archive to LLM clients as an MCP
// (Model Context Protocol) server over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/papernotes/internal/apperr"
	"github.com/starford/papernotes/internal/index"
	"github.com/starford/papernotes/internal/models"
	"github.com/starford/papernotes/internal/paperservice"
)

// Server wraps the MCP server with the archive tools.
type Server struct {
	mcp *server.MCPServer
	svc *paperservice.Service
}

// New creates an MCP server with every tool and resource registered.
func New(svc *paperservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"papernotes",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_papers",
		mcp.WithDescription("Full-text search over paper titles, notes and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("limit", mcp.Description("Maximum number of hits (default 20)")),
	), s.searchPapers)

	s.mcp.AddTool(mcp.NewTool("read_paper",
		mcp.WithDescription("Read the full Markdown note for a paper. Pass either path, or year and id."),
		mcp.WithString("path", mcp.Description("Archive path, e.g. 2025/2501.12345.md")),
		mcp.WithString("year", mcp.Description("Archive year directory, e.g. 2025")),
		mcp.WithString("id", mcp.Description("arXiv identifier, e.g. 2501.12345")),
	), s.readPaper)

	s.mcp.AddTool(mcp.NewTool("list_papers",
		mcp.WithDescription("List archived papers, newest first, optionally filtered."),
		mcp.WithString("tag", mcp.Description("Only papers carrying this tag (with or without #)")),
		mcp.WithString("year", mcp.Description("Only papers filed under this year")),
		mcp.WithString("untagged", mcp.Description(`"true" to list only untagged papers`)),
	), s.listPapers)

	s.mcp.AddTool(mcp.NewTool("list_untagged",
		mcp.WithDescription("List the notes the next tagging pass would process."),
	), s.listUntagged)

	s.mcp.AddTool(mcp.NewTool("get_note_template",
		mcp.WithDescription("Returns the note layout and the template new notes are generated from."),
	), s.getNoteTemplate)

	s.mcp.AddResource(
		mcp.NewResource(TemplateURI, "Paper Note Template",
			mcp.WithResourceDescription("Layout of generated paper notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTemplateResource,
	)

	return s
}

// ServeStdio serves MCP on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// optional returns the string argument name, or "" when absent.
func optional(req mcp.CallToolRequest, name string) string {
	v, err := req.RequireString(name)
	if err != nil {
		return ""
	}
	return v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchPapers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit, _ := strconv.Atoi(optional(req, "limit"))
	hits, err := s.svc.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("no papers found"), nil
	}
	return jsonResult(hits)
}

func (s *Server) readPaper(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		d   *paperservice.PaperDetail
		err error
	)
	if p := optional(req, "path"); p != "" {
		d, err = s.svc.ReadPath(ctx, p)
	} else {
		year, id := optional(req, "year"), optional(req, "id")
		if year == "" || id == "" {
			return mcp.NewToolResultError("either path or both year and id are required"), nil
		}
		d, err = s.svc.GetPaper(ctx, year, id)
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("paper not found"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(d.Content), nil
}

func (s *Server) listPapers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	untagged, _ := strconv.ParseBool(optional(req, "untagged"))
	items, total, err := s.svc.ListPapers(ctx, index.ListFilter{
		Tag:      optional(req, "tag"),
		Year:     optional(req, "year"),
		Untagged: untagged,
		Limit:    200,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"papers": items, "total": total})
}

func (s *Server) listUntagged(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.Candidates(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("all papers are tagged"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d untagged\n", len(items)) + pathsOf(items)), nil
}

func pathsOf(items []models.Paper) string {
	var b strings.Builder
	for _, p := range items {
		b.WriteString(p.Path)
		b.WriteByte('\n')
	}
	return b.String()
}

func (s *Server) getNoteTemplate(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(templateText()), nil
}

func (s *Server) readTemplateResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TemplateURI,
			MIMEType: "text/markdown",
			Text:     templateText(),
		},
	}, nil
}
