// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only blog tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/justmytwospence/blog/internal/content"
	"github.com/justmytwospence/blog/internal/index"
)

// Server wraps the MCP server with blog tools. All tools are read-only; the
// content directory stays the author's to edit.
type Server struct {
	mcp   *server.MCPServer
	store content.Provider
	db    *index.DB
}

// New creates a new MCP server with all blog tools registered.
func New(store content.Provider, db *index.DB) *Server {
	s := &Server{store: store, db: db}

	s.mcp = server.NewMCPServer(
		"Blog",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_posts",
		mcp.WithDescription("Full-text search through post content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPosts)

	s.mcp.AddTool(mcp.NewTool("read_post",
		mcp.WithDescription("Read the raw source of a post (markdown, notebook JSON, or app HTML) by slug."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("URL slug of the post (e.g. my-cool-post)")),
	), s.readPost)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List all published posts with their metadata."),
		mcp.WithString("category", mcp.Description("Optional category filter (empty for all)")),
	), s.listPosts)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, err := s.db.GetBySlug(slug)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
	}
	data, err := s.store.Read(row.Path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := ""
	if c, err := req.RequireString("category"); err == nil {
		category = c
	}

	rows, _, err := s.db.ListPosts(1000, 0, category, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lines []string
	for _, r := range rows {
		line := fmt.Sprintf("%s\t%s\t%s\t%s", r.Slug, r.Kind, r.Date, r.Title)
		if len(r.Categories) > 0 {
			line += "\t[" + strings.Join(r.Categories, ", ") + "]"
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no posts found"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}
