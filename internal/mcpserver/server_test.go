package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/justmytwospence/blog/internal/index"
	"github.com/justmytwospence/blog/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	dir, store := testutil.TestContent(t)
	db := testutil.TestDB(t)

	testutil.WriteContent(t, dir, "first-post.md", "---\ntitle: First Post\ncategories: [go]\n---\nzebra body")
	testutil.WriteContent(t, dir, "second.md", "---\ntitle: Second\n---\nother body")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := index.Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	return New(store, db)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_posts":
		result, err = srv.searchPosts(ctx, req)
	case "read_post":
		result, err = srv.readPost(ctx, req)
	case "list_posts":
		result, err = srv.listPosts(ctx, req)
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

func TestListPosts(t *testing.T) {
	srv := testServer(t)

	text := resultText(callTool(t, srv, "list_posts", map[string]any{}))
	if !strings.Contains(text, "first-post") || !strings.Contains(text, "second") {
		t.Errorf("list = %q", text)
	}

	filtered := resultText(callTool(t, srv, "list_posts", map[string]any{"category": "go"}))
	if !strings.Contains(filtered, "first-post") || strings.Contains(filtered, "second") {
		t.Errorf("filtered list = %q", filtered)
	}
}

func TestReadPost(t *testing.T) {
	srv := testServer(t)

	text := resultText(callTool(t, srv, "read_post", map[string]any{"slug": "first-post"}))
	if !strings.Contains(text, "zebra body") {
		t.Errorf("read = %q", text)
	}
}

func TestReadPostMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_post", map[string]any{"slug": "nope"})
	if !r.IsError {
		t.Error("expected error for missing post")
	}
}

func TestSearchPosts(t *testing.T) {
	srv := testServer(t)

	text := resultText(callTool(t, srv, "search_posts", map[string]any{"query": "zebra"}))
	if !strings.Contains(text, "first-post") {
		t.Errorf("search = %q", text)
	}
}
