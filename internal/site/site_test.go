package site

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/justmytwospence/blog/internal/index"
	"github.com/justmytwospence/blog/internal/postservice"
	"github.com/justmytwospence/blog/internal/testutil"
)

const foldedNotebook = `{
	"nbformat": 4,
	"nbformat_minor": 5,
	"metadata": {"language_info": {"name": "python"}},
	"cells": [
		{"cell_type": "raw", "metadata": {}, "source": "---\ntitle: Folded Post\n---"},
		{"cell_type": "markdown", "metadata": {}, "source": "# Overview\nprose"},
		{"cell_type": "code", "metadata": {}, "execution_count": 1, "source": "#| code-fold: hide\nsetup()", "outputs": [
			{"output_type": "stream", "name": "stdout", "text": "ready\n"}
		]}
	]
}`

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// syncEnv builds the full environment and syncs after writing files.
func syncEnv(t *testing.T, files map[string]string) http.Handler {
	t.Helper()
	dir, store := testutil.TestContent(t)
	db := testutil.TestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for rel, body := range files {
		testutil.WriteContent(t, dir, rel, body)
	}
	if err := index.Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	svc := postservice.NewService(store, db, logger)
	h, err := NewHandler(svc, Info{Title: "My Blog", Author: "Spencer"}, logger)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return NewRouter(h, nil)
}

func TestHome(t *testing.T) {
	router := syncEnv(t, map[string]string{
		"first-post.md": "---\ntitle: First Post\nfeatured: true\ncategories: [go]\n---\nhello",
		"second.md":     "---\ntitle: Second\n---\nworld",
	})

	w := get(router, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"My Blog", "First Post", "Second", "Featured", `href="/posts/first-post"`} {
		if !strings.Contains(body, want) {
			t.Errorf("home missing %q", want)
		}
	}
}

func TestHome_CategoryFilter(t *testing.T) {
	router := syncEnv(t, map[string]string{
		"a.md": "---\ntitle: Alpha\ncategories: [go]\n---\nx",
		"b.md": "---\ntitle: Beta\ncategories: [stats]\n---\ny",
	})

	body := get(router, "/?category=go").Body.String()
	if !strings.Contains(body, "Alpha") {
		t.Error("filtered post missing")
	}
	if strings.Contains(body, `href="/posts/b"`) {
		t.Error("post outside category should be filtered out")
	}
}

func TestPost_Markdown(t *testing.T) {
	router := syncEnv(t, map[string]string{
		"hello.md": "---\ntitle: Hello\n---\nSome **bold** prose.",
	})

	w := get(router, "/posts/hello")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<strong>bold</strong>") {
		t.Errorf("markdown body missing: %q", body)
	}
	if !strings.Contains(body, "<h1>Hello</h1>") {
		t.Errorf("title heading missing")
	}
}

func TestPost_NotebookFoldedCode(t *testing.T) {
	router := syncEnv(t, map[string]string{"folded.ipynb": foldedNotebook})

	body := get(router, "/posts/folded").Body.String()
	// Folded code renders inside a closed disclosure; the output still shows.
	if !strings.Contains(body, "<details class=\"cell-code\">") {
		t.Errorf("folded cell should render a closed disclosure: %q", body)
	}
	if !strings.Contains(body, "ready") {
		t.Error("output section missing")
	}

	// ?code=show overwrites every cell's visibility.
	shown := get(router, "/posts/folded?code=show").Body.String()
	if !strings.Contains(shown, "<details class=\"cell-code\" open>") {
		t.Errorf("code=show should open the disclosure: %q", shown)
	}
}

func TestPost_MarkdownCellFrontMatterNotRendered(t *testing.T) {
	nb := `{
		"nbformat": 4,
		"nbformat_minor": 5,
		"metadata": {},
		"cells": [
			{"cell_type": "markdown", "metadata": {}, "source": "---\ntitle: Quiet Title\nauthor: Someone\n---\n# Real Heading"}
		]
	}`
	router := syncEnv(t, map[string]string{"quiet.ipynb": nb})

	body := get(router, "/posts/quiet").Body.String()
	if !strings.Contains(body, "Real Heading") {
		t.Errorf("cell body missing: %q", body)
	}
	// The front matter feeds the title heading only, never the page body.
	if strings.Contains(body, "author: Someone") {
		t.Errorf("front matter leaked into page content: %q", body)
	}
}

func TestPost_OutputHidden(t *testing.T) {
	router := syncEnv(t, map[string]string{"folded.ipynb": foldedNotebook})

	body := get(router, "/posts/folded?output=hide").Body.String()
	if strings.Contains(body, "ready") {
		t.Error("output=hide should suppress output sections")
	}
}

func TestPost_NotFound(t *testing.T) {
	router := syncEnv(t, nil)
	w := get(router, "/posts/missing")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Post not found") {
		t.Error("error page missing")
	}
}

func TestApp_IframeAndRaw(t *testing.T) {
	router := syncEnv(t, map[string]string{
		"board.html": "<html><head><title>Board</title></head><body><script>go()</script></body></html>",
	})

	page := get(router, "/posts/board")
	if page.Code != http.StatusOK {
		t.Fatalf("status = %d", page.Code)
	}
	if !strings.Contains(page.Body.String(), `src="/apps/board"`) {
		t.Errorf("app page should embed an iframe: %q", page.Body.String())
	}
	if !strings.Contains(page.Body.String(), "sandbox=") {
		t.Error("app iframe should be sandboxed")
	}

	raw := get(router, "/apps/board")
	if raw.Code != http.StatusOK {
		t.Fatalf("raw status = %d", raw.Code)
	}
	if !strings.Contains(raw.Body.String(), "<script>go()</script>") {
		t.Error("raw app bytes should be served verbatim")
	}
}

func TestSearchPage(t *testing.T) {
	router := syncEnv(t, map[string]string{
		"a.md": "---\ntitle: Alpha\n---\nthe zebra crossed",
	})

	body := get(router, "/search?q=zebra").Body.String()
	if !strings.Contains(body, `href="/posts/a"`) {
		t.Errorf("search result missing: %q", body)
	}

	empty := get(router, "/search").Body.String()
	if !strings.Contains(empty, "<form") {
		t.Error("empty search should still show the form")
	}
}

func TestAPIPosts(t *testing.T) {
	router := syncEnv(t, map[string]string{
		"a.md": "---\ntitle: Alpha\ndate: 2026-01-01\n---\nx",
	})

	w := get(router, "/api/posts")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Posts []postservice.PostListItem `json:"posts"`
		Total int                        `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 1 || len(resp.Posts) != 1 || resp.Posts[0].Slug != "a" {
		t.Errorf("resp = %+v", resp)
	}

	one := get(router, "/api/posts/a")
	if one.Code != http.StatusOK {
		t.Fatalf("single status = %d", one.Code)
	}
	var meta map[string]any
	_ = json.Unmarshal(one.Body.Bytes(), &meta)
	if meta["title"] != "Alpha" {
		t.Errorf("meta = %v", meta)
	}

	missing := get(router, "/api/posts/none")
	if missing.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", missing.Code)
	}
}

func TestAPISearch(t *testing.T) {
	router := syncEnv(t, map[string]string{
		"a.md": "---\ntitle: Alpha\n---\nfindme here",
	})

	w := get(router, "/api/search?q=findme")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"Slug":"a"`) {
		t.Errorf("body = %s", w.Body.String())
	}

	bad := get(router, "/api/search")
	if bad.Code != http.StatusBadRequest {
		t.Errorf("missing q should 400, got %d", bad.Code)
	}
}

func TestHealthAndStatic(t *testing.T) {
	router := syncEnv(t, nil)
	if w := get(router, "/health/live"); w.Code != http.StatusOK {
		t.Errorf("live = %d", w.Code)
	}
	if w := get(router, "/health/ready"); w.Code != http.StatusOK {
		t.Errorf("ready = %d", w.Code)
	}
	w := get(router, "/static/site.css")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "interactive-table") {
		t.Errorf("static css = %d", w.Code)
	}
}
