package content

import (
	"os"
	"path/filepath"
	"testing"
)

func tempContent(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, dir
}

func writeFile(t *testing.T, dir, rel, body string) {
	t.Helper()
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestKindFor(t *testing.T) {
	cases := []struct {
		name string
		kind string
		ok   bool
	}{
		{"post.md", KindMarkdown, true},
		{"post.qmd", KindMarkdown, true},
		{"analysis.ipynb", KindNotebook, true},
		{"dashboard.html", KindApp, true},
		{"Analysis.IPYNB", KindNotebook, true},
		{"notes.txt", "", false},
		{"data.csv", "", false},
	}
	for _, tc := range cases {
		kind, ok := KindFor(tc.name)
		if kind != tc.kind || ok != tc.ok {
			t.Errorf("KindFor(%q) = (%q, %v), want (%q, %v)", tc.name, kind, ok, tc.kind, tc.ok)
		}
	}
}

func TestSlugFor(t *testing.T) {
	if got := SlugFor("posts/my-cool-post.ipynb"); got != "my-cool-post" {
		t.Errorf("SlugFor = %q, want %q", got, "my-cool-post")
	}
}

func TestList(t *testing.T) {
	s, dir := tempContent(t)
	writeFile(t, dir, "a.md", "a")
	writeFile(t, dir, "sub/b.ipynb", "{}")
	writeFile(t, dir, "app.html", "<html></html>")
	writeFile(t, dir, "readme.txt", "not content")
	writeFile(t, dir, ".drafts/hidden.md", "draft")

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	byPath := map[string]Entry{}
	for _, e := range items {
		byPath[e.Path] = e
	}
	nb, ok := byPath[filepath.Join("sub", "b.ipynb")]
	if !ok {
		t.Fatal("nested notebook not listed")
	}
	if nb.Kind != KindNotebook || nb.Slug != "b" {
		t.Errorf("entry = %+v", nb)
	}
	if nb.Checksum == "" || nb.UpdatedAt.IsZero() {
		t.Errorf("entry metadata incomplete: %+v", nb)
	}
}

func TestRead(t *testing.T) {
	s, dir := tempContent(t)
	writeFile(t, dir, "post.md", "# Hello")
	got, err := s.Read("post.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "# Hello" {
		t.Errorf("content = %q", got)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s, _ := tempContent(t)
	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
	}
}

func TestNewStore_NonExistentDir(t *testing.T) {
	_, err := NewStore("/tmp/blog-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewStore_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "blog-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewStore(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
