// Package testutil provides shared test helpers for setting up content
// directories and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/justmytwospence/blog/internal/content"
	"github.com/justmytwospence/blog/internal/index"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "blog-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestContent creates a temporary content directory with a content.Provider.
func TestContent(t *testing.T) (string, *content.Store) {
	t.Helper()
	contentDir := t.TempDir()
	store, err := content.NewStore(contentDir)
	if err != nil {
		t.Fatal(err)
	}
	return contentDir, store
}

// WriteContent writes a file under the content directory, creating parents.
func WriteContent(t *testing.T, dir, rel, body string) {
	t.Helper()
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}
