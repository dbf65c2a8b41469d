package content

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/justmytwospence/blog/internal/checksum"
)

// Store implements Provider backed by the local file system.
type Store struct {
	root string // absolute path to the content directory
}

// NewStore creates a Store rooted at the given directory.
// The directory must already exist.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("content: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("content: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content: root is not a directory: %s", abs)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute content root.
func (s *Store) Root() string { return s.root }

// KindFor maps a file name to its post kind; ok is false for files that are
// not publishable content.
func KindFor(name string) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".qmd":
		return KindMarkdown, true
	case ".ipynb":
		return KindNotebook, true
	case ".html":
		return KindApp, true
	default:
		return "", false
	}
}

// SlugFor derives the URL slug from a content-relative path.
func SlugFor(rel string) string {
	base := filepath.Base(rel)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// safePath resolves a relative path against the content root and rejects
// any result that escapes it (directory traversal).
func (s *Store) safePath(rel string) (string, error) {
	if rel == "" {
		return s.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("content: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(s.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("content: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) && abs != s.root {
		return "", fmt.Errorf("content: path escapes content root: %s", rel)
	}
	return abs, nil
}

// List walks dir (relative to root) and returns metadata for every
// publishable file. Dotfiles and hidden directories are skipped.
func (s *Store) List(dir string) ([]Entry, error) {
	base, err := s.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []Entry
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if strings.HasPrefix(d.Name(), ".") && p != base {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		kind, ok := KindFor(d.Name())
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(s.root, p)
		out = append(out, Entry{
			Path:      rel,
			Slug:      SlugFor(rel),
			Kind:      kind,
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("content: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a content file.
func (s *Store) Read(path string) ([]byte, error) {
	abs, err := s.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", path, err)
	}
	return data, nil
}
