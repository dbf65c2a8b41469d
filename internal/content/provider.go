// Package content defines the content directory abstraction for post sources.
package content

import "time"

// Post source kinds, derived from the file extension.
const (
	KindMarkdown = "markdown" // .md, .qmd
	KindNotebook = "notebook" // .ipynb
	KindApp      = "app"      // .html, self-contained interactive pages
)

// Entry is the metadata of one publishable file under the content root.
type Entry struct {
	Path      string // relative to the content root
	Slug      string // URL slug, the base name without extension
	Kind      string
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for content file operations.
type Provider interface {
	// List returns metadata for every publishable file under dir (relative
	// to the content root).
	List(dir string) ([]Entry, error)
	// Read returns the raw bytes of the file at path (relative to the
	// content root).
	Read(path string) ([]byte, error)
}
