package index

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/justmytwospence/blog/internal/content"
	"github.com/justmytwospence/blog/internal/notebook"
)

// Sync walks the content root and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store content.Provider, logger *slog.Logger) error {
	entries, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		disk[e.Path] = struct{}{}

		if checksums[e.Path] == e.Checksum {
			continue
		}

		data, err := store.Read(e.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", e.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexPost(db, e, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", e.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", e.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeletePost(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexPost extracts post metadata and searchable text from data and upserts
// the row.
func indexPost(db *DB, e content.Entry, data []byte) error {
	var meta notebook.Metadata
	var body string

	switch e.Kind {
	case content.KindNotebook:
		nb, err := notebook.Parse(data)
		if err != nil {
			return err
		}
		meta = notebook.ExtractMetadata(nb, e.Slug)
		body = notebookText(nb)
	case content.KindMarkdown:
		fm, rest := notebook.ParseFrontMatter(string(data))
		meta = notebook.MetadataFromFrontMatter(fm, e.Slug)
		body = rest
	default:
		meta = notebook.MetadataFromFrontMatter(nil, e.Slug)
		if t := htmlTitle(string(data)); t != "" {
			meta.Title = t
		}
	}

	row := PostRow{
		Path:        e.Path,
		Slug:        e.Slug,
		Kind:        e.Kind,
		Title:       meta.Title,
		Description: meta.Description,
		Date:        meta.Date,
		Categories:  meta.Categories,
		Featured:    meta.Featured,
		Checksum:    e.Checksum,
		UpdatedAt:   e.UpdatedAt,
	}
	return db.UpsertPost(row, body)
}

// notebookText collects the prose of a notebook for full-text search: markdown
// cell sources, skipping raw and code cells.
func notebookText(nb *notebook.Notebook) string {
	var b strings.Builder
	for _, cell := range nb.Cells {
		if cell.Type != notebook.CellMarkdown {
			continue
		}
		b.WriteString(cell.Source.String())
		b.WriteString("\n\n")
	}
	return b.String()
}

var htmlTitleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

func htmlTitle(doc string) string {
	m := htmlTitleRe.FindStringSubmatch(doc)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
