// Package postservice coordinates the content store, the index, and the
// renderer into page-level operations.
package postservice

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"time"

	"github.com/justmytwospence/blog/internal/apperr"
	"github.com/justmytwospence/blog/internal/content"
	"github.com/justmytwospence/blog/internal/index"
	"github.com/justmytwospence/blog/internal/notebook"
	"github.com/justmytwospence/blog/internal/render"
)

// Page is a fully rendered post ready for the site templates. Exactly one of
// Body (markdown posts), Doc (notebook posts), or AppURL (self-contained
// interactive pages) is populated.
type Page struct {
	Slug   string
	Kind   string
	Meta   notebook.Metadata
	Body   template.HTML
	Doc    *render.Document
	AppURL string
}

// PostListItem is a lightweight item in a list response.
type PostListItem struct {
	Slug        string    `json:"slug"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        string    `json:"date"`
	Categories  []string  `json:"categories"`
	Featured    bool      `json:"featured"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Service renders pages on demand; the index is the lookup layer, the content
// store stays the source of truth.
type Service struct {
	store    content.Provider
	db       index.PostIndex
	renderer *render.Renderer
	logger   *slog.Logger
}

// NewService creates a post service.
func NewService(store content.Provider, db index.PostIndex, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		db:       db,
		renderer: render.NewRenderer(logger),
		logger:   logger,
	}
}

// GetPage resolves a slug through the index, reads the source from the
// content store, and renders it.
func (s *Service) GetPage(_ context.Context, slug string) (*Page, error) {
	row, err := s.db.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if row.Kind == content.KindApp {
		return &Page{
			Slug:   slug,
			Kind:   row.Kind,
			Meta:   notebook.Metadata{Title: row.Title, Date: row.Date},
			AppURL: "/apps/" + slug,
		}, nil
	}

	data, err := s.store.Read(row.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	switch row.Kind {
	case content.KindNotebook:
		return s.renderNotebook(slug, data)
	case content.KindMarkdown:
		return s.renderMarkdown(slug, data)
	default:
		return nil, fmt.Errorf("postservice: %w: %s", apperr.ErrUnsupportedKind, row.Kind)
	}
}

// AppBytes returns the raw HTML of a self-contained interactive page.
func (s *Service) AppBytes(_ context.Context, slug string) ([]byte, error) {
	row, err := s.db.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if row.Kind != content.KindApp {
		return nil, fmt.Errorf("postservice: %w: %s is not an app", apperr.ErrUnsupportedKind, slug)
	}
	data, err := s.store.Read(row.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Service) renderNotebook(slug string, data []byte) (*Page, error) {
	nb, err := notebook.Parse(data)
	if err != nil {
		return nil, err
	}
	meta := notebook.ExtractMetadata(nb, slug)
	doc, err := render.CaptureDocument(s.logger, slug, func() *render.Document {
		return s.renderer.Render(nb, meta)
	})
	if err != nil {
		return nil, err
	}
	return &Page{Slug: slug, Kind: content.KindNotebook, Meta: meta, Doc: doc}, nil
}

func (s *Service) renderMarkdown(slug string, data []byte) (*Page, error) {
	fm, body := notebook.ParseFrontMatter(string(data))
	meta := notebook.MetadataFromFrontMatter(fm, slug)
	html := render.Capture(s.logger, render.ScopeDocument, slug, func() template.HTML {
		return render.RenderMarkdown(body, 0)
	})
	return &Page{Slug: slug, Kind: content.KindMarkdown, Meta: meta, Body: html}, nil
}

// ListPosts returns paginated posts with optional category filter.
func (s *Service) ListPosts(_ context.Context, limit, offset int, category, sort string) ([]PostListItem, int, error) {
	rows, total, err := s.db.ListPosts(limit, offset, category, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]PostListItem, len(rows))
	for i, r := range rows {
		items[i] = listItem(r)
	}
	return items, total, nil
}

// Featured returns the newest featured posts.
func (s *Service) Featured(_ context.Context, limit int) ([]PostListItem, error) {
	rows, err := s.db.Featured(limit)
	if err != nil {
		return nil, err
	}
	items := make([]PostListItem, len(rows))
	for i, r := range rows {
		items[i] = listItem(r)
	}
	return items, nil
}

// Categories returns every category in use.
func (s *Service) Categories(_ context.Context) ([]string, error) {
	cats, err := s.db.Categories()
	if err != nil {
		return nil, err
	}
	return nonNilSlice(cats), nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

func listItem(r index.PostRow) PostListItem {
	return PostListItem{
		Slug:        r.Slug,
		Kind:        r.Kind,
		Title:       r.Title,
		Description: r.Description,
		Date:        r.Date,
		Categories:  nonNilSlice(r.Categories),
		Featured:    r.Featured,
		UpdatedAt:   r.UpdatedAt,
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
