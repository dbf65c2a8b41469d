// Package site implements the public HTTP surface: rendered pages, the JSON
// API, and static assets.
package site

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/justmytwospence/blog/internal/apperr"
	"github.com/justmytwospence/blog/internal/content"
	"github.com/justmytwospence/blog/internal/index"
	"github.com/justmytwospence/blog/internal/postservice"
)

// Info is the site-wide display metadata rendered into every page.
type Info struct {
	Title       string
	Author      string
	Description string
	BaseURL     string
}

// Handler holds the site's route handlers.
type Handler struct {
	svc    *postservice.Service
	tmpl   *template.Template
	site   Info
	logger *slog.Logger
}

// NewHandler creates a Handler with the embedded templates parsed.
func NewHandler(svc *postservice.Service, site Info, logger *slog.Logger) (*Handler, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	return &Handler{svc: svc, tmpl: tmpl, site: site, logger: logger}, nil
}

type homeData struct {
	Site       Info
	Title      string
	Featured   []postservice.PostListItem
	Posts      []postservice.PostListItem
	Categories []string
	Category   string
}

type postData struct {
	Site  Info
	Title string
	Page  *postservice.Page
}

type searchData struct {
	Site    Info
	Title   string
	Query   string
	Results []index.SearchResult
}

type errorData struct {
	Site     Info
	Title    string
	Heading  string
	Message  string
	RetryURL string
}

// render executes a page template into a buffer first so a template failure
// never leaks a half-written page.
func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("template render failed", slog.String("template", name), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) renderError(w http.ResponseWriter, status int, heading, message, retryURL string) {
	h.render(w, status, "error.tmpl", errorData{
		Site:     h.site,
		Title:    heading,
		Heading:  heading,
		Message:  message,
		RetryURL: retryURL,
	})
}

// Home handles GET / with an optional ?category= filter.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	posts, _, err := h.svc.ListPosts(r.Context(), 50, 0, category, "")
	if err != nil {
		h.logger.Error("list posts failed", slog.String("error", err.Error()))
		h.renderError(w, http.StatusInternalServerError, "Something went wrong", "The post list could not be loaded.", r.URL.String())
		return
	}
	categories, err := h.svc.Categories(r.Context())
	if err != nil {
		h.logger.Error("categories failed", slog.String("error", err.Error()))
	}

	data := homeData{
		Site:       h.site,
		Posts:      posts,
		Categories: categories,
		Category:   category,
	}
	if category == "" {
		if featured, err := h.svc.Featured(r.Context(), 5); err == nil {
			data.Featured = featured
		}
	}
	h.render(w, http.StatusOK, "home.tmpl", data)
}

// Post handles GET /posts/{slug}. Query parameters override the rendered
// document's seeded visibility state: ?code=show|hide and ?output=show|hide
// overwrite every cell, ?ln=on|off sets line numbers document-wide.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	page, err := h.svc.GetPage(r.Context(), slug)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			h.renderError(w, http.StatusNotFound, "Post not found", "There is no post at this address.", "")
			return
		}
		h.logger.Error("render page failed", slog.String("slug", slug), slog.String("error", err.Error()))
		h.renderError(w, http.StatusInternalServerError, "This post failed to render",
			"Something went wrong while preparing the page.", r.URL.String())
		return
	}

	if page.Doc != nil {
		applyViewParams(page, r)
	}

	name := "post.tmpl"
	if page.Kind == content.KindApp {
		name = "app.tmpl"
	}
	h.render(w, http.StatusOK, name, postData{Site: h.site, Title: page.Meta.Title, Page: page})
}

// applyViewParams maps the view query parameters onto the document's
// visibility state.
func applyViewParams(page *postservice.Page, r *http.Request) {
	q := r.URL.Query()
	switch q.Get("code") {
	case "show":
		page.Doc.SetAllCode(true)
	case "hide":
		page.Doc.SetAllCode(false)
	}
	switch q.Get("output") {
	case "show":
		page.Doc.SetAllOutput(true)
	case "hide":
		page.Doc.SetAllOutput(false)
	}
	switch q.Get("ln") {
	case "on":
		page.Doc.SetLineNumbers(true)
	case "off":
		page.Doc.SetLineNumbers(false)
	}
}

// AppRaw handles GET /apps/{slug}, serving a self-contained interactive page
// verbatim. The page is shown inside a sandboxed iframe by the post view.
func (h *Handler) AppRaw(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	data, err := h.svc.AppBytes(r.Context(), slug)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrUnsupportedKind) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("app read failed", slog.String("slug", slug), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

// SearchPage handles GET /search.
func (h *Handler) SearchPage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	data := searchData{Site: h.site, Title: "Search", Query: query}
	if query != "" {
		results, err := h.svc.Search(r.Context(), query, 20)
		if err != nil {
			h.logger.Error("search failed", slog.String("query", query), slog.String("error", err.Error()))
			h.renderError(w, http.StatusInternalServerError, "Search failed", "The search could not be completed.", r.URL.String())
			return
		}
		data.Results = results
	}
	h.render(w, http.StatusOK, "search.tmpl", data)
}

// APIListPosts handles GET /api/posts.
func (h *Handler) APIListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	category := q.Get("category")
	sort := q.Get("sort")

	items, total, err := h.svc.ListPosts(r.Context(), limit, offset, category, sort)
	if err != nil {
		h.logger.Error("api list posts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"posts": items,
		"total": total,
	})
}

// APIGetPost handles GET /api/posts/{slug}.
func (h *Handler) APIGetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	page, err := h.svc.GetPage(r.Context(), slug)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			h.logger.Error("api get post failed", slog.String("slug", slug), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"slug":        page.Slug,
		"kind":        page.Kind,
		"title":       page.Meta.Title,
		"author":      page.Meta.Author,
		"date":        page.Meta.Date,
		"description": page.Meta.Description,
		"categories":  page.Meta.Categories,
		"featured":    page.Meta.Featured,
	})
}

// APISearch handles GET /api/search.
func (h *Handler) APISearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("api search failed", slog.String("query", query), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Healthz handles GET /health/live and /health/ready.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
