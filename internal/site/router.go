package site

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all site routes mounted.
// events, if non-nil, is mounted at GET /events for live updates.
func NewRouter(h *Handler, events http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogger(h.logger))

	// Rendered pages.
	r.Get("/", h.Home)
	r.Get("/posts/{slug}", h.Post)
	r.Get("/apps/{slug}", h.AppRaw)
	r.Get("/search", h.SearchPage)

	// JSON API.
	r.Get("/api/posts", h.APIListPosts)
	r.Get("/api/posts/{slug}", h.APIGetPost)
	r.Get("/api/search", h.APISearch)

	// Health probes.
	r.Get("/health/live", h.Healthz)
	r.Get("/health/ready", h.Healthz)

	// Static assets.
	r.Handle("/static/*", staticHandler())

	// SSE endpoint.
	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}

// requestLogger logs one line per request at debug level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("duration", time.Since(start)))
		})
	}
}
