package main

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/shrine-timeline/timeline-web/internal/content"
	"github.com/shrine-timeline/timeline-web/internal/handlers"
	"github.com/shrine-timeline/timeline-web/internal/i18n"
	mw "github.com/shrine-timeline/timeline-web/internal/middleware"
	"github.com/shrine-timeline/timeline-web/internal/observability"
	"github.com/shrine-timeline/timeline-web/internal/pages"
	"github.com/shrine-timeline/timeline-web/internal/site"
	"github.com/shrine-timeline/timeline-web/internal/ui"
)

// app holds everything the router needs.
type app struct {
	site      site.Identity
	logger    *zap.Logger
	renderer  *renderer
	intros    *content.Client
	staticDir string // "" when the directory does not exist
}

type appConfig struct {
	siteFile     string
	templatesDir string
	staticDir    string
	contentDir   string
	dev          bool
}

func newApp(cfg appConfig, logger *zap.Logger) (*app, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	id, err := site.Load(cfg.siteFile, cfg.dev)
	if err != nil {
		return nil, err
	}
	bundle, err := i18n.Load(i18n.Embedded(), "en", nil)
	if err != nil {
		return nil, err
	}
	rd, err := newRenderer(ui.Templates(cfg.templatesDir), bundle, cfg.dev)
	if err != nil {
		return nil, err
	}
	intros := content.New(cfg.contentDir)
	if cfg.dev {
		intros.SetCacheDuration(0)
	}
	staticDir := cfg.staticDir
	if fi, err := os.Stat(staticDir); err != nil || !fi.IsDir() {
		if staticDir != "" {
			logger.Warn("static directory not found; images and icons will 404", zap.String("dir", staticDir))
		}
		staticDir = ""
	}
	return &app{site: id, logger: logger, renderer: rd, intros: intros, staticDir: staticDir}, nil
}

func (a *app) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if a.site.BasePath == "" {
		a.mount(r)
		return r
	}
	r.Route(a.site.BasePath, a.mount)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, a.site.Path("/"), http.StatusFound)
	})
	return r
}

// mount registers the site routes relative to the base path.
func (a *app) mount(r chi.Router) {
	for _, route := range pages.All() {
		r.Get(string(route), a.page(route))
	}

	bundled := http.StripPrefix(a.site.BasePath, mw.AssetsWithCache(ui.Static()))
	r.Handle("/_app/*", bundled)

	favicon := bundled
	if a.staticDir != "" {
		static := http.StripPrefix(a.site.BasePath, mw.AssetsWithCache(os.DirFS(a.staticDir)))
		r.Handle("/images/*", static)
		r.Handle("/icons/*", static)
		if _, err := os.Stat(filepath.Join(a.staticDir, "favicon.png")); err == nil {
			favicon = static
		}
	}
	r.Handle("/favicon.png", favicon)
}

func (a *app) page(route pages.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := handlers.BuildPageData(r.Context(), a.site, route, a.intros)
		if err != nil {
			observability.FromContext(r.Context()).Error("build page data", zap.String("route", string(route)), zap.Error(err))
			internalError(w, r)
			return
		}
		data.Lang = a.renderer.bundle.Fallback()
		if route == pages.Search {
			data.Query = r.URL.Query().Get("q")
		}
		a.renderer.render(w, r, data)
	}
}

// internalError answers 500 with the request id so a report can be matched to the
// log entry.
func internalError(w http.ResponseWriter, r *http.Request) {
	msg := "internal error"
	if rid, ok := mw.RequestID(r.Context()); ok {
		msg += " (request " + rid + ")"
	}
	http.Error(w, msg, http.StatusInternalServerError)
}
