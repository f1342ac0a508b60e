package handlers

import (
	"context"
	"errors"
	"html/template"
	"sort"

	"github.com/shrine-timeline/timeline-web/internal/content"
	"github.com/shrine-timeline/timeline-web/internal/nav"
	"github.com/shrine-timeline/timeline-web/internal/pages"
	"github.com/shrine-timeline/timeline-web/internal/seo"
	"github.com/shrine-timeline/timeline-web/internal/site"
)

// PageData is the view model for every view rendered with the shared layout.
type PageData struct {
	Title string
	Lang  string
	Site  site.Identity
	Route pages.Route
	SEO   seo.Meta

	Path        string // relative to the base path
	Nav         []nav.RenderedItem
	Breadcrumbs []nav.Crumb

	// Shortcuts is the JSON table read by the browser keyboard listener.
	Shortcuts    template.JS
	ShortcutHelp []ShortcutHelp

	Intro content.Page
	Query string
}

// ShortcutHelp is one row of the keyboard help list. Href is empty when the key
// does nothing on the current page.
type ShortcutHelp struct {
	Key      string
	LabelKey string
	Href     string
}

// BuildPageData composes the view model for route. intros may be nil.
func BuildPageData(ctx context.Context, id site.Identity, route pages.Route, intros *content.Client) (PageData, error) {
	meta := pages.Resolve(route, id)

	var intro content.Page
	if intros != nil {
		p, err := intros.Get(ctx, route.Slug())
		switch {
		case err == nil:
			intro = p
			meta = applyOverrides(meta, id, p.SEO)
		case errors.Is(err, content.ErrNotFound):
		default:
			return PageData{}, err
		}
	}

	path := string(route)
	return PageData{
		Title:        meta.Title,
		Lang:         "en",
		Site:         id,
		Route:        route,
		SEO:          seo.Build(id, meta, path),
		Path:         path,
		Nav:          nav.Build(id.BasePath, path),
		Breadcrumbs:  nav.Breadcrumbs(id.BasePath, path),
		Shortcuts:    seo.Script(nav.Client(id.BasePath)),
		ShortcutHelp: shortcutHelp(id, path),
		Intro:        intro,
	}, nil
}

func applyOverrides(m pages.Metadata, id site.Identity, o content.SEO) pages.Metadata {
	if o.Title != "" {
		m.Title = o.Title
	}
	if o.Description != "" {
		m.Description = o.Description
	}
	if o.OGImage != "" {
		m.OGImage = id.Path(o.OGImage)
	}
	return m
}

// shortcutHelp presses every shortcut key on a window bound to the layout's
// keyboard controller and records where each one leads from path.
func shortcutHelp(id site.Identity, path string) []ShortcutHelp {
	var target string
	d := nav.NewDispatcher(id.BasePath, nav.NavigatorFunc(func(p string) { target = p }))
	c := nav.NewController(d, func() string { return id.Path(path) })
	w := nav.NewWindow()

	out := make([]ShortcutHelp, 0, len(nav.Main))
	_ = c.Scope(w, func() error {
		for _, it := range nav.Main {
			if it.Key == "" {
				continue
			}
			target = ""
			w.KeyDown(nav.KeyEvent{Key: it.Key, Target: &nav.Element{TagName: "BODY"}})
			out = append(out, ShortcutHelp{Key: it.Key, LabelKey: it.LabelKey, Href: target})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
