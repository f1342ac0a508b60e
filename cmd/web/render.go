package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"github.com/shrine-timeline/timeline-web/internal/i18n"
)

// renderer executes the base layout. In dev mode, templates are reparsed on each
// request.
type renderer struct {
	fsys   fs.FS
	dev    bool
	bundle *i18n.Bundle

	mu    sync.Mutex
	cache *template.Template
}

func newRenderer(fsys fs.FS, bundle *i18n.Bundle, dev bool) (*renderer, error) {
	rd := &renderer{fsys: fsys, dev: dev, bundle: bundle}
	if !dev {
		// Parse templates once in production
		tc, err := rd.parseTemplates()
		if err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
		rd.cache = tc
	}
	return rd, nil
}

func (rd *renderer) parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"t": func(key string) string { return rd.bundle.T(rd.bundle.Fallback(), key) },
	}
	var files []string
	if err := fs.WalkDir(rd.fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found")
	}
	return template.New("_root").Funcs(funcMap).ParseFS(rd.fsys, files...)
}

func (rd *renderer) templates() (*template.Template, error) {
	if rd.dev {
		return rd.parseTemplates()
	}
	rd.mu.Lock()
	defer rd.mu.Unlock()
	if rd.cache == nil {
		return nil, fmt.Errorf("template not initialized")
	}
	return rd.cache, nil
}

func (rd *renderer) render(w http.ResponseWriter, r *http.Request, data any) {
	t, err := rd.templates()
	if err != nil {
		http.Error(w, fmt.Sprintf("template parse error: %v", err), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		http.Error(w, fmt.Sprintf("template exec error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
