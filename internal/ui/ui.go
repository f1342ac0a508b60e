// Package ui ships the page templates and the client assets served under /_app/.
package ui

import (
	"embed"
	"io/fs"
	"os"
	"strings"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

//go:embed static/_app/* static/favicon.png
var staticFS embed.FS

// Templates returns the template tree. A non-empty dir reads from disk instead of
// the embedded copy, so templates can be edited without rebuilding.
func Templates(dir string) fs.FS {
	if strings.TrimSpace(dir) != "" {
		return os.DirFS(dir)
	}
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Static returns the bundled client assets: "_app/app.css", "_app/shortcuts.js" and
// a default "favicon.png".
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
