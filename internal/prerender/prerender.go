// Package prerender renders every route of the site through its HTTP handler and
// writes the responses as static files, following links the way a crawler would.
package prerender

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/shrine-timeline/timeline-web/internal/site"
)

// HTTPError describes a non-success response met while crawling.
type HTTPError struct {
	Status   int
	Path     string
	Referrer string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%d %s", e.Status, e.Path)
	if e.Referrer != "" {
		msg += " (linked from " + e.Referrer + ")"
	}
	return msg
}

// ErrorHandler decides what happens to a failed response: returning nil tolerates
// it, returning an error aborts the build.
type ErrorHandler func(*HTTPError) error

// StaticAssetPolicy tolerates 404s for files under the static image and icon
// directories (with or without the base path) and logs them as warnings. Any
// other failure is fatal.
func StaticAssetPolicy(id site.Identity, logger *zap.Logger) ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(e *HTTPError) error {
		if e.Status == http.StatusNotFound && id.StaticAsset(e.Path) {
			logger.Warn("missing static asset", zap.String("path", e.Path), zap.String("referrer", e.Referrer))
			return nil
		}
		return e
	}
}

// Builder prerenders a site.
type Builder struct {
	Handler     http.Handler
	Site        site.Identity
	OutDir      string
	StaticDir   string   // copied verbatim into OutDir when set
	Entries     []string // route paths relative to the base path
	Concurrency int
	Logger      *zap.Logger
	OnHTTPError ErrorHandler
}

// Report summarises a build.
type Report struct {
	Written   []string // output files relative to OutDir
	Tolerated []HTTPError
}

type job struct {
	path     string // request path including the base path
	referrer string
}

type page struct {
	file  string
	links []job
}

// Run crawls from the entries breadth first and writes every response. The first
// fatal error cancels the remaining work and is returned.
func (b *Builder) Run(ctx context.Context) (Report, error) {
	if b.Handler == nil {
		return Report{}, errors.New("prerender: nil handler")
	}
	if strings.TrimSpace(b.OutDir) == "" {
		return Report{}, errors.New("prerender: empty output directory")
	}
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	onErr := b.OnHTTPError
	if onErr == nil {
		onErr = StaticAssetPolicy(b.Site, logger)
	}
	limit := b.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	var report Report
	if b.StaticDir != "" {
		copied, err := copyTree(b.StaticDir, b.OutDir)
		if err != nil {
			return Report{}, fmt.Errorf("prerender: copy static: %w", err)
		}
		report.Written = append(report.Written, copied...)
	}

	var (
		mu    sync.Mutex
		seen  = map[string]struct{}{}
		level []job
	)
	entries := b.Entries
	if len(entries) == 0 {
		entries = []string{"/"}
	}
	for _, e := range entries {
		p := b.Site.Path(e)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		level = append(level, job{path: p})
	}

	for len(level) > 0 {
		var next []job
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for _, j := range level {
			j := j
			g.Go(func() error {
				pg, herr, err := b.visit(gctx, j)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				if herr != nil {
					if err := onErr(herr); err != nil {
						return fmt.Errorf("prerender %s: %w", j.path, err)
					}
					report.Tolerated = append(report.Tolerated, *herr)
					return nil
				}
				report.Written = append(report.Written, pg.file)
				for _, l := range pg.links {
					if _, ok := seen[l.path]; ok {
						continue
					}
					seen[l.path] = struct{}{}
					next = append(next, l)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return report, err
		}
		level = next
	}

	sort.Strings(report.Written)
	logger.Info("prerender complete",
		zap.Int("files", len(report.Written)),
		zap.Int("tolerated", len(report.Tolerated)),
		zap.String("out", b.OutDir),
	)
	return report, nil
}

func (b *Builder) visit(ctx context.Context, j job) (page, *HTTPError, error) {
	if err := ctx.Err(); err != nil {
		return page{}, nil, err
	}
	req := httptest.NewRequest(http.MethodGet, j.path, nil).WithContext(ctx)
	if j.referrer != "" {
		req.Header.Set("Referer", j.referrer)
	}
	rec := httptest.NewRecorder()
	b.Handler.ServeHTTP(rec, req)
	res := rec.Result()
	defer res.Body.Close()

	if res.StatusCode >= 300 && res.StatusCode < 400 {
		if loc := res.Header.Get("Location"); loc != "" {
			if l, ok := b.resolve(j.path, loc); ok {
				return page{links: []job{{path: l, referrer: j.path}}}, nil, nil
			}
		}
		return page{}, nil, nil
	}
	if res.StatusCode >= 400 {
		return page{}, &HTTPError{Status: res.StatusCode, Path: j.path, Referrer: j.referrer}, nil
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return page{}, nil, err
	}
	isHTML := isHTMLResponse(res.Header.Get("Content-Type"))
	file, err := b.outputFile(j.path, isHTML)
	if err != nil {
		return page{}, nil, err
	}
	dst := filepath.Join(b.OutDir, filepath.FromSlash(file))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return page{}, nil, err
	}
	if err := os.WriteFile(dst, body, 0o644); err != nil {
		return page{}, nil, err
	}

	pg := page{file: file}
	if isHTML {
		for _, ref := range extractLinks(body) {
			if l, ok := b.resolve(j.path, ref); ok {
				pg.links = append(pg.links, job{path: l, referrer: j.path})
			}
		}
	}
	return pg, nil, nil
}

// resolve turns a reference found on page into a crawlable request path. Links
// leaving the site or the base path are dropped.
func (b *Builder) resolve(pagePath, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	base := &url.URL{Path: pagePath}
	resolved := base.ResolveReference(u)
	p := resolved.Path
	if p == "" {
		return "", false
	}
	// static assets referenced without the base path are still requested so that
	// the error policy gets to see them
	if _, ok := b.Site.Strip(p); !ok && !b.Site.StaticAsset(p) {
		return "", false
	}
	return p, true
}

// outputFile maps a request path to a file under OutDir: "/" becomes index.html,
// "/books" becomes books.html, assets keep their path.
func (b *Builder) outputFile(reqPath string, isHTML bool) (string, error) {
	rel, ok := b.Site.Strip(reqPath)
	if !ok {
		return "", fmt.Errorf("prerender: %s outside base path", reqPath)
	}
	rel = path.Clean(rel)
	if strings.Contains(rel, "..") {
		return "", fmt.Errorf("prerender: unsafe path %s", reqPath)
	}
	rel = strings.TrimPrefix(rel, "/")
	switch {
	case rel == "" || rel == ".":
		return "index.html", nil
	case strings.HasSuffix(reqPath, "/") && isHTML:
		return rel + "/index.html", nil
	case isHTML && path.Ext(rel) == "":
		return rel + ".html", nil
	}
	return rel, nil
}

func isHTMLResponse(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "text/html"
}

var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"script": "src",
	"img":    "src",
}

func extractLinks(body []byte) []string {
	var out []string
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return out
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			want, ok := linkAttrs[tok.Data]
			if !ok {
				continue
			}
			var rel string
			var ref string
			for _, a := range tok.Attr {
				switch a.Key {
				case want:
					ref = a.Val
				case "rel":
					rel = a.Val
				}
			}
			// canonical and alternate links describe the page, they are not assets
			if tok.Data == "link" && (rel == "canonical" || rel == "alternate") {
				continue
			}
			if ref != "" {
				out = append(out, ref)
			}
		}
	}
}

func copyTree(src, dst string) ([]string, error) {
	var written []string
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if err := copyFile(p, target); err != nil {
			return err
		}
		written = append(written, filepath.ToSlash(rel))
		return nil
	})
	return written, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
