// Package content loads the markdown intro shown at the top of each view. Intros
// carry YAML front matter whose seo block can override the route's metadata.
package content

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no intro exists for a slug.
var ErrNotFound = errors.New("content: not found")

//go:embed defaults/*.md
var defaultFS embed.FS

// Page is a rendered intro.
type Page struct {
	Slug    string
	Title   string
	Summary string
	Body    template.HTML
	SEO     SEO
}

// SEO holds optional metadata overrides.
type SEO struct {
	Title       string
	Description string
	OGImage     string
}

type frontMatter struct {
	Title   string         `yaml:"title"`
	Summary string         `yaml:"summary"`
	SEO     frontMatterSEO `yaml:"seo"`
}

type frontMatterSEO struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	OGImage     string `yaml:"og_image"`
}

const defaultCacheTTL = 5 * time.Minute

// Client resolves intros from an optional override directory, then the embedded
// defaults.
type Client struct {
	dir      string
	sources  []fs.FS
	md       goldmark.Markdown
	policy   *bluemonday.Policy
	cacheTTL time.Duration

	mu    sync.RWMutex
	items map[string]cacheEntry
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

// New returns a client. dir may be empty to use only the embedded intros.
func New(dir string) *Client {
	c := &Client{
		dir:      strings.TrimSpace(dir),
		md:       goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Typographer)),
		policy:   bluemonday.UGCPolicy(),
		cacheTTL: defaultCacheTTL,
		items:    map[string]cacheEntry{},
	}
	if c.dir != "" {
		c.sources = append(c.sources, os.DirFS(c.dir))
	}
	sub, err := fs.Sub(defaultFS, "defaults")
	if err == nil {
		c.sources = append(c.sources, sub)
	}
	return c
}

// Dir returns the override directory, if any.
func (c *Client) Dir() string { return c.dir }

// SetCacheDuration overrides the in-memory cache duration. Zero disables caching.
func (c *Client) SetCacheDuration(d time.Duration) {
	c.mu.Lock()
	c.cacheTTL = d
	c.mu.Unlock()
}

// Invalidate drops every cached intro.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.items = map[string]cacheEntry{}
	c.mu.Unlock()
}

// Get returns the intro for slug ("" or "home" for the landing page).
func (c *Client) Get(ctx context.Context, slug string) (Page, error) {
	slug, ok := sanitizeSlug(slug)
	if !ok {
		return Page{}, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if page, ok := c.cached(slug); ok {
		return page, nil
	}
	page, err := c.load(slug)
	if err != nil {
		return Page{}, err
	}
	c.store(slug, page)
	return page, nil
}

func (c *Client) load(slug string) (Page, error) {
	for _, src := range c.sources {
		data, err := fs.ReadFile(src, slug+".md")
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Page{}, fmt.Errorf("content: read %s: %w", slug, err)
		}
		return c.parse(slug, data)
	}
	return Page{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
}

func (c *Client) parse(slug string, data []byte) (Page, error) {
	fm, body := splitFrontMatter(string(data))
	front := frontMatter{}
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("content: parse front matter %s: %w", slug, err)
		}
	}
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(body), &buf); err != nil {
		return Page{}, fmt.Errorf("content: render %s: %w", slug, err)
	}
	page := Page{
		Slug:    slug,
		Title:   strings.TrimSpace(front.Title),
		Summary: strings.TrimSpace(front.Summary),
		Body:    template.HTML(c.policy.SanitizeBytes(buf.Bytes())),
		SEO: SEO{
			Title:       strings.TrimSpace(front.SEO.Title),
			Description: strings.TrimSpace(front.SEO.Description),
			OGImage:     strings.TrimSpace(front.SEO.OGImage),
		},
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}
	return page, nil
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func (c *Client) cached(slug string) (Page, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.items[slug]
	if !ok || time.Now().After(entry.expires) {
		return Page{}, false
	}
	return entry.page, true
}

func (c *Client) store(slug string, page Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cacheTTL <= 0 {
		return
	}
	c.items[slug] = cacheEntry{page: page, expires: time.Now().Add(c.cacheTTL)}
}

func prettifySlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(part)
		if runes[0] >= 'a' && runes[0] <= 'z' {
			runes[0] -= 'a' - 'A'
		}
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}

func sanitizeSlug(slug string) (string, bool) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	slug = strings.Trim(slug, "/")
	if slug == "" {
		return "home", true
	}
	if strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return slug, false
	}
	return slug, true
}
