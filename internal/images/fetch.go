package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Entry is one dataset record that owns an image.
type Entry struct {
	Title  string // person name, book or artwork title
	Author string // books only; enables the Open Library lookup
	Image  string // site path, e.g. "/images/people/plato.jpg"
}

type manifestRecord struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Image  string `json:"image"`
}

// LoadManifest reads a dataset file (people.json, books.json, artworks.json): a JSON
// array of objects carrying "name" or "title", an optional "author", and "image".
// Records without an image are skipped.
func LoadManifest(file string) ([]Entry, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("images: read %s: %w", file, err)
	}
	var records []manifestRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("images: parse %s: %w", file, err)
	}
	out := make([]Entry, 0, len(records))
	for _, r := range records {
		title := strings.TrimSpace(r.Title)
		if n := strings.TrimSpace(r.Name); n != "" {
			title = n
		}
		if title == "" || strings.TrimSpace(r.Image) == "" {
			continue
		}
		out = append(out, Entry{Title: title, Author: strings.TrimSpace(r.Author), Image: strings.TrimSpace(r.Image)})
	}
	return out, nil
}

// Overrides patch lookups that the plain title gets wrong.
type Overrides struct {
	// Titles maps a dataset title to an unambiguous Wikipedia title or a Wikidata id.
	Titles map[string]string `yaml:"titles"`
	// URLs maps a dataset title to a direct image URL, skipping every lookup.
	URLs map[string]string `yaml:"urls"`
}

// LoadOverrides reads an overrides YAML file. An empty path yields no overrides.
func LoadOverrides(file string) (Overrides, error) {
	var o Overrides
	if strings.TrimSpace(file) == "" {
		return o, nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return o, fmt.Errorf("images: read %s: %w", file, err)
	}
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return o, fmt.Errorf("images: parse %s: %w", file, err)
	}
	return o, nil
}

var qidPattern = regexp.MustCompile(`^Q[0-9]+$`)

// Result counts what a run did.
type Result struct {
	Saved   int
	Skipped int // already on disk
	Failed  int
}

// Fetcher downloads missing images under Dir, the static directory the site serves
// /images/ from.
type Fetcher struct {
	Client      *Client
	Dir         string
	Overrides   Overrides
	Concurrency int
	Delay       time.Duration // pause after each upstream download, per worker
	Logger      *zap.Logger
}

// Run fetches every entry. Per-entry failures are logged and counted; only a
// cancelled context or a bad configuration returns an error.
func (f *Fetcher) Run(ctx context.Context, entries []Entry) (Result, error) {
	if f.Client == nil {
		return Result{}, errors.New("images: nil client")
	}
	if strings.TrimSpace(f.Dir) == "" {
		return Result{}, errors.New("images: empty static directory")
	}
	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := f.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	var (
		mu  sync.Mutex
		res Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, e := range entries {
		e := e
		g.Go(func() error {
			saved, err := f.fetch(gctx, e)
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Failed++
				logger.Warn("image fetch failed", zap.String("title", e.Title), zap.String("image", e.Image), zap.Error(err))
			case saved:
				res.Saved++
				logger.Info("image downloaded", zap.String("title", e.Title), zap.String("image", e.Image))
			default:
				res.Skipped++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	logger.Info("image fetch complete",
		zap.Int("saved", res.Saved),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// fetch reports whether it wrote a file. Existing files are left alone.
func (f *Fetcher) fetch(ctx context.Context, e Entry) (bool, error) {
	dst, err := f.destination(e.Image)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(dst); err == nil {
		return false, nil
	}
	src, err := f.source(ctx, e)
	if err != nil {
		return false, err
	}
	if err := f.save(ctx, src, dst); err != nil {
		return false, err
	}
	if f.Delay > 0 {
		t := time.NewTimer(f.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
	return true, nil
}

// source picks the image URL: a direct override, then Open Library for books,
// then Wikipedia → Wikidata P18 → Commons.
func (f *Fetcher) source(ctx context.Context, e Entry) (string, error) {
	if u := f.Overrides.URLs[e.Title]; u != "" {
		return u, nil
	}
	if e.Author != "" {
		u, err := f.Client.CoverURL(ctx, e.Title, e.Author)
		if err == nil {
			return u, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	lookup := e.Title
	if o := f.Overrides.Titles[e.Title]; o != "" {
		lookup = o
	}
	qid := lookup
	if !qidPattern.MatchString(lookup) {
		id, err := f.Client.WikidataID(ctx, lookup)
		if err != nil {
			return "", err
		}
		qid = id
	}
	file, err := f.Client.ImageFile(ctx, qid)
	if err != nil {
		return "", err
	}
	return f.Client.CommonsURL(file), nil
}

// destination maps "/images/people/plato.jpg" to a file under Dir. Paths outside
// the images tree are rejected.
func (f *Fetcher) destination(image string) (string, error) {
	rel := path.Clean("/" + strings.TrimSpace(image))
	if !strings.HasPrefix(rel, "/images/") {
		return "", fmt.Errorf("images: %q is not under /images/", image)
	}
	return filepath.Join(f.Dir, filepath.FromSlash(strings.TrimPrefix(rel, "/"))), nil
}

// save writes through a temporary file; dst only appears once the download has
// completed.
func (f *Fetcher) save(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".fetch-*")
	if err != nil {
		return err
	}
	if err := f.Client.Download(ctx, src, tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
