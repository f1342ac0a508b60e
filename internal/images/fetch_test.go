package images

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// upstream fakes Wikipedia, Wikidata, Commons and Open Library on one server.
func upstream(t *testing.T, downloads *atomic.Int32) (*httptest.Server, Endpoints) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("titles") {
		case "Plato":
			_, _ = io.WriteString(w, `{"query":{"pages":{"13":{"pageprops":{"wikibase_item":"Q859"}}}}}`)
		case "Zeno of Elea":
			_, _ = io.WriteString(w, `{"query":{"pages":{"14":{"pageprops":{"wikibase_item":"Q47627"}}}}}`)
		case "Sapiens: A Brief History of Humankind":
			_, _ = io.WriteString(w, `{"query":{"pages":{"15":{"pageprops":{"wikibase_item":"Q7"}}}}}`)
		default:
			_, _ = io.WriteString(w, `{"query":{"pages":{"-1":{}}}}`)
		}
	})
	mux.HandleFunc("/entity/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/entity/Q859.json":
			_, _ = io.WriteString(w, `{"entities":{"Q859":{"claims":{"P18":[{"mainsnak":{"datavalue":{"value":"Plato Silanion Musei Capitolini MC1377.jpg"}}}]}}}}`)
		case "/entity/Q47627.json":
			_, _ = io.WriteString(w, `{"entities":{"Q47627":{"claims":{"P18":[{"mainsnak":{"datavalue":{"value":"Zeno.jpg"}}}]}}}}`)
		case "/entity/Q1.json":
			// merged item answers under its new id
			_, _ = io.WriteString(w, `{"entities":{"Q859":{"claims":{"P18":[{"mainsnak":{"datavalue":{"value":"Zeno.jpg"}}}]}}}}`)
		default:
			_, _ = io.WriteString(w, `{"entities":{"Q7":{"claims":{}}}}`)
		}
	})
	mux.HandleFunc("/commons/", func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		_, _ = io.WriteString(w, "commons:"+r.URL.Path)
	})
	mux.HandleFunc("/ol/search.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("author") == "Yuval Noah Harari" {
			_, _ = io.WriteString(w, `{"docs":[{"cover_i":42}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"docs":[]}`)
	})
	mux.HandleFunc("/covers/", func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		_, _ = io.WriteString(w, "cover:"+r.URL.Path)
	})
	mux.HandleFunc("/direct.jpg", func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		_, _ = io.WriteString(w, "direct")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, Endpoints{
		WikipediaAPI:      srv.URL + "/w/api.php",
		WikidataEntity:    srv.URL + "/entity/",
		CommonsFilePath:   srv.URL + "/commons/",
		OpenLibrarySearch: srv.URL + "/ol/search.json",
		OpenLibraryCover:  srv.URL + "/covers/",
	}
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(b)
}

func TestFetcherResolvesEverySource(t *testing.T) {
	var downloads atomic.Int32
	srv, ep := upstream(t, &downloads)
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "images", "people"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "images", "people", "seneca.jpg"), []byte("kept"), 0o644))

	core, logs := observer.New(zapcore.WarnLevel)
	f := &Fetcher{
		Client: NewClient(ep, srv.Client()),
		Dir:    dir,
		Overrides: Overrides{
			Titles: map[string]string{"Zeno": "Zeno of Elea", "Thales": "Q1"},
			URLs:   map[string]string{"Irises": srv.URL + "/direct.jpg"},
		},
		Concurrency: 3,
		Logger:      zap.New(core),
	}
	res, err := f.Run(context.Background(), []Entry{
		{Title: "Plato", Image: "/images/people/plato.jpg"},
		{Title: "Zeno", Image: "/images/people/zeno.jpg"},
		{Title: "Thales", Image: "/images/people/thales.jpg"},
		{Title: "Seneca", Image: "/images/people/seneca.jpg"},
		{Title: "Sapiens", Author: "Yuval Noah Harari", Image: "/images/books/sapiens.jpg"},
		{Title: "Sapiens: A Brief History of Humankind", Author: "Nobody", Image: "/images/books/nocover.jpg"},
		{Title: "Irises", Image: "/images/artworks/irises.jpg"},
		{Title: "Nobody Knows", Image: "/images/people/nobody.jpg"},
		{Title: "Escape", Image: "/etc/passwd"},
	})
	require.NoError(t, err)

	assert.Equal(t, Result{Saved: 5, Skipped: 1, Failed: 3}, res)
	assert.EqualValues(t, 5, downloads.Load())
	assert.Equal(t, "commons:/commons/Plato_Silanion_Musei_Capitolini_MC1377.jpg", readFile(t, filepath.Join(dir, "images", "people", "plato.jpg")))
	assert.Equal(t, "commons:/commons/Zeno.jpg", readFile(t, filepath.Join(dir, "images", "people", "zeno.jpg")))
	assert.Equal(t, "commons:/commons/Zeno.jpg", readFile(t, filepath.Join(dir, "images", "people", "thales.jpg")))
	assert.Equal(t, "cover:/covers/42-L.jpg", readFile(t, filepath.Join(dir, "images", "books", "sapiens.jpg")))
	assert.Equal(t, "direct", readFile(t, filepath.Join(dir, "images", "artworks", "irises.jpg")))
	assert.Equal(t, "kept", readFile(t, filepath.Join(dir, "images", "people", "seneca.jpg")))
	assert.NoFileExists(t, filepath.Join(dir, "images", "books", "nocover.jpg"))

	assert.Len(t, logs.FilterMessage("image fetch failed").All(), 3)
}

func TestFetcherLeavesNoPartialFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := &Fetcher{
		Client:    NewClient(DefaultEndpoints(), srv.Client()),
		Dir:       dir,
		Overrides: Overrides{URLs: map[string]string{"Ophelia": srv.URL + "/ophelia.jpg"}},
	}
	res, err := f.Run(context.Background(), []Entry{{Title: "Ophelia", Image: "/images/artworks/ophelia.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	entries, err := os.ReadDir(filepath.Join(dir, "images", "artworks"))
	require.NoError(t, err)
	assert.Empty(t, entries)
	srv.Client().CloseIdleConnections()
}

func TestFetcherStopsOnCancel(t *testing.T) {
	var downloads atomic.Int32
	srv, ep := upstream(t, &downloads)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &Fetcher{Client: NewClient(ep, srv.Client()), Dir: t.TempDir()}
	_, err := f.Run(ctx, []Entry{{Title: "Plato", Image: "/images/people/plato.jpg"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, downloads.Load())
}

func TestFetcherRejectsBadConfig(t *testing.T) {
	_, err := (&Fetcher{}).Run(context.Background(), nil)
	assert.Error(t, err)
	_, err = (&Fetcher{Client: NewClient(DefaultEndpoints(), nil)}).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestLoadManifestAndOverrides(t *testing.T) {
	dir := t.TempDir()
	people := filepath.Join(dir, "people.json")
	require.NoError(t, os.WriteFile(people, []byte(`[
		{"name": "Plato", "image": "/images/people/plato.jpg", "birth": -428},
		{"name": "No Image"},
		{"title": "Sapiens", "author": "Yuval Noah Harari", "image": "/images/books/sapiens.jpg"}
	]`), 0o644))
	entries, err := LoadManifest(people)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Title: "Plato", Image: "/images/people/plato.jpg"},
		{Title: "Sapiens", Author: "Yuval Noah Harari", Image: "/images/books/sapiens.jpg"},
	}, entries)

	_, err = LoadManifest(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	overrides := filepath.Join(dir, "overrides.yaml")
	require.NoError(t, os.WriteFile(overrides, []byte("titles:\n  Newton: Isaac Newton\nurls:\n  Irises: https://example.org/irises.jpg\n"), 0o644))
	o, err := LoadOverrides(overrides)
	require.NoError(t, err)
	assert.Equal(t, "Isaac Newton", o.Titles["Newton"])
	assert.Equal(t, "https://example.org/irises.jpg", o.URLs["Irises"])

	o, err = LoadOverrides("")
	require.NoError(t, err)
	assert.Empty(t, o.Titles)
}
