package handlers

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrine-timeline/timeline-web/internal/content"
	"github.com/shrine-timeline/timeline-web/internal/pages"
	"github.com/shrine-timeline/timeline-web/internal/site"
)

func TestBuildPageDataForProviderRoute(t *testing.T) {
	id, _ := site.Preset("shrine")
	data, err := BuildPageData(context.Background(), id, pages.Books, content.New(""))
	require.NoError(t, err)

	assert.Equal(t, "Influential Books Timeline - Shrine", data.Title)
	assert.Equal(t, "/books", data.Path)
	assert.NotEmpty(t, data.Intro.Body)

	var active []string
	for _, it := range data.Nav {
		if it.Active {
			active = append(active, it.Href)
		}
	}
	assert.Equal(t, []string{"/shrine/books"}, active)

	var client struct {
		Base     string `json:"base"`
		Bindings map[string]struct {
			Path  string `json:"path"`
			Guard bool   `json:"guard"`
		} `json:"bindings"`
	}
	require.NoError(t, json.Unmarshal([]byte(data.Shortcuts), &client))
	assert.Equal(t, "/shrine", client.Base)
	assert.Equal(t, "/books", client.Bindings["b"].Path)
	assert.True(t, client.Bindings["b"].Guard)
	require.Len(t, data.ShortcutHelp, 7)
	assert.Equal(t, "a", data.ShortcutHelp[0].Key)
	hrefs := map[string]string{}
	for _, h := range data.ShortcutHelp {
		hrefs[h.Key] = h.Href
	}
	// guarded while on /books, everything else leads away
	assert.Empty(t, hrefs["b"])
	assert.Equal(t, "/shrine/people", hrefs["p"])
	assert.Equal(t, "/shrine/search", hrefs["s"])
}

func TestBuildPageDataAppliesIntroOverrides(t *testing.T) {
	dir := t.TempDir()
	md := "---\nseo:\n  title: Books we love\n  og_image: /images/books/origin.jpg\n---\nbody\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "books.md"), []byte(md), 0o644))

	id, _ := site.Preset("timeline")
	data, err := BuildPageData(context.Background(), id, pages.Books, content.New(dir))
	require.NoError(t, err)
	assert.Equal(t, "Books we love", data.SEO.Title)
	assert.Equal(t, "https://yourdomain.com/timeline/images/books/origin.jpg", data.SEO.OG.Image)
	// description still comes from the provider
	assert.Contains(t, data.SEO.Description, "influential books")
}

func TestBuildPageDataWithoutIntros(t *testing.T) {
	id, _ := site.Preset("timeline")
	data, err := BuildPageData(context.Background(), id, pages.Search, nil)
	require.NoError(t, err)
	assert.Equal(t, "Timeline - Interactive Historical Timeline", data.Title)
	assert.Empty(t, data.Intro.Body)
}
