package nav

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ paths []string }

func (r *recorder) Navigate(p string) { r.paths = append(r.paths, p) }

func body() *Element { return &Element{TagName: "BODY"} }

func TestDispatchTable(t *testing.T) {
	cases := []struct {
		key     string
		current string
		want    string
	}{
		{"s", "/search", "/search"},
		{"S", "/", "/search"},
		{"b", "/people", "/books"},
		{"a", "/books", "/artworks"},
		{"l", "/list", "/list"},
		{"p", "/", "/people"},
		{"c", "/humanity", "/cosmic"},
		{"h", "/cosmic", "/humanity"},
	}
	for _, tc := range cases {
		rec := &recorder{}
		d := NewDispatcher("", rec)
		ok := d.Dispatch(KeyEvent{Key: tc.key, Target: body()}, tc.current)
		assert.True(t, ok, "key %s on %s", tc.key, tc.current)
		assert.Equal(t, []string{tc.want}, rec.paths, "key %s on %s", tc.key, tc.current)
	}
}

func TestDispatchIgnoresTextEntry(t *testing.T) {
	for key := range Shortcuts() {
		for _, tag := range []string{"INPUT", "TEXTAREA", "input", "textarea"} {
			rec := &recorder{}
			d := NewDispatcher("", rec)
			assert.False(t, d.Dispatch(KeyEvent{Key: key, Target: &Element{TagName: tag}}, "/"))
			assert.Empty(t, rec.paths, "key %s in %s", key, tag)
		}
	}
}

func TestDispatchGuardSkipsCurrentSection(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher("", rec)
	assert.False(t, d.Dispatch(KeyEvent{Key: "b", Target: body()}, "/books/renaissance"))
	assert.Empty(t, rec.paths)

	// guard matches on containment, so it applies under a base path too
	d = NewDispatcher("/timeline", rec)
	assert.False(t, d.Dispatch(KeyEvent{Key: "b", Target: body()}, "/timeline/books"))
	assert.Empty(t, rec.paths)
}

func TestDispatchNavigatesOnceUnderBasePath(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher("/timeline", rec)
	assert.True(t, d.Dispatch(KeyEvent{Key: "b", Target: body()}, "/timeline/people"))
	assert.Equal(t, []string{"/timeline/books"}, rec.paths)
}

func TestDispatchIgnoresUnmappedAndMalformed(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher("", rec)
	assert.NotPanics(t, func() {
		assert.False(t, d.Dispatch(KeyEvent{Key: "z", Target: body()}, "/"))
		assert.False(t, d.Dispatch(KeyEvent{Key: "", Target: body()}, "/"))
		assert.False(t, d.Dispatch(KeyEvent{Key: "b"}, "/"))
		var nilDispatcher *Dispatcher
		assert.False(t, nilDispatcher.Dispatch(KeyEvent{Key: "b", Target: body()}, "/"))
	})
	assert.Empty(t, rec.paths)
}

func TestMountUnmountLeavesNoListeners(t *testing.T) {
	w := NewWindow()
	rec := &recorder{}
	path := "/people"
	c := NewController(NewDispatcher("", rec), func() string { return path })

	for i := 0; i < 2; i++ {
		unmount := c.Mount(w)
		c.Mount(w)
		require.Equal(t, 1, w.Listeners())
		w.KeyDown(KeyEvent{Key: "b", Target: body()})
		unmount()
		unmount()
		require.Equal(t, 0, w.Listeners())
	}
	assert.Equal(t, []string{"/books", "/books"}, rec.paths)

	w.KeyDown(KeyEvent{Key: "b", Target: body()})
	assert.Len(t, rec.paths, 2)
}

func TestScopeReleasesOnError(t *testing.T) {
	w := NewWindow()
	c := NewController(NewDispatcher("", &recorder{}), nil)
	boom := errors.New("boom")
	err := c.Scope(w, func() error {
		assert.Equal(t, 1, w.Listeners())
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, w.Listeners())

	assert.Panics(t, func() {
		_ = c.Scope(w, func() error { panic("render failed") })
	})
	assert.Equal(t, 0, w.Listeners())
}

func TestScopeKeepsExistingMount(t *testing.T) {
	w := NewWindow()
	rec := &recorder{}
	c := NewController(NewDispatcher("", rec), func() string { return "/list" })

	unmount := c.Mount(w)
	require.NoError(t, c.Scope(w, func() error {
		assert.Equal(t, 1, w.Listeners())
		return nil
	}))
	assert.Equal(t, 1, w.Listeners())
	w.KeyDown(KeyEvent{Key: "p", Target: body()})
	assert.Equal(t, []string{"/people"}, rec.paths)

	unmount()
	assert.Equal(t, 0, w.Listeners())
}

func TestClientConfigMirrorsTable(t *testing.T) {
	cfg := Client("/shrine")
	assert.Equal(t, "/shrine", cfg.Base)
	require.Len(t, cfg.Bindings, 7)
	assert.Equal(t, Shortcut{Key: "b", Path: "/books", Guarded: true}, cfg.Bindings["b"])
	assert.False(t, cfg.Bindings["s"].Guarded)
	assert.False(t, cfg.Bindings["l"].Guarded)
	assert.Equal(t, []string{"INPUT", "TEXTAREA"}, cfg.TextEntry)

	// every tag the browser is told to ignore is ignored by the dispatcher too
	for _, tag := range cfg.TextEntry {
		rec := &recorder{}
		NewDispatcher(cfg.Base, rec).Dispatch(KeyEvent{Key: "s", Target: &Element{TagName: tag}}, "/")
		assert.Empty(t, rec.paths, tag)
	}
}
