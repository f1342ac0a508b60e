package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/shrine-timeline/timeline-web/internal/nav"
)

func TestEmbeddedCoversNavLabels(t *testing.T) {
	b, err := Load(Embedded(), "en", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	keys := []string{"nav.home"}
	for _, it := range nav.Main {
		keys = append(keys, it.LabelKey)
	}
	for _, k := range keys {
		if got := b.T("en", k); got == k {
			t.Fatalf("missing translation for %s", k)
		}
	}
}

func TestFallsBackToDefaultThenKey(t *testing.T) {
	fsys := fstest.MapFS{
		"en.json": {Data: []byte(`{"nav.books":"Books"}`)},
		"ja.json": {Data: []byte(`{"nav.people":"人物"}`)},
	}
	b, err := Load(fsys, "en", []string{"en", "ja", "de"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Fallback() != "en" {
		t.Fatalf("expected fallback en, got %s", b.Fallback())
	}
	if got := b.T("ja", "nav.books"); got != "Books" {
		t.Fatalf("expected fallback Books, got %s", got)
	}
	if got := b.T("ja", "nav.people"); got != "人物" {
		t.Fatalf("expected 人物, got %s", got)
	}
	if got := b.T("de", "nav.unknown"); got != "nav.unknown" {
		t.Fatalf("expected key echo, got %s", got)
	}
}

func TestMissingFallbackFails(t *testing.T) {
	if _, err := Load(fstest.MapFS{}, "en", nil); err == nil {
		t.Fatalf("expected error for missing fallback locale")
	}
}
