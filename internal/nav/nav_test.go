package nav

import "testing"

func TestBuildMarksActiveSection(t *testing.T) {
	items := Build("/timeline", "/books/renaissance")
	var active []string
	for _, it := range items {
		if it.Active {
			active = append(active, it.Href)
		}
	}
	if len(active) != 1 || active[0] != "/timeline/books" {
		t.Fatalf("expected only /timeline/books active, got %v", active)
	}
}

func TestBreadcrumbs(t *testing.T) {
	crumbs := Breadcrumbs("", "/books/early-modern")
	if len(crumbs) != 3 {
		t.Fatalf("expected 3 crumbs, got %d", len(crumbs))
	}
	if crumbs[1].LabelKey != "nav.books" {
		t.Fatalf("expected nav.books label, got %q", crumbs[1].LabelKey)
	}
	if crumbs[2].Label != "Early modern" || !crumbs[2].Active {
		t.Fatalf("unexpected leaf crumb %+v", crumbs[2])
	}
	if home := Breadcrumbs("/shrine", "/"); len(home) != 1 || home[0].Href != "/shrine/" {
		t.Fatalf("unexpected home crumbs %+v", home)
	}
}
