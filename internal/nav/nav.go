package nav

import (
	"path"
	"strings"
)

// Item represents a top-level navigation item.
type Item struct {
	Path     string // e.g. "/books"
	LabelKey string // i18n key, e.g. "nav.books"
	Key      string // keyboard shortcut, lowercase, e.g. "b"
	// Guarded shortcuts do nothing while the current path already contains Path.
	Guarded bool
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href     string
	LabelKey string
	Key      string
	Active   bool
}

// Crumb represents a breadcrumb entry. If LabelKey is empty, use Label.
type Crumb struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// Main is the primary navigation definition. It is also the keyboard shortcut table.
var Main = []Item{
	{Path: "/people", LabelKey: "nav.people", Key: "p", Guarded: true},
	{Path: "/books", LabelKey: "nav.books", Key: "b", Guarded: true},
	{Path: "/artworks", LabelKey: "nav.artworks", Key: "a", Guarded: true},
	{Path: "/cosmic", LabelKey: "nav.cosmic", Key: "c", Guarded: true},
	{Path: "/humanity", LabelKey: "nav.humanity", Key: "h", Guarded: true},
	{Path: "/list", LabelKey: "nav.list", Key: "l"},
	{Path: "/search", LabelKey: "nav.search", Key: "s"},
}

// Build renders navigation items with active state given the current path.
// currentPath is relative to the base path; hrefs are prefixed with basePath.
func Build(basePath, currentPath string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		items = append(items, RenderedItem{
			Href:     basePath + it.Path,
			LabelKey: it.LabelKey,
			Key:      it.Key,
			Active:   isActive(it.Path, currentPath),
		})
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/"
	}
	// match exact or prefix boundary: "/books" or "/books/..."
	if currentPath == itemPath {
		return true
	}
	return strings.HasPrefix(currentPath, itemPath+"/")
}

// Breadcrumbs builds breadcrumb entries from the current path.
// Rules:
// - Always start with Home
// - For known top-level sections, use nav label keys
// - For deeper segments, use a prettified segment label
func Breadcrumbs(basePath, currentPath string) []Crumb {
	if currentPath == "" {
		currentPath = "/"
	}
	home := basePath + "/"
	crumbs := []Crumb{{Href: home, LabelKey: "nav.home", Active: currentPath == "/"}}
	if currentPath == "/" {
		return crumbs
	}

	clean := path.Clean(currentPath)
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")

	if len(parts) > 0 && parts[0] != "" {
		top := "/" + parts[0]
		labelKey := ""
		for _, it := range Main {
			if it.Path == top {
				labelKey = it.LabelKey
				break
			}
		}
		crumbs = append(crumbs, Crumb{Href: basePath + top, LabelKey: labelKey, Label: titleFromSegment(parts[0]), Active: len(parts) == 1})
	}

	if len(parts) > 1 {
		href := basePath + "/" + parts[0]
		for i := 1; i < len(parts); i++ {
			href = href + "/" + parts[i]
			crumbs = append(crumbs, Crumb{
				Href:   href,
				Label:  titleFromSegment(parts[i]),
				Active: i == len(parts)-1,
			})
		}
	}
	return crumbs
}

func titleFromSegment(seg string) string {
	if seg == "" {
		return seg
	}
	s := strings.ReplaceAll(seg, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	r := []rune(s)
	r[0] = toUpper(r[0])
	return string(r)
}

func toUpper(r rune) rune {
	// ASCII only is sufficient for slugs here
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
