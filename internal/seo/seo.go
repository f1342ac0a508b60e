package seo

import (
	"html/template"

	"github.com/shrine-timeline/timeline-web/internal/pages"
	"github.com/shrine-timeline/timeline-web/internal/site"
)

type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	URL         string
	SiteName    string
}

type Twitter struct {
	Card  string
	Image string
}

type Meta struct {
	Title       string
	Description string
	Canonical   string
	OG          OpenGraph
	Twitter     Twitter
	JSONLD      []template.JS
}

// Build fills the document head for the route at path (relative to the base path).
func Build(id site.Identity, m pages.Metadata, path string) Meta {
	canonical := id.Absolute(path)
	image := ""
	if m.OGImage != "" {
		image = id.URL + m.OGImage
	}
	meta := Meta{
		Title:       m.Title,
		Description: m.Description,
		Canonical:   canonical,
		OG: OpenGraph{
			Title:       m.Title,
			Description: m.Description,
			Image:       image,
			Type:        "website",
			URL:         canonical,
			SiteName:    id.Name,
		},
		Twitter: Twitter{Card: "summary_large_image", Image: image},
	}
	meta.JSONLD = append(meta.JSONLD, Script(WebSite(id.Name, id.Description, id.Absolute("/"), id.Absolute("/search")+"?q=")))
	if crumbs := breadcrumbs(id, path, m.Title); len(crumbs) > 1 {
		meta.JSONLD = append(meta.JSONLD, Script(BreadcrumbList(crumbs)))
	}
	return meta
}

// Script returns v as JSON for a script element. encoding/json escapes '<' and '>'
// so the payload cannot close the element early.
func Script(v any) template.JS {
	return template.JS(JSON(v))
}

func breadcrumbs(id site.Identity, path, title string) []BreadcrumbItem {
	if path == "" || path == "/" {
		return nil
	}
	return []BreadcrumbItem{
		{Name: id.Name, Item: id.Absolute("/")},
		{Name: title, Item: id.Absolute(path)},
	}
}
