// Package pages holds the per-route metadata providers. Each route has exactly one
// provider; the record it returns is fixed at build time and only varies with the
// site identity it is rendered for.
package pages

import "github.com/shrine-timeline/timeline-web/internal/site"

// Route identifies a top-level view by its path.
type Route string

const (
	Home     Route = "/"
	People   Route = "/people"
	Books    Route = "/books"
	Artworks Route = "/artworks"
	Cosmic   Route = "/cosmic"
	Humanity Route = "/humanity"
	List     Route = "/list"
	Search   Route = "/search"
)

// Slug returns the route path without its leading slash ("" for Home).
func (r Route) Slug() string {
	if r == Home {
		return ""
	}
	return string(r)[1:]
}

// Metadata is the page data consumed by the layout to fill the document head.
type Metadata struct {
	Title       string
	Description string
	OGImage     string // base-path prefixed absolute path, e.g. "/timeline/images/books/sapiens.jpg"
}

// Provider builds the metadata of one route for a site identity.
type Provider func(site.Identity) Metadata

var providers = map[Route]Provider{
	Artworks: func(id site.Identity) Metadata {
		return Metadata{
			Title:       "Famous Artworks Timeline - " + id.Name,
			Description: "Explore an interactive timeline of the most famous and influential artworks throughout history. Discover masterpieces from the Renaissance to modern art.",
			OGImage:     id.Path("/images/artworks/girl-with-pearl-earring.jpg"),
		}
	},
	Books: func(id site.Identity) Metadata {
		return Metadata{
			Title:       "Influential Books Timeline - " + id.Name,
			Description: "Explore an interactive timeline of the most influential books throughout history. Discover classic literature, philosophical works, and groundbreaking publications.",
			OGImage:     id.Path("/images/books/sapiens.jpg"),
		}
	},
	People: func(id site.Identity) Metadata {
		return Metadata{
			Title:       "Historical Figures Timeline - " + id.Name,
			Description: "Explore an interactive timeline of influential historical figures from ancient times to the modern era. Discover their lifespans, achievements, and impact on history.",
			OGImage:     id.Path("/images/people/plato.jpg"),
		}
	},
	Cosmic: func(id site.Identity) Metadata {
		return Metadata{
			Title:       "Cosmic Timeline - Deep Time History",
			Description: "Explore the cosmic timeline from the Big Bang to human civilization. Visualize 13.8 billion years of cosmic history on a logarithmic scale.",
			OGImage:     id.Path("/images/cosmic-og.jpg"),
		}
	},
	Humanity: func(id site.Identity) Metadata {
		return Metadata{
			Title:       "Humanity Timeline - History of Human Civilization",
			Description: "Explore the history of human civilization from the Agricultural Revolution to the modern era. Visualize key events, empires, and cultural movements.",
			OGImage:     id.Path("/images/humanity-og.jpg"),
		}
	},
	List: func(id site.Identity) Metadata {
		return Metadata{
			Title:       "List - People Timeline",
			Description: "Browse all historical figures sorted by birth date",
			OGImage:     id.Path("/favicon.png"),
		}
	},
}

var order = []Route{People, Books, Artworks, Cosmic, Humanity, List}

// Routes returns the routes that have a provider, in navigation order.
func Routes() []Route {
	out := make([]Route, len(order))
	copy(out, order)
	return out
}

// All returns every renderable route: home, the provider routes, then search.
func All() []Route {
	out := make([]Route, 0, len(order)+2)
	out = append(out, Home)
	out = append(out, order...)
	return append(out, Search)
}

// Load returns the metadata of route for id. Routes without a provider report false.
func Load(route Route, id site.Identity) (Metadata, bool) {
	p, ok := providers[route]
	if !ok {
		return Metadata{}, false
	}
	return p(id), true
}

// Default is the layout-level metadata used by routes without a provider.
func Default(id site.Identity) Metadata {
	return Metadata{
		Title:       id.Title(),
		Description: id.Summary,
		OGImage:     id.Path("/favicon.png"),
	}
}

// Resolve returns the provider metadata for route, falling back to Default.
func Resolve(route Route, id site.Identity) Metadata {
	if m, ok := Load(route, id); ok {
		return m
	}
	return Default(id)
}
