// Package site describes the identity a build is produced for: the site name,
// its public URL, and the base path the static output is deployed under.
package site

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownPreset is returned when a preset id does not match a known identity.
var ErrUnknownPreset = errors.New("site: unknown preset")

// Identity is the single configurable site-identity parameter.
type Identity struct {
	ID          string // preset id, e.g. "timeline"
	Name        string // short site name used in page titles, e.g. "Timeline"
	Tagline     string // suffix of the layout title
	Description string // JSON-LD WebSite description
	Summary     string // default meta description
	URL         string // public origin without base path, e.g. "https://yourdomain.com"
	BasePath    string // "" or "/timeline"
}

const defaultURL = "https://yourdomain.com"

var presets = map[string]Identity{
	"shrine": {
		ID:          "shrine",
		Name:        "Shrine",
		Tagline:     "Interactive Historical Timeline",
		Description: "An interactive timeline visualization of historical figures and influential books throughout history",
		Summary:     "Explore history through an interactive timeline of influential people and books",
		URL:         defaultURL,
		BasePath:    "/shrine",
	},
	"timeline": {
		ID:          "timeline",
		Name:        "Timeline",
		Tagline:     "Interactive Historical Timeline",
		Description: "An interactive timeline visualization of historical figures, influential books, and famous artworks throughout history",
		Summary:     "Explore history through an interactive timeline of influential people, books, and artworks",
		URL:         defaultURL,
		BasePath:    "/timeline",
	},
}

// DefaultPreset is used when nothing selects a preset.
const DefaultPreset = "timeline"

// Preset returns a copy of the named preset identity.
func Preset(id string) (Identity, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		id = DefaultPreset
	}
	p, ok := presets[id]
	if !ok {
		return Identity{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownPreset, id, strings.Join(Presets(), ", "))
	}
	return p, nil
}

// Presets lists known preset ids.
func Presets() []string {
	return []string{"shrine", "timeline"}
}

type fileConfig struct {
	Preset      string  `yaml:"preset"`
	Name        string  `yaml:"name"`
	Tagline     string  `yaml:"tagline"`
	Description string  `yaml:"description"`
	Summary     string  `yaml:"summary"`
	URL         string  `yaml:"url"`
	BasePath    *string `yaml:"base_path"`
}

// Load resolves the identity. Precedence, lowest first: preset, YAML file at path
// (optional, skipped when path is empty), environment variables. Dev mode clears
// the base path so the site serves from the root.
func Load(path string, devMode bool) (Identity, error) {
	var fc fileConfig
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Identity{}, fmt.Errorf("site: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return Identity{}, fmt.Errorf("site: parse %s: %w", path, err)
		}
	}
	presetID := firstNonEmpty(os.Getenv("TIMELINE_SITE"), fc.Preset)
	id, err := Preset(presetID)
	if err != nil {
		return Identity{}, err
	}
	id.Name = firstNonEmpty(os.Getenv("TIMELINE_SITE_NAME"), fc.Name, id.Name)
	id.Tagline = firstNonEmpty(fc.Tagline, id.Tagline)
	id.Description = firstNonEmpty(fc.Description, id.Description)
	id.Summary = firstNonEmpty(fc.Summary, id.Summary)
	id.URL = firstNonEmpty(os.Getenv("TIMELINE_SITE_URL"), fc.URL, id.URL)
	if fc.BasePath != nil {
		id.BasePath = *fc.BasePath
	}
	if v, ok := os.LookupEnv("TIMELINE_BASE_PATH"); ok {
		id.BasePath = v
	}
	if devMode {
		id.BasePath = ""
	}
	return id.normalize()
}

func (id Identity) normalize() (Identity, error) {
	id.URL = strings.TrimRight(strings.TrimSpace(id.URL), "/")
	u, err := url.Parse(id.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Identity{}, fmt.Errorf("site: invalid url %q", id.URL)
	}
	bp := strings.TrimSpace(id.BasePath)
	if bp != "" && bp != "/" {
		if !strings.HasPrefix(bp, "/") {
			return Identity{}, fmt.Errorf("site: base path %q must start with /", bp)
		}
		bp = path.Clean(bp)
	}
	if bp == "/" {
		bp = ""
	}
	id.BasePath = bp
	return id, nil
}

// Path prefixes an absolute route path with the base path.
func (id Identity) Path(p string) string {
	if p == "" || p == "/" {
		if id.BasePath == "" {
			return "/"
		}
		return id.BasePath + "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return id.BasePath + p
}

// Absolute returns the public URL for a route path.
func (id Identity) Absolute(p string) string {
	return id.URL + id.Path(p)
}

// Title returns the layout title, e.g. "Timeline - Interactive Historical Timeline".
func (id Identity) Title() string {
	return id.Name + " - " + id.Tagline
}

// Strip removes the base path from a request path. The second return is false when
// the path lies outside the base path.
func (id Identity) Strip(p string) (string, bool) {
	if id.BasePath == "" {
		return p, strings.HasPrefix(p, "/")
	}
	if p == id.BasePath {
		return "/", true
	}
	if rest, ok := strings.CutPrefix(p, id.BasePath+"/"); ok {
		return "/" + rest, true
	}
	return "", false
}

var staticPrefixes = []string{"/images/", "/icons/"}

// StaticAsset reports whether p points into a static asset directory, with or
// without the base path.
func (id Identity) StaticAsset(p string) bool {
	for _, pre := range staticPrefixes {
		if strings.HasPrefix(p, pre) {
			return true
		}
		if id.BasePath != "" && strings.HasPrefix(p, id.BasePath+pre) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
