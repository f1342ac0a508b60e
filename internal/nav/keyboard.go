package nav

import (
	"sort"
	"strings"
)

// Element is the part of an event target the dispatcher inspects.
type Element struct {
	TagName string
}

// KeyEvent is a key press delivered to the window.
type KeyEvent struct {
	Key    string
	Target *Element
}

// Navigator performs a client-side route change.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Shortcut binds one lowercase key to a route path.
type Shortcut struct {
	Key     string `json:"-"`
	Path    string `json:"path"`
	Guarded bool   `json:"guard"`
}

// Shortcuts returns the keyboard table derived from Main.
func Shortcuts() map[string]Shortcut {
	out := make(map[string]Shortcut, len(Main))
	for _, it := range Main {
		if it.Key == "" {
			continue
		}
		out[it.Key] = Shortcut{Key: it.Key, Path: it.Path, Guarded: it.Guarded}
	}
	return out
}

// textEntryTags never trigger shortcuts.
var textEntryTags = map[string]struct{}{
	"INPUT":    {},
	"TEXTAREA": {},
}

// Dispatcher maps key events to navigation.
type Dispatcher struct {
	basePath  string
	shortcuts map[string]Shortcut
	nav       Navigator
}

// NewDispatcher returns a dispatcher navigating under basePath.
func NewDispatcher(basePath string, n Navigator) *Dispatcher {
	return &Dispatcher{basePath: basePath, shortcuts: Shortcuts(), nav: n}
}

// Dispatch handles ev given the current location path and reports whether it
// navigated.
func (d *Dispatcher) Dispatch(ev KeyEvent, currentPath string) bool {
	if d == nil || d.nav == nil || ev.Target == nil || ev.Key == "" {
		return false
	}
	if _, ok := textEntryTags[strings.ToUpper(ev.Target.TagName)]; ok {
		return false
	}
	sc, ok := d.shortcuts[strings.ToLower(ev.Key)]
	if !ok {
		return false
	}
	if sc.Guarded && strings.Contains(currentPath, sc.Path) {
		return false
	}
	d.nav.Navigate(d.basePath + sc.Path)
	return true
}

// ClientConfig is the dispatcher state shipped to the browser script. The script
// holds no table or guard of its own: keys are lower-cased, targets listed in
// TextEntry are ignored, and guarded bindings skip paths containing Path.
type ClientConfig struct {
	Base      string              `json:"base"`
	Bindings  map[string]Shortcut `json:"bindings"`
	TextEntry []string            `json:"textEntry"`
}

// Client returns the table embedded into every page for the browser listener.
func Client(basePath string) ClientConfig {
	tags := make([]string, 0, len(textEntryTags))
	for tag := range textEntryTags {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return ClientConfig{Base: basePath, Bindings: Shortcuts(), TextEntry: tags}
}
