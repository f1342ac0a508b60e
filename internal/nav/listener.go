package nav

import "sync"

// Listener receives key events.
type Listener func(KeyEvent)

// Window owns the key listeners of one page. Listeners are subscriptions: adding
// one hands back the func that removes it.
type Window struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
}

// NewWindow returns a window with no listeners.
func NewWindow() *Window {
	return &Window{listeners: map[int]Listener{}}
}

// AddListener subscribes l. The returned func removes it and is safe to call more
// than once.
func (w *Window) AddListener(l Listener) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = l
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.listeners, id)
			w.mu.Unlock()
		})
	}
}

// Listeners reports how many listeners are installed.
func (w *Window) Listeners() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners)
}

// KeyDown delivers ev to every installed listener.
func (w *Window) KeyDown(ev KeyEvent) {
	w.mu.Lock()
	ls := make([]Listener, 0, len(w.listeners))
	for _, l := range w.listeners {
		ls = append(ls, l)
	}
	w.mu.Unlock()
	for _, l := range ls {
		l(ev)
	}
}

// Controller is the root layout's keyboard binding. It holds at most one listener
// at a time.
type Controller struct {
	dispatcher *Dispatcher
	location   func() string

	mu      sync.Mutex
	release func()
}

// NewController binds d to a window. location returns the current path when a key
// is pressed.
func NewController(d *Dispatcher, location func() string) *Controller {
	return &Controller{dispatcher: d, location: location}
}

// Mount installs the listener on w. Mounting an already mounted controller does
// nothing. The returned func unmounts.
func (c *Controller) Mount(w *Window) func() {
	c.mount(w)
	return c.Unmount
}

// mount reports whether this call installed the listener.
func (c *Controller) mount(w *Window) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.release != nil {
		return false
	}
	c.release = w.AddListener(c.handle)
	return true
}

// Unmount removes the listener, if any.
func (c *Controller) Unmount() {
	c.mu.Lock()
	release := c.release
	c.release = nil
	c.mu.Unlock()
	if release != nil {
		release()
	}
}

// Scope mounts on w for the duration of fn. A listener installed by Scope is
// removed on every return path, including errors and panics; one that was already
// mounted stays.
func (c *Controller) Scope(w *Window, fn func() error) error {
	if c.mount(w) {
		defer c.Unmount()
	}
	return fn()
}

func (c *Controller) handle(ev KeyEvent) {
	current := ""
	if c.location != nil {
		current = c.location()
	}
	c.dispatcher.Dispatch(ev, current)
}
