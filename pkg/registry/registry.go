// Package registry owns the controls mirrored from the remote mixer. It is
// the single source of truth for whether a remote identifier is currently
// mirrored locally. Level and toggle controls live in separate namespaces so
// a source and a scene may share a name.
//
// The registry is rebuilt from scratch on every connect: Clear drops every
// control and starts a new generation, and PutIfCurrent lets a sync that was
// superseded by a newer Clear fail its writes instead of repopulating the
// registry with stale controls.
package registry

import (
	"sort"
	"sync"

	"github.com/germanamz/mixbridge/pkg/surface"
)

// Key identifies a control by kind and identifier.
type Key struct {
	Kind surface.Kind
	ID   string
}

// LevelKey returns the key of a level control.
func LevelKey(id string) Key { return Key{Kind: surface.KindLevel, ID: id} }

// ToggleKey returns the key of a toggle control.
func ToggleKey(id string) Key { return Key{Kind: surface.KindToggle, ID: id} }

// KeyOf returns the key a control is registered under.
func KeyOf(c surface.Control) Key { return Key{Kind: c.Kind(), ID: c.ID()} }

func (k Key) String() string { return k.Kind.String() + "/" + k.ID }

// Registry maps keys to controls. The zero value is ready to use and renders
// nothing; use New to attach a host. It is safe for concurrent use.
type Registry struct {
	// renderMu orders host calls: a registration renders before a later
	// Clear reaches the host, never after it.
	renderMu sync.Mutex

	mu       sync.RWMutex
	once     sync.Once
	controls map[Key]surface.Control
	gen      uint64
	host     surface.Host
}

// New creates a registry that renders every registered control on host.
func New(host surface.Host) *Registry {
	return &Registry{host: host}
}

// init ensures internal structures are allocated.
func (r *Registry) init() {
	r.once.Do(func() {
		r.controls = make(map[Key]surface.Control)
	})
}

// Clear drops every control, detaches them from the host, tells the host to
// clear, and returns the new generation.
func (r *Registry) Clear() uint64 {
	r.init()
	r.renderMu.Lock()
	defer r.renderMu.Unlock()

	r.mu.Lock()
	old := r.controls
	r.controls = make(map[Key]surface.Control)
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	for _, c := range old {
		c.Attach(nil)
	}
	if r.host != nil {
		r.host.Clear()
	}

	return gen
}

// Generation returns the current generation.
func (r *Registry) Generation() uint64 {
	r.init()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gen
}

// Put registers c under key, silently replacing any previous control.
func (r *Registry) Put(key Key, c surface.Control) {
	r.init()
	r.renderMu.Lock()
	defer r.renderMu.Unlock()

	r.mu.Lock()
	r.putLocked(key, c)
	r.mu.Unlock()

	r.render(c)
}

// PutIfCurrent registers c only if gen is still the current generation. It
// reports whether the control was registered.
func (r *Registry) PutIfCurrent(gen uint64, key Key, c surface.Control) bool {
	r.init()
	r.renderMu.Lock()
	defer r.renderMu.Unlock()

	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		return false
	}
	r.putLocked(key, c)
	r.mu.Unlock()

	r.render(c)
	return true
}

func (r *Registry) putLocked(key Key, c surface.Control) {
	if prev, ok := r.controls[key]; ok && prev != c {
		prev.Attach(nil)
	}
	r.controls[key] = c
	if r.host != nil {
		c.Attach(r.host)
	}
}

func (r *Registry) render(c surface.Control) {
	if r.host != nil {
		r.host.Render(c.Snapshot())
	}
}

// Get returns the control for key and whether it was found.
func (r *Registry) Get(key Key) (surface.Control, bool) {
	r.init()
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.controls[key]
	return c, ok
}

// Level returns the level control registered under id.
func (r *Registry) Level(id string) (*surface.LevelControl, bool) {
	c, ok := r.Get(LevelKey(id))
	if !ok {
		return nil, false
	}
	l, ok := c.(*surface.LevelControl)
	return l, ok
}

// Toggle returns the toggle control registered under id.
func (r *Registry) Toggle(id string) (*surface.ToggleControl, bool) {
	c, ok := r.Get(ToggleKey(id))
	if !ok {
		return nil, false
	}
	t, ok := c.(*surface.ToggleControl)
	return t, ok
}

// Levels returns every level control sorted by id.
func (r *Registry) Levels() []*surface.LevelControl {
	var out []*surface.LevelControl
	for _, c := range r.sorted(surface.KindLevel) {
		if l, ok := c.(*surface.LevelControl); ok {
			out = append(out, l)
		}
	}
	return out
}

// Toggles returns every toggle control sorted by id.
func (r *Registry) Toggles() []*surface.ToggleControl {
	var out []*surface.ToggleControl
	for _, c := range r.sorted(surface.KindToggle) {
		if t, ok := c.(*surface.ToggleControl); ok {
			out = append(out, t)
		}
	}
	return out
}

func (r *Registry) sorted(kind surface.Kind) []surface.Control {
	r.init()
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []surface.Control
	for k, c := range r.controls {
		if k.Kind == kind {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Keys returns every key, levels first, each kind sorted by id.
func (r *Registry) Keys() []Key {
	r.init()
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]Key, 0, len(r.controls))
	for k := range r.controls {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}

// Len returns the number of registered controls.
func (r *Registry) Len() int {
	r.init()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.controls)
}

// Snapshots returns a snapshot of every control in Keys order.
func (r *Registry) Snapshots() []surface.Snapshot {
	keys := r.Keys()
	out := make([]surface.Snapshot, 0, len(keys))
	for _, k := range keys {
		if c, ok := r.Get(k); ok {
			out = append(out, c.Snapshot())
		}
	}
	return out
}
