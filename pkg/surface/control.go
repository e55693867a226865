package surface

import "sync"

// Kind distinguishes the two control variants.
type Kind int

const (
	KindLevel Kind = iota + 1
	KindToggle
)

func (k Kind) String() string {
	switch k {
	case KindLevel:
		return "level"
	case KindToggle:
		return "toggle"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable copy of a control's state handed to hosts.
type Snapshot struct {
	Kind   Kind
	ID     string
	Name   string
	Volume float64 // KindLevel only, normalized 0-1.
	Muted  bool    // KindLevel only.
	Active bool    // KindToggle only.
}

// Control is a LevelControl or a ToggleControl.
type Control interface {
	ID() string
	Kind() Kind
	Snapshot() Snapshot

	// Attach binds the control to the host that renders its changes. A nil
	// host detaches it.
	Attach(h Host)
}

// LevelOptions describes a new LevelControl.
type LevelOptions struct {
	Name   string
	Source string // Remote source the control is bound to.
	Filter string // Audio-monitor filter on Source; empty for the source itself.
	Volume float64
	Muted  bool
}

// LevelControl is a continuous volume control with a mute flag. It is safe
// for concurrent use.
type LevelControl struct {
	id     string
	name   string
	source string
	filter string

	mu     sync.Mutex
	volume float64
	muted  bool
	host   Host
}

// NewLevel creates a detached LevelControl.
func NewLevel(id string, opts LevelOptions) *LevelControl {
	name := opts.Name
	if name == "" {
		name = id
	}

	return &LevelControl{
		id:     id,
		name:   name,
		source: opts.Source,
		filter: opts.Filter,
		volume: opts.Volume,
		muted:  opts.Muted,
	}
}

func (c *LevelControl) ID() string   { return c.id }
func (c *LevelControl) Kind() Kind   { return KindLevel }
func (c *LevelControl) Name() string { return c.name }

// Source returns the remote source the control is bound to.
func (c *LevelControl) Source() string { return c.source }

// Filter returns the audio-monitor filter name, or "" for a source control.
func (c *LevelControl) Filter() string { return c.filter }

// IsFilter reports whether the control mirrors an audio-monitor filter.
func (c *LevelControl) IsFilter() bool { return c.filter != "" }

// Volume returns the current normalized volume.
func (c *LevelControl) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Muted returns the current mute flag.
func (c *LevelControl) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// SetVolume updates the volume and renders the change. It reports whether
// the value changed.
func (c *LevelControl) SetVolume(v float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.volume == v {
		return false
	}
	c.volume = v
	c.renderLocked()
	return true
}

// SetMuted updates the mute flag and renders the change. It reports whether
// the value changed.
func (c *LevelControl) SetMuted(m bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.muted == m {
		return false
	}
	c.muted = m
	c.renderLocked()
	return true
}

func (c *LevelControl) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *LevelControl) snapshotLocked() Snapshot {
	return Snapshot{
		Kind:   KindLevel,
		ID:     c.id,
		Name:   c.name,
		Volume: c.volume,
		Muted:  c.muted,
	}
}

// renderLocked runs under mu, so Attach(nil) returns only after an
// in-flight render has reached the host.
func (c *LevelControl) renderLocked() {
	if c.host != nil {
		c.host.Render(c.snapshotLocked())
	}
}

func (c *LevelControl) Attach(h Host) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.host = h
}

// ToggleOptions describes a new ToggleControl.
type ToggleOptions struct {
	Name   string
	Scene  string
	Active bool
}

// ToggleControl is an on/off button bound to a scene. It is safe for
// concurrent use.
type ToggleControl struct {
	id    string
	name  string
	scene string

	mu     sync.Mutex
	active bool
	host   Host
}

// NewToggle creates a detached ToggleControl. The scene defaults to the id.
func NewToggle(id string, opts ToggleOptions) *ToggleControl {
	name := opts.Name
	if name == "" {
		name = id
	}
	scene := opts.Scene
	if scene == "" {
		scene = id
	}

	return &ToggleControl{
		id:     id,
		name:   name,
		scene:  scene,
		active: opts.Active,
	}
}

func (c *ToggleControl) ID() string    { return c.id }
func (c *ToggleControl) Kind() Kind    { return KindToggle }
func (c *ToggleControl) Name() string  { return c.name }
func (c *ToggleControl) Scene() string { return c.scene }

// Active reports whether the toggle is lit.
func (c *ToggleControl) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SetActive updates the flag and renders the change. It reports whether the
// value changed.
func (c *ToggleControl) SetActive(a bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == a {
		return false
	}
	c.active = a
	c.renderLocked()
	return true
}

func (c *ToggleControl) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *ToggleControl) snapshotLocked() Snapshot {
	return Snapshot{
		Kind:   KindToggle,
		ID:     c.id,
		Name:   c.name,
		Active: c.active,
	}
}

func (c *ToggleControl) renderLocked() {
	if c.host != nil {
		c.host.Render(c.snapshotLocked())
	}
}

func (c *ToggleControl) Attach(h Host) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.host = h
}
