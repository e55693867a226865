package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/germanamz/mixbridge/pkg/metrics"
	"github.com/germanamz/mixbridge/pkg/mixer"
	"github.com/germanamz/mixbridge/pkg/registry"
	"github.com/germanamz/mixbridge/pkg/surface"
)

// ErrStale is returned by FullSync when the registry was cleared by a newer
// sync while this one was in flight.
var ErrStale = errors.New("syncengine: sync superseded by a newer generation")

// Engine synchronizes one registry with one mixer client.
type Engine struct {
	client mixer.Client
	reg    *registry.Registry
	log    *slog.Logger

	mu    sync.Mutex
	scene string
}

// New creates an Engine. A nil logger falls back to slog.Default.
func New(client mixer.Client, reg *registry.Registry, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		client: client,
		reg:    reg,
		log:    log,
	}
}

// Registry returns the registry the engine writes to.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// CurrentScene returns the last known current scene.
func (e *Engine) CurrentScene() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene
}

func (e *Engine) setScene(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene = name
}

// Apply folds a remote event into the mirror. It reports whether the event
// named a mirrored control; events for unknown identifiers are no-ops.
func (e *Engine) Apply(ctx context.Context, ev mixer.Event) bool {
	applied := e.apply(ev)

	kind := string(ev.Kind())
	if applied {
		metrics.EventsApplied.WithLabelValues(kind).Inc()
	} else {
		metrics.EventsIgnored.WithLabelValues(kind).Inc()
		e.log.DebugContext(ctx, "event for unmirrored control dropped", "kind", kind)
	}

	return applied
}

func (e *Engine) apply(ev mixer.Event) bool {
	switch ev := ev.(type) {
	case mixer.VolumeChanged:
		l, ok := e.sourceLevel(ev.Source)
		if !ok {
			return false
		}
		l.SetVolume(ev.Volume)
		return true

	case mixer.MuteChanged:
		l, ok := e.sourceLevel(ev.Source)
		if !ok {
			return false
		}
		l.SetMuted(ev.Muted)
		return true

	case mixer.SceneSwitched:
		e.setScene(ev.Scene)

		// Re-derive every toggle; at most one stays active.
		matched := false
		for _, t := range e.reg.Toggles() {
			active := t.Scene() == ev.Scene
			t.SetActive(active)
			matched = matched || active
		}
		return matched

	default:
		return false
	}
}

// sourceLevel returns the level control mirroring a source (not a filter).
func (e *Engine) sourceLevel(source string) (*surface.LevelControl, bool) {
	l, ok := e.reg.Level(source)
	if !ok || l.IsFilter() {
		return nil, false
	}
	return l, true
}

// Resolve turns a local action into the command that carries it to the
// mixer. It reports false when the action names no mirrored control or has
// no remote counterpart (a mute press on a filter).
//
// Volume moves update the control immediately, since filters never receive
// an echo event. Scene presses optimistically light the pressed toggle; the
// scene-switch event settles the rest.
func (e *Engine) Resolve(a surface.Action) (mixer.Command, bool) {
	switch a := a.(type) {
	case surface.VolumeChanged:
		l, ok := e.reg.Level(a.ID)
		if !ok {
			return nil, false
		}
		level := surface.ClampLevel(a.Level)
		l.SetVolume(level)

		if l.IsFilter() {
			return mixer.SetFilterVolume{Source: l.Source(), Filter: l.Filter(), Volume: level * 100}, true
		}
		return mixer.SetVolume{Source: l.Source(), Volume: level}, true

	case surface.MutePressed:
		l, ok := e.reg.Level(a.ID)
		if !ok || l.IsFilter() {
			return nil, false
		}
		return mixer.SetMute{Source: l.Source(), Muted: !l.Muted()}, true

	case surface.Pressed:
		t, ok := e.reg.Toggle(a.ID)
		if !ok {
			return nil, false
		}
		t.SetActive(true)
		return mixer.SwitchScene{Scene: t.Scene()}, true

	default:
		return nil, false
	}
}

// Execute sends a command to the mixer.
func (e *Engine) Execute(ctx context.Context, cmd mixer.Command) error {
	err := cmd.Send(ctx, e.client)
	metrics.CommandsSent.WithLabelValues(string(cmd.Kind()), metrics.Result(err)).Inc()

	if err != nil {
		return fmt.Errorf("syncengine: %s: %w", cmd.Kind(), err)
	}

	e.log.DebugContext(ctx, "command sent", "command", cmd)
	return nil
}
