package mixer

import (
	"context"
	"fmt"
)

// FilterKindAudioMonitor is the filter type whose volume is mirrored as its
// own level control.
const FilterKindAudioMonitor = "audio_monitor"

// Source is an audio input channel on the remote mixer.
type Source struct {
	Name string
	Kind string
}

// Filter is an effect attached to a source.
type Filter struct {
	Name     string
	Kind     string
	Enabled  bool
	Settings map[string]any
}

// Volume returns the filter's volume setting on the remote 0-100 scale.
// It reports false when the setting is absent or not numeric.
func (f Filter) Volume() (float64, bool) {
	switch v := f.Settings["volume"].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Scene is a named presentation state; exactly one is current at a time.
type Scene struct {
	Name string
}

// SceneList is the scene set together with the name of the current scene.
type SceneList struct {
	Current string
	Scenes  []Scene
}

// Client is the connection to a remote mixer. Implementations must be safe
// for concurrent use; every request method may be called from several
// goroutines at once.
type Client interface {
	Connect(ctx context.Context, address, password string) error
	Disconnect() error

	// Events delivers push notifications until the connection closes, at
	// which point the channel is closed.
	Events() <-chan Event

	Sources(ctx context.Context) ([]Source, error)
	Volume(ctx context.Context, source string) (float64, error)
	Muted(ctx context.Context, source string) (bool, error)
	SetVolume(ctx context.Context, source string, volume float64) error
	SetMute(ctx context.Context, source string, muted bool) error
	Filters(ctx context.Context, source string) ([]Filter, error)
	SetFilterSettings(ctx context.Context, source, filter string, settings map[string]any) error
	Scenes(ctx context.Context) (SceneList, error)
	SetCurrentScene(ctx context.Context, scene string) error
}

// FilterControlID returns the control identifier of an audio-monitor filter.
func FilterControlID(source, filter string) string {
	return fmt.Sprintf("%s: %s", source, filter)
}

// SceneDisplayName returns the human-readable label of a scene button.
func SceneDisplayName(scene string) string {
	return fmt.Sprintf("OBS: Switch to %q scene", scene)
}
