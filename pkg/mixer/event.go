package mixer

// EventKind identifies the type of mixer event.
type EventKind string

const (
	EventVolumeChanged EventKind = "volume_changed"
	EventMuteChanged   EventKind = "mute_changed"
	EventSceneSwitched EventKind = "scene_switched"
)

// Event is a push notification from the remote mixer. The set of variants is
// closed: VolumeChanged, MuteChanged and SceneSwitched.
type Event interface {
	Kind() EventKind
	isEvent()
}

// VolumeChanged reports a source's new volume.
type VolumeChanged struct {
	Source string
	Volume float64
}

// MuteChanged reports a source's new mute state.
type MuteChanged struct {
	Source string
	Muted  bool
}

// SceneSwitched reports the new current scene.
type SceneSwitched struct {
	Scene string
}

func (VolumeChanged) Kind() EventKind { return EventVolumeChanged }
func (MuteChanged) Kind() EventKind   { return EventMuteChanged }
func (SceneSwitched) Kind() EventKind { return EventSceneSwitched }

func (VolumeChanged) isEvent() {}
func (MuteChanged) isEvent()   {}
func (SceneSwitched) isEvent() {}
