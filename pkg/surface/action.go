package surface

// Action is a user interaction reported by a Host.
type Action interface {
	ControlID() string
	isAction()
}

// VolumeChanged reports a fader or knob move on a level control. Level is
// normalized to 0-1.
type VolumeChanged struct {
	ID    string
	Level float64
}

// MutePressed reports a mute button press on a level control.
type MutePressed struct {
	ID string
}

// Pressed reports a press on a toggle control.
type Pressed struct {
	ID string
}

func (a VolumeChanged) ControlID() string { return a.ID }
func (a MutePressed) ControlID() string   { return a.ID }
func (a Pressed) ControlID() string       { return a.ID }

func (VolumeChanged) isAction() {}
func (MutePressed) isAction()   {}
func (Pressed) isAction()       {}

// ClampLevel bounds a level to the normalized 0-1 range.
func ClampLevel(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
