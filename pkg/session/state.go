package session

import "context"

// State is the connection state of a Manager.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateSyncing
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSyncing:
		return "syncing"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Status texts written to the status slot. Failures write the error text.
const (
	StatusConnecting = "Connecting..."
	StatusConnected  = "Connected"
)

// Default connection settings.
const (
	DefaultAddress  = "localhost:4444"
	DefaultPassword = ""
)

// Settings are the connection parameters read on every Init.
type Settings struct {
	Address  string
	Password string
}

func (s Settings) withDefaults() Settings {
	if s.Address == "" {
		s.Address = DefaultAddress
	}
	return s
}

// SettingsSource supplies connection settings.
type SettingsSource interface {
	Settings(ctx context.Context) (Settings, error)
}

// StaticSettings is a SettingsSource returning fixed settings.
type StaticSettings Settings

// Settings implements SettingsSource.
func (s StaticSettings) Settings(context.Context) (Settings, error) {
	return Settings(s), nil
}

// StatusReporter receives the human-readable status after every change.
type StatusReporter interface {
	SetStatus(text string)
}
