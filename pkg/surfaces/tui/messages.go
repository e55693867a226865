package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/germanamz/mixbridge/pkg/surface"
)

// controlsMsg carries a copy of the host's controls and status.
type controlsMsg struct {
	levels  []surface.Snapshot
	toggles []surface.Snapshot
	status  string
	notice  string
}

// programReadyMsg passes the *tea.Program to the model so it can start the
// bridge goroutine.
type programReadyMsg struct {
	program *tea.Program
}
