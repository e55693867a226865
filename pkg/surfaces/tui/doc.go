// Package tui is a terminal control surface built on bubbletea. It lists
// every level control with a volume bar and mute flag, followed by the scene
// toggles, and turns key presses into surface actions.
//
// Host implements surface.Host and surface.StatusReporter. Render, Clear and
// SetStatus only update the host's own copy of the controls and wake a
// bridge goroutine, which hands a fresh copy to the bubbletea program; the
// model never shares state with the caller.
package tui
