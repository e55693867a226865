// Package syncengine keeps the registry of mirrored controls consistent with
// the remote mixer in both directions.
//
// FullSync enumerates sources, audio-monitor filters and scenes and builds a
// fresh control for each. Apply folds remote events into those controls.
// Resolve turns a local surface action into a mixer command, and Execute
// sends it. Events and actions that name an identifier the registry does not
// hold are dropped silently.
package syncengine
