// Package midisurface maps a MIDI controller onto mirrored controls.
//
// Control-change messages on a mapped CC become volume moves (value/127).
// Note-on messages on a mapped note become mute or scene presses. Feedback
// flows back out: level changes are sent as CC values so motorized faders
// follow, and mute and scene state light the mapped buttons (velocity 127
// for on, 0 for off).
package midisurface
