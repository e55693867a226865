// Package surface defines the locally controllable entities mirrored from the
// remote mixer and the Host interface through which a control surface renders
// them and reports user interaction.
//
// Entities come in two variants: LevelControl (volume + mute, one per source
// and per audio-monitor filter) and ToggleControl (one per scene). A Host only
// ever sees value Snapshots; the entity itself is owned by the registry.
// User interaction flows the other way as Action values (VolumeChanged,
// MutePressed, Pressed) read from Host.Actions.
package surface
