package mixer

import (
	"context"
	"fmt"
)

// CommandKind identifies the type of command.
type CommandKind string

const (
	CommandSetVolume       CommandKind = "set_volume"
	CommandSetMute         CommandKind = "set_mute"
	CommandSetFilterVolume CommandKind = "set_filter_volume"
	CommandSwitchScene     CommandKind = "switch_scene"
)

// Command is a request for the remote mixer produced by a local control
// action. Send issues it through a Client.
type Command interface {
	Kind() CommandKind
	Send(ctx context.Context, c Client) error
}

// SetVolume sets a source's volume on the mixer's native scale.
type SetVolume struct {
	Source string
	Volume float64
}

// SetMute sets a source's mute state.
type SetMute struct {
	Source string
	Muted  bool
}

// SetFilterVolume sets an audio-monitor filter's volume on the 0-100 scale.
type SetFilterVolume struct {
	Source string
	Filter string
	Volume float64
}

// SwitchScene makes a scene current.
type SwitchScene struct {
	Scene string
}

func (SetVolume) Kind() CommandKind       { return CommandSetVolume }
func (SetMute) Kind() CommandKind         { return CommandSetMute }
func (SetFilterVolume) Kind() CommandKind { return CommandSetFilterVolume }
func (SwitchScene) Kind() CommandKind     { return CommandSwitchScene }

func (c SetVolume) Send(ctx context.Context, cl Client) error {
	return cl.SetVolume(ctx, c.Source, c.Volume)
}

func (c SetMute) Send(ctx context.Context, cl Client) error {
	return cl.SetMute(ctx, c.Source, c.Muted)
}

func (c SetFilterVolume) Send(ctx context.Context, cl Client) error {
	return cl.SetFilterSettings(ctx, c.Source, c.Filter, map[string]any{"volume": c.Volume})
}

func (c SwitchScene) Send(ctx context.Context, cl Client) error {
	return cl.SetCurrentScene(ctx, c.Scene)
}

func (c SetVolume) String() string { return fmt.Sprintf("set volume %q=%.3f", c.Source, c.Volume) }
func (c SetMute) String() string   { return fmt.Sprintf("set mute %q=%t", c.Source, c.Muted) }
func (c SetFilterVolume) String() string {
	return fmt.Sprintf("set filter volume %q/%q=%.1f", c.Source, c.Filter, c.Volume)
}
func (c SwitchScene) String() string { return fmt.Sprintf("switch scene %q", c.Scene) }
