package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap implements help.KeyMap.
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Louder    key.Binding
	Quieter   key.Binding
	Mute      key.Binding
	Press     key.Binding
	Reconnect key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Louder:    key.NewBinding(key.WithKeys("right", "l", "+"), key.WithHelp("→", "+5%")),
	Quieter:   key.NewBinding(key.WithKeys("left", "h", "-"), key.WithHelp("←", "-5%")),
	Mute:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
	Press:     key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "press")),
	Reconnect: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reconnect")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Quieter, k.Louder, k.Mute, k.Press, k.Reconnect, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Quieter, k.Louder, k.Mute, k.Press},
		{k.Reconnect, k.Quit},
	}
}
