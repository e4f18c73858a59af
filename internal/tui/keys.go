package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keyboard bindings for the listen view.
type KeyMap struct {
	Toggle key.Binding
	Clear  key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" ", "enter", "s"),
			key.WithHelp("space", "start/stop"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear history"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
