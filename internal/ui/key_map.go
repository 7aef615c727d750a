package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	refresh key.Binding
	toggle  key.Binding
	reveal  key.Binding
	louder  key.Binding
	quieter key.Binding
	change  key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		refresh: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),
		toggle:  key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "play/pause")),
		reveal:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reveal")),
		louder:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "louder")),
		quieter: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "quieter")),
		change:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "change device")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.refresh},
		{k.toggle, k.reveal, k.louder, k.quieter},
		{k.change, k.quit},
	}
}
