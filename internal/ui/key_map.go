package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	next    key.Binding
	mode    key.Binding
	toggle  key.Binding
	remove  key.Binding
	open    key.Binding
	refresh key.Binding
	theme   key.Binding
	logout  key.Binding
	yes     key.Binding
	no      key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		next:    key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next field")),
		mode:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "sign in/register")),
		toggle:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "publish/hide")),
		remove:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		open:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		theme:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		logout:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "sign out")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:      key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.toggle, k.remove, k.open, k.refresh},
		{k.theme, k.logout, k.quit},
	}
}
