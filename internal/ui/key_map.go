package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	moveUp  key.Binding
	moveDn  key.Binding
	drop    key.Binding
	panel   key.Binding
	save    key.Binding
	yes     key.Binding
	no      key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "move across")),
		moveUp:  key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "reorder up")),
		moveDn:  key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "reorder down")),
		drop:    key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		panel:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch panel")),
		save:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save reel")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no")),
		restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "back")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.moveUp, k.moveDn, k.drop},
		{k.panel, k.save, k.quit},
	}
}
