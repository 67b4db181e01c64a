package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	save     key.Binding
	skip     key.Binding
	undo     key.Binding
	mute     key.Binding
	summary  key.Binding
	playlist key.Binding
	enter    key.Binding
	back     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		save:     key.NewBinding(key.WithKeys("right", "s"), key.WithHelp("→/s", "save")),
		skip:     key.NewBinding(key.WithKeys("left", "x"), key.WithHelp("←/x", "skip")),
		undo:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		mute:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute channel")),
		summary:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "summary")),
		playlist: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "playlist")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.save, k.skip, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.save, k.skip, k.undo},
		{k.mute, k.summary, k.playlist},
		{k.back, k.quit},
	}
}
