package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	enter     key.Binding
	back      key.Binding
	like      key.Binding
	comment   key.Binding
	play      key.Binding
	stop      key.Binding
	louder    key.Binding
	quieter   key.Binding
	compose   key.Binding
	search    key.Binding
	attach    key.Binding
	submit    key.Binding
	focus     key.Binding
	remove    key.Binding
	profile   key.Binding
	refresh   key.Binding
	quit      key.Binding
	forceQuit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		like:      key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "like")),
		comment:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "comment")),
		play:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play/pause")),
		stop:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		louder:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "vol up")),
		quieter:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "vol down")),
		compose:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new post")),
		search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search music")),
		attach:    key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "attach track")),
		submit:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "send")),
		focus:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch focus")),
		remove:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		profile:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "my posts")),
		refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		forceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.like, k.comment, k.play, k.compose, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.like, k.comment, k.remove, k.refresh},
		{k.play, k.stop, k.louder, k.quieter},
		{k.compose, k.search, k.profile, k.quit},
	}
}
