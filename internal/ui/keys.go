package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Down     key.Binding
	Up       key.Binding
	NextCard key.Binding
	PrevCard key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Retry    key.Binding
	Debug    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "scroll")),
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "scroll up")),
		NextCard: key.NewBinding(key.WithKeys(" ", "pgdown"), key.WithHelp("space", "next")),
		PrevCard: key.NewBinding(key.WithKeys("b", "pgup"), key.WithHelp("b", "prev")),
		Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "end")),
		Retry:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "play")),
		Debug:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "debug")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextCard, k.Retry, k.Debug, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up, k.NextCard, k.PrevCard},
		{k.Top, k.Bottom, k.Retry},
		{k.Debug, k.Help, k.Quit},
	}
}
