package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Next       key.Binding
	Prev       key.Binding
	First      key.Binding
	Last       key.Binding
	GoTo       key.Binding
	Thumbnails key.Binding
	Sidebar    key.Binding
	Refresh    key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:         key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "scroll up")),
		Down:       key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "scroll down")),
		PageUp:     key.NewBinding(key.WithKeys("pgup", "b"), key.WithHelp("pgup", "screen up")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown", " "), key.WithHelp("pgdn", "screen down")),
		Next:       key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n/→", "next page")),
		Prev:       key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p/←", "prev page")),
		First:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first page")),
		Last:       key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "last page")),
		GoTo:       key.NewBinding(key.WithKeys(":", "/"), key.WithHelp(":", "go to page")),
		Thumbnails: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "thumbnails")),
		Sidebar:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "audit log")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.GoTo, k.Thumbnails, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Next, k.Prev, k.First, k.Last, k.GoTo},
		{k.Thumbnails, k.Sidebar, k.Refresh, k.Help, k.Quit},
	}
}
