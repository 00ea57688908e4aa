package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings of the ticket browser. Arrow navigation itself
// goes through carousel.KeyCommand so the confirm dialog can gate it.
type KeyMap struct {
	Previous key.Binding
	Next     key.Binding
	Images   key.Binding
	Delete   key.Binding
	Confirm  key.Binding
	Cancel   key.Binding
	Reload   key.Binding
	Quit     key.Binding
}

var DefaultKeyMap = KeyMap{
	Previous: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "previous"),
	),
	Next: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "next"),
	),
	Images: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "images"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("y", "enter"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "esc"),
		key.WithHelp("esc", "close"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k KeyMap) help(bindings ...key.Binding) string {
	out := ""
	for i, b := range bindings {
		if i > 0 {
			out += "  "
		}
		h := b.Help()
		out += h.Key + " " + h.Desc
	}
	return out
}
