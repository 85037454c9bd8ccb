package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Generate key.Binding
	Scan     key.Binding
	Submit   key.Binding
	Back     key.Binding
	Refresh  key.Binding
	Accept   key.Binding
	Reject   key.Binding
	Reopen   key.Binding
	Quit     key.Binding
}

var defaultKeys = keyMap{
	Generate: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "send data")),
	Scan:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "receive data")),
	Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "scan")),
	Back:     key.NewBinding(key.WithKeys("esc", "b"), key.WithHelp("esc", "back")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "new code")),
	Accept:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "overwrite my data")),
	Reject:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "cancel")),
	Reopen:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start over")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// bindings adapts a slice of bindings to help.KeyMap.
type bindings []key.Binding

func (b bindings) ShortHelp() []key.Binding  { return b }
func (b bindings) FullHelp() [][]key.Binding { return [][]key.Binding{b} }
