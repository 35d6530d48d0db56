package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// keyMap lists every editor binding. Bindings are checked before the code
// pane sees a key, so they win over the textarea's own emacs-style keys.
type keyMap struct {
	Menu           key.Binding
	New            key.Binding
	Open           key.Binding
	Save           key.Binding
	Quit           key.Binding
	Indent         key.Binding
	Dedent         key.Binding
	Goto           key.Binding
	CopyLine       key.Binding
	CutLine        key.Binding
	Paste          key.Binding
	Format         key.Binding
	ClearImmediate key.Binding
	Focus          key.Binding
	Run            key.Binding
	Stop           key.Binding
	Help           key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Menu:           key.NewBinding(key.WithKeys("f10"), key.WithHelp("f10", "menu")),
		New:            key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new")),
		Open:           key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "open")),
		Save:           key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Quit:           key.NewBinding(key.WithKeys("ctrl+q"), key.WithHelp("ctrl+q", "exit")),
		Indent:         key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "indent")),
		Dedent:         key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "dedent")),
		Goto:           key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "go to line")),
		CopyLine:       key.NewBinding(key.WithKeys("alt+c"), key.WithHelp("alt+c", "copy line")),
		CutLine:        key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "cut line")),
		Paste:          key.NewBinding(key.WithKeys("ctrl+v"), key.WithHelp("ctrl+v", "paste")),
		Format:         key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "format")),
		ClearImmediate: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear immediate")),
		Focus:          key.NewBinding(key.WithKeys("f6"), key.WithHelp("f6", "switch pane")),
		Run:            key.NewBinding(key.WithKeys("f5"), key.WithHelp("f5", "run")),
		Stop:           key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "stop")),
		Help:           key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "keys")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Menu, k.Run, k.Save, k.Open, k.Focus, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.New, k.Open, k.Save, k.Quit},
		{k.Indent, k.Dedent, k.Goto, k.Format},
		{k.CopyLine, k.CutLine, k.Paste},
		{k.Menu, k.Focus, k.ClearImmediate, k.Help},
		{k.Run, k.Stop},
	}
}

// markdown renders the bindings as a table for the Keys dialog.
func (k keyMap) markdown() string {
	var sb strings.Builder
	sb.WriteString("# Keys\n\n| Key | Action |\n| --- | --- |\n")
	for _, group := range k.FullHelp() {
		for _, b := range group {
			h := b.Help()
			fmt.Fprintf(&sb, "| `%s` | %s |\n", h.Key, h.Desc)
		}
	}
	sb.WriteString("| `alt+f` `alt+e` `alt+v` `alt+r` `alt+x` `alt+h` | open a menu |\n")
	sb.WriteString("\nIn a menu the arrows move, `enter` picks and `esc` closes.\n")
	return sb.String()
}
