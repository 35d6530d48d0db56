package tui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/quickpython/internal/config"
)

// menuAction identifies what a menu entry does.
type menuAction int

const (
	actNew menuAction = iota
	actOpen
	actSave
	actSaveAs
	actReload
	actOpenRecent
	actExit
	actIndent
	actDedent
	actGoto
	actCopyLine
	actCutLine
	actPaste
	actFormat
	actToggleLineNumbers
	actToggleImmediate
	actClearImmediate
	actFocus
	actRun
	actRunTerminal
	actRunCaptured
	actStop
	actExample
	actAbout
	actKeys
)

// menuEntry implements list.Item for a dropdown row.
type menuEntry struct {
	label  string
	hint   string
	action menuAction
	arg    string
}

func (e menuEntry) Title() string       { return e.label }
func (e menuEntry) Description() string { return e.hint }
func (e menuEntry) FilterValue() string { return e.label }

// shortcut is the hint shown at the right of the row; paths and game
// descriptions are too long for a dropdown.
func (e menuEntry) shortcut() string {
	if e.action == actOpenRecent || e.action == actExample {
		return ""
	}
	return e.hint
}

type menu struct {
	title string
	// accel is the alt+<key> shortcut that opens it
	accel   string
	entries func(a *App) []menuEntry
}

var menus = []menu{
	{title: "File", accel: "alt+f", entries: fileEntries},
	{title: "Edit", accel: "alt+e", entries: editEntries},
	{title: "View", accel: "alt+v", entries: viewEntries},
	{title: "Run", accel: "alt+r", entries: runEntries},
	{title: "Examples", accel: "alt+x", entries: exampleEntries},
	{title: "Help", accel: "alt+h", entries: helpEntries},
}

const recentInMenu = 5

func fileEntries(a *App) []menuEntry {
	entries := []menuEntry{
		{label: "New", hint: "Ctrl+N", action: actNew},
		{label: "Open...", hint: "Ctrl+O", action: actOpen},
		{label: "Save", hint: "Ctrl+S", action: actSave},
		{label: "Save As...", action: actSaveAs},
		{label: "Reload", action: actReload},
	}
	for i, path := range a.cfg.RecentFiles() {
		if i == recentInMenu {
			break
		}
		entries = append(entries, menuEntry{
			label:  fmt.Sprintf("%d %s", i+1, filepath.Base(path)),
			hint:   path,
			action: actOpenRecent,
			arg:    path,
		})
	}
	return append(entries, menuEntry{label: "Exit", hint: "Ctrl+Q", action: actExit})
}

func editEntries(*App) []menuEntry {
	return []menuEntry{
		{label: "Indent", hint: "Tab", action: actIndent},
		{label: "Dedent", hint: "Shift+Tab", action: actDedent},
		{label: "Go to Line...", hint: "Ctrl+G", action: actGoto},
		{label: "Copy Line", hint: "Alt+C", action: actCopyLine},
		{label: "Cut Line", hint: "Ctrl+X", action: actCutLine},
		{label: "Paste", hint: "Ctrl+V", action: actPaste},
		{label: "Format", hint: "Ctrl+F", action: actFormat},
	}
}

func viewEntries(a *App) []menuEntry {
	numbers := "Show Line Numbers"
	if a.code.ShowLineNumbers {
		numbers = "Hide Line Numbers"
	}
	immediate := "Show Immediate"
	if a.showImmediate {
		immediate = "Hide Immediate"
	}
	return []menuEntry{
		{label: numbers, action: actToggleLineNumbers},
		{label: immediate, action: actToggleImmediate},
		{label: "Clear Immediate", hint: "Ctrl+L", action: actClearImmediate},
		{label: "Switch Pane", hint: "F6", action: actFocus},
	}
}

func runEntries(a *App) []menuEntry {
	start := "Run (capture)"
	if a.cfg.Run().Mode == config.RunModeTerminal {
		start = "Run (terminal)"
	}
	return []menuEntry{
		{label: start, hint: "F5", action: actRun},
		{label: "Run in Terminal", action: actRunTerminal},
		{label: "Run in Immediate", action: actRunCaptured},
		{label: "Stop", hint: "Ctrl+C", action: actStop},
	}
}

func exampleEntries(a *App) []menuEntry {
	entries := make([]menuEntry, 0, len(a.games))
	for _, info := range a.games {
		entries = append(entries, menuEntry{label: info.Name, hint: info.Description, action: actExample, arg: info.ID})
	}
	return entries
}

func helpEntries(*App) []menuEntry {
	return []menuEntry{
		{label: "Keys", hint: "F1", action: actKeys},
		{label: "About", action: actAbout},
	}
}

var (
	menuBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#AAAAAA"))
	menuActiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Background(lipgloss.Color("#000000"))
	dropdownStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#AAAAAA")).
			Foreground(lipgloss.Color("#000000"))
)

// openMenu shows the dropdown for menus[idx].
func (a *App) openMenu(idx int) {
	n := len(menus)
	idx = ((idx % n) + n) % n
	a.menuIdx = idx
	entries := menus[idx].entries(a)
	items := make([]list.Item, len(entries))
	width := 12
	for i, e := range entries {
		items[i] = e
		width = max(width, len(e.label)+len(e.shortcut())+4)
	}
	a.menuWidth = min(width, max(20, a.width-4))
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	dropdown := list.New(items, menuDelegate{DefaultDelegate: delegate, width: a.menuWidth}, a.menuWidth, len(items))
	dropdown.SetShowTitle(false)
	dropdown.SetShowStatusBar(false)
	dropdown.SetShowHelp(false)
	dropdown.SetShowPagination(false)
	dropdown.SetFilteringEnabled(false)
	a.dropdown = dropdown
	a.state = stateMenu
}

func (a *App) closeMenu() {
	a.state = stateEditing
}

// menuDelegate renders the hint right-aligned on the same row as the label.
type menuDelegate struct {
	list.DefaultDelegate
	width int
}

func (d menuDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	e, ok := item.(menuEntry)
	if !ok {
		return
	}
	hint := e.shortcut()
	gap := max(1, d.width-2-len(e.label)-len(hint))
	row := " " + e.label + strings.Repeat(" ", gap) + hint + " "
	if index == m.Index() {
		row = menuActiveStyle.Render(row)
	}
	_, _ = io.WriteString(w, row)
}

func (a *App) renderMenuBar() string {
	var sb strings.Builder
	for i, m := range menus {
		label := "  " + m.title + "  "
		if a.state == stateMenu && i == a.menuIdx {
			sb.WriteString(menuActiveStyle.Render(label))
			continue
		}
		sb.WriteString(menuBarStyle.Render(label))
	}
	bar := sb.String()
	if pad := a.width - lipgloss.Width(bar); pad > 0 {
		bar += menuBarStyle.Render(strings.Repeat(" ", pad))
	}
	return bar
}

// menuOffset is the column where menus[idx] starts on the bar.
func menuOffset(idx int) int {
	offset := 0
	for i := 0; i < idx && i < len(menus); i++ {
		offset += len(menus[i].title) + 4
	}
	return offset
}

func (a *App) renderDropdown() string {
	box := dropdownStyle.Render(a.dropdown.View())
	return lipgloss.NewStyle().MarginLeft(menuOffset(a.menuIdx)).Render(box)
}
