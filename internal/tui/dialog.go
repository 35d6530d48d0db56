package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type dialogKind int

const (
	dialogInput   dialogKind = iota // single line of text: open, save as, go to line
	dialogConfirm                   // yes / no / cancel
	dialogMessage                   // scrollable text: about, keys, errors
)

type confirmChoice int

const (
	choiceYes confirmChoice = iota
	choiceNo
	choiceCancel
)

type dialog struct {
	kind   dialogKind
	title  string
	prompt string
	input  textinput.Model
	body   viewport.Model

	submit func(value string) tea.Cmd
	answer func(choice confirmChoice) tea.Cmd
}

var (
	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#AAAAAA")).
			Padding(0, 1)
	dialogTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFF55"))
	dialogHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

func newInputDialog(title, prompt, value string, width int, submit func(string) tea.Cmd) *dialog {
	in := textinput.New()
	in.Prompt = "> "
	in.SetValue(value)
	in.CursorEnd()
	in.Width = max(20, width-8)
	in.Focus()
	return &dialog{kind: dialogInput, title: title, prompt: prompt, input: in, submit: submit}
}

func newConfirmDialog(title, prompt string, answer func(confirmChoice) tea.Cmd) *dialog {
	return &dialog{kind: dialogConfirm, title: title, prompt: prompt, answer: answer}
}

func newMessageDialog(title, content string, width, height int) *dialog {
	body := viewport.New(max(20, width-6), max(3, min(height-6, lipgloss.Height(content))))
	body.SetContent(content)
	return &dialog{kind: dialogMessage, title: title, body: body}
}

// update handles a key while the dialog is open. done reports that the
// dialog should close.
func (d *dialog) update(msg tea.KeyMsg) (done bool, cmd tea.Cmd) {
	switch d.kind {
	case dialogInput:
		switch msg.String() {
		case "esc":
			return true, nil
		case "enter":
			if d.submit == nil {
				return true, nil
			}
			return true, d.submit(strings.TrimSpace(d.input.Value()))
		}
		d.input, cmd = d.input.Update(msg)
		return false, cmd
	case dialogConfirm:
		choice := choiceCancel
		switch strings.ToLower(msg.String()) {
		case "y", "enter":
			choice = choiceYes
		case "n":
			choice = choiceNo
		case "esc", "c":
		default:
			return false, nil
		}
		if d.answer == nil {
			return true, nil
		}
		return true, d.answer(choice)
	default:
		switch msg.String() {
		case "esc", "enter", "q":
			return true, nil
		}
		d.body, cmd = d.body.Update(msg)
		return false, cmd
	}
}

func (d *dialog) view() string {
	parts := []string{dialogTitleStyle.Render(d.title)}
	switch d.kind {
	case dialogInput:
		if d.prompt != "" {
			parts = append(parts, d.prompt)
		}
		parts = append(parts, d.input.View(), dialogHintStyle.Render("enter ok · esc cancel"))
	case dialogConfirm:
		parts = append(parts, d.prompt, dialogHintStyle.Render("(y)es · (n)o · esc cancel"))
	default:
		parts = append(parts, d.body.View(), dialogHintStyle.Render("↑/↓ scroll · enter close"))
	}
	return dialogStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// renderMarkdown renders help text, falling back to the source when the
// renderer cannot be built.
func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(20, width)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
