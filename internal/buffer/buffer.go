// Package buffer holds the text edits bound to editor keys. Every function is
// pure: it takes the buffer text and a cursor and returns the new text and
// cursor, so the code pane only has to apply the result.
package buffer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Edit is the result of a text operation.
type Edit struct {
	Text string
	Row  int
	Col  int
}

// NewLineOptions controls autoformat-on-enter.
type NewLineOptions struct {
	TabSize       int
	AutoIndent    bool
	StripTrailing bool
}

// dedenters end a block, so the line after them loses one level.
var dedenters = map[string]struct{}{
	"return":   {},
	"pass":     {},
	"break":    {},
	"continue": {},
	"raise":    {},
}

// Lines splits text into its lines. An empty text has one empty line.
func Lines(text string) []string {
	return strings.Split(text, "\n")
}

// Line returns the line at row, or "" when row is out of range.
func Line(text string, row int) string {
	lines := Lines(text)
	if row < 0 || row >= len(lines) {
		return ""
	}
	return lines[row]
}

// Position clamps a cursor to the text.
func Position(text string, row, col int) (int, int) {
	lines := Lines(text)
	if row < 0 {
		row = 0
	}
	if row >= len(lines) {
		row = len(lines) - 1
	}
	width := utf8.RuneCountInString(lines[row])
	if col < 0 {
		col = 0
	}
	if col > width {
		col = width
	}
	return row, col
}

// Indent inserts spaces at the cursor up to the next tab stop.
func Indent(text string, row, col, tabSize int) Edit {
	tabSize = normalizeTab(tabSize)
	row, col = Position(text, row, col)
	lines := Lines(text)
	runes := []rune(lines[row])
	pad := tabSize - (col % tabSize)
	lines[row] = string(runes[:col]) + strings.Repeat(" ", pad) + string(runes[col:])
	return Edit{Text: strings.Join(lines, "\n"), Row: row, Col: col + pad}
}

// Dedent removes up to one indentation level from the start of the line.
func Dedent(text string, row, col, tabSize int) Edit {
	tabSize = normalizeTab(tabSize)
	row, col = Position(text, row, col)
	lines := Lines(text)
	line := lines[row]
	removed := 0
	switch {
	case strings.HasPrefix(line, "\t"):
		removed = 1
	default:
		lead := len(line) - len(strings.TrimLeft(line, " "))
		removed = lead % tabSize
		if removed == 0 {
			removed = min(tabSize, lead)
		}
	}
	lines[row] = line[removed:]
	return Edit{Text: strings.Join(lines, "\n"), Row: row, Col: max(0, col-removed)}
}

// NewLine splits the line at the cursor the way Enter does in the code pane.
func NewLine(text string, row, col int, opts NewLineOptions) Edit {
	tabSize := normalizeTab(opts.TabSize)
	row, col = Position(text, row, col)
	lines := Lines(text)
	runes := []rune(lines[row])
	left := string(runes[:col])
	right := string(runes[col:])

	indent := ""
	if opts.AutoIndent {
		indent = leadingWhitespace(left)
		trimmed := strings.TrimSpace(left)
		switch {
		case strings.HasSuffix(trimmed, ":"):
			indent += strings.Repeat(" ", tabSize)
		case isDedenter(trimmed):
			indent = shrinkIndent(indent, tabSize)
		}
		right = strings.TrimLeft(right, " \t")
	}
	if opts.StripTrailing {
		left = strings.TrimRight(left, " \t")
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:row]...)
	out = append(out, left, indent+right)
	out = append(out, lines[row+1:]...)
	return Edit{Text: strings.Join(out, "\n"), Row: row + 1, Col: utf8.RuneCountInString(indent)}
}

// Insert places s at the cursor. s may span several lines.
func Insert(text string, row, col int, s string) Edit {
	row, col = Position(text, row, col)
	lines := Lines(text)
	runes := []rune(lines[row])
	merged := string(runes[:col]) + s + string(runes[col:])
	inserted := Lines(s)
	out := make([]string, 0, len(lines)+len(inserted))
	out = append(out, lines[:row]...)
	out = append(out, Lines(merged)...)
	out = append(out, lines[row+1:]...)
	newRow := row + len(inserted) - 1
	newCol := utf8.RuneCountInString(inserted[len(inserted)-1])
	if len(inserted) == 1 {
		newCol += col
	}
	return Edit{Text: strings.Join(out, "\n"), Row: newRow, Col: newCol}
}

// CutLine removes the line at row and returns it with a trailing newline.
func CutLine(text string, row int) (Edit, string) {
	row, _ = Position(text, row, 0)
	lines := Lines(text)
	cut := lines[row] + "\n"
	if len(lines) == 1 {
		return Edit{Text: "", Row: 0, Col: 0}, cut
	}
	out := append(append([]string{}, lines[:row]...), lines[row+1:]...)
	if row >= len(out) {
		row = len(out) - 1
	}
	return Edit{Text: strings.Join(out, "\n"), Row: row, Col: 0}, cut
}

// StripTrailingWhitespace removes trailing blanks from every line.
func StripTrailingWhitespace(text string) string {
	lines := Lines(text)
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.Join(lines, "\n")
}

// ParseLine reads a 1-based line number typed by the user.
func ParseLine(input string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("buffer: %q is not a line number", strings.TrimSpace(input))
	}
	return n, nil
}

// GotoLine converts a 1-based line number to a row in text.
func GotoLine(text string, line int) (int, error) {
	count := len(Lines(text))
	if line < 1 || line > count {
		return 0, fmt.Errorf("buffer: line %d out of range 1-%d", line, count)
	}
	return line - 1, nil
}

func leadingWhitespace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

func shrinkIndent(indent string, tabSize int) string {
	if strings.HasSuffix(indent, "\t") {
		return indent[:len(indent)-1]
	}
	return indent[:max(0, len(indent)-tabSize)]
}

func isDedenter(trimmed string) bool {
	word := trimmed
	if idx := strings.IndexAny(trimmed, " (\t"); idx >= 0 {
		word = trimmed[:idx]
	}
	_, ok := dedenters[word]
	return ok
}

func normalizeTab(tabSize int) int {
	if tabSize < 1 {
		return 4
	}
	return tabSize
}
