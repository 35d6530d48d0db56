// Package simon is the colour sequence memory example.
package simon

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/quickpython/internal/console"
)

// Title is shown in the banner.
const Title = "Simon Says"

// Color is one pad of the board.
type Color struct {
	Name  string
	Value lipgloss.Color
}

// Initial is what the player types for the colour.
func (c Color) Initial() string {
	return c.Name[:1]
}

var (
	red     = Color{Name: "red", Value: "1"}
	green   = Color{Name: "green", Value: "2"}
	blue    = Color{Name: "blue", Value: "4"}
	yellow  = Color{Name: "yellow", Value: "3"}
	cyan    = Color{Name: "cyan", Value: "6"}
	magenta = Color{Name: "magenta", Value: "5"}
)

type level struct {
	colors []Color
	flash  time.Duration
}

var levels = map[string]level{
	"easy":         {colors: []Color{red, green, blue, yellow}, flash: 500 * time.Millisecond},
	"intermediate": {colors: []Color{red, green, blue, yellow, cyan}, flash: 400 * time.Millisecond},
	"hard":         {colors: []Color{green, blue, yellow, cyan, magenta}, flash: 300 * time.Millisecond},
}

const (
	padWidth  = 16
	padHeight = 7
)

var frameStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).MarginLeft(16)

// Game is one round at a fixed difficulty.
type Game struct {
	level level
}

// New returns a game for difficulty.
func New(difficulty string) (*Game, error) {
	l, ok := levels[difficulty]
	if !ok {
		return nil, fmt.Errorf("simon: unknown difficulty %q", difficulty)
	}
	return &Game{level: l}, nil
}

// Answer is the expected input for sequence.
func Answer(sequence []Color) string {
	var sb strings.Builder
	for _, c := range sequence {
		sb.WriteString(c.Initial())
	}
	return sb.String()
}

// Play runs rounds until the player gets one wrong.
func (g *Game) Play(c *console.Console) error {
	var sequence []Color
	for {
		sequence = append(sequence, g.level.colors[c.Intn(len(g.level.colors))])
		for _, color := range sequence {
			c.Cls()
			c.Println(pad(&color))
			c.Pause(g.level.flash)
			c.Cls()
			c.Println(pad(nil))
			c.Pause(g.level.flash)
		}
		c.Println()
		input, err := c.Prompt("> ")
		if err != nil {
			return err
		}
		if normalize(input) != Answer(sequence) {
			c.Beep()
			break
		}
	}
	c.Println()
	c.Printf("you got %d correct combinations\n", len(sequence)-1)
	return nil
}

func normalize(input string) string {
	return strings.ToLower(strings.ReplaceAll(input, " ", ""))
}

func pad(color *Color) string {
	fill := lipgloss.NewStyle().Width(padWidth).Height(padHeight)
	if color != nil {
		fill = fill.Background(color.Value)
	}
	return frameStyle.Render(fill.Render(""))
}
