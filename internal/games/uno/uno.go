// Package uno is the card game example for 2 to 4 players sharing one
// terminal.
package uno

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/quickpython/internal/console"
)

// Title is shown in the banner.
const Title = "Uno"

var cardColors = map[Color]lipgloss.Color{
	Blue:   "4",
	Green:  "2",
	Red:    "1",
	Yellow: "3",
}

// Game runs a table in the console.
type Game struct {
	players int
}

// New returns a game for players people.
func New(players int) (*Game, error) {
	if players < 2 || players > 4 {
		return nil, fmt.Errorf("uno: %d players, want 2 to 4", players)
	}
	return &Game{players: players}, nil
}

// Play deals a new table and runs it to a winner.
func (g *Game) Play(c *console.Console) error {
	table, err := NewTable(g.players, c.Shuffle)
	if err != nil {
		return err
	}
	return g.play(c, table)
}

func (g *Game) play(c *console.Console, table *Table) error {
	message := ""
	for {
		if winner, ok := table.Winner(); ok {
			show(c, table, "")
			c.Printf("P%d wins!\n", winner+1)
			return nil
		}
		show(c, table, message)
		message = ""
		input, err := c.Prompt("choose a card to place;\n> ")
		if err != nil {
			return err
		}
		if strings.TrimSpace(input) == "+" {
			if err := table.Draw(); err != nil {
				message = drawMessage(err)
			}
			continue
		}
		idx, err := table.Select(input)
		if err != nil {
			message = err.Error()
			continue
		}
		card := table.Hand(table.Current())[idx]
		if !table.CanPlay(card) {
			message = ErrIllegalCard.Error()
			continue
		}
		var color Color
		if card.Wild() {
			if color, err = chooseColor(c, table); err != nil {
				return err
			}
		}
		if err := table.Play(idx, color); err != nil {
			message = err.Error()
		}
	}
}

func drawMessage(err error) string {
	if errors.Is(err, ErrDeckExhausted) {
		return "there are no cards left to draw"
	}
	return err.Error()
}

func chooseColor(c *console.Console, table *Table) (Color, error) {
	for {
		show(c, table, "")
		input, err := c.Prompt("choose a color;\n> ")
		if err != nil {
			return "", err
		}
		if color, ok := ParseColor(input); ok {
			return color, nil
		}
	}
}

// FormatCard colours the short name of card.
func FormatCard(card Card) string {
	fg, ok := cardColors[card.Color]
	if !ok {
		return card.Short()
	}
	return lipgloss.NewStyle().Foreground(fg).Render(card.Short())
}

func formatTop(table *Table) string {
	top := table.Top()
	if !top.Wild() {
		return FormatCard(top)
	}
	fg, ok := cardColors[table.Color()]
	if !ok {
		return top.Short()
	}
	return lipgloss.NewStyle().Foreground(fg).Render(top.Short())
}

// seats places up to four players top, right, bottom and left.
func seats(table *Table) ([4]string, [4]string) {
	names := [4]string{"--", "--", "--", "--"}
	for p := 0; p < table.Players(); p++ {
		names[p] = fmt.Sprintf("P%d", p+1)
	}
	pointers := [4]string{" ", " ", " ", " "}
	arrows := [4]string{"/\\", ">", "\\/", "<"}
	pointers[table.Current()] = arrows[table.Current()]
	return names, pointers
}

// Render draws the table around the top card and lists the current hand.
func Render(table *Table) string {
	names, pointers := seats(table)
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%d left in deck\n\n", table.DeckLen())
	fmt.Fprintf(&sb, "         %s\n         %s\n\n", names[0], pointers[0])
	fmt.Fprintf(&sb, "%s %s     %s     %s %s\n\n", names[3], pointers[3], formatTop(table), pointers[1], names[1])
	fmt.Fprintf(&sb, "         %s\n         %s\n", pointers[2], names[2])
	return sb.String()
}

func show(c *console.Console, table *Table, message string) {
	c.Cls()
	c.Println(Render(table))
	c.Println()
	if message != "" {
		c.Println(message)
		c.Println()
	}
	c.Printf("P%d\n", table.Current()+1)
	hand := table.Hand(table.Current())
	parts := make([]string, len(hand))
	for i, card := range hand {
		parts[i] = FormatCard(card)
	}
	c.Println(strings.Join(parts, " "))
	c.Println()
}
