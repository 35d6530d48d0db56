// Package memory is the pair-matching example: find every pair of hidden
// characters by turning over two cells at a time.
package memory

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kingrea/quickpython/internal/console"
)

// Title is shown in the banner.
const Title = "Memory"

const (
	hidden      = ' '
	revealDelay = time.Second
	invalidMsg  = "invalid coordinates"
)

var gridSizes = map[string]int{"easy": 6, "intermediate": 10, "hard": 14}

// characters holds enough symbols for the hard grid (98 pairs).
var characters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!\"£$%^&*()-_=+[{]};:'@#~,<.>/?\\|`¬áé")

var coordinatePattern = regexp.MustCompile(`^([A-Z])([1-9][0-9]?)$`)

// Board is the grid of hidden pairs.
type Board struct {
	size  int
	cells []rune
	known []bool
}

// NewBoard lays out (size/2)^2 pairs and shuffles them with shuffle.
func NewBoard(size int, shuffle func(n int, swap func(i, j int))) (*Board, error) {
	if size < 2 || size%2 != 0 {
		return nil, fmt.Errorf("memory: grid size must be even, got %d", size)
	}
	pairs := (size / 2) * (size / 2) * 2
	if pairs > len(characters) {
		return nil, fmt.Errorf("memory: grid size %d is too large", size)
	}
	cells := make([]rune, 0, pairs*2)
	cells = append(cells, characters[:pairs]...)
	cells = append(cells, characters[:pairs]...)
	if shuffle != nil {
		shuffle(len(cells), func(i, j int) { cells[i], cells[j] = cells[j], cells[i] })
	}
	return &Board{size: size, cells: cells, known: make([]bool, len(cells))}, nil
}

// Size is the grid width and height.
func (b *Board) Size() int {
	return b.size
}

// Parse converts "B3" into a cell index.
func (b *Board) Parse(coordinates string) (int, error) {
	m := coordinatePattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(coordinates)))
	if m == nil {
		return 0, fmt.Errorf("memory: %s", invalidMsg)
	}
	column := int(m[1][0] - 'A')
	row, _ := strconv.Atoi(m[2])
	if column >= b.size || row < 1 || row > b.size {
		return 0, fmt.Errorf("memory: %s", invalidMsg)
	}
	return (row-1)*b.size + column, nil
}

// Reveal turns a hidden cell over.
func (b *Board) Reveal(idx int) error {
	if idx < 0 || idx >= len(b.cells) || b.known[idx] {
		return fmt.Errorf("memory: %s", invalidMsg)
	}
	b.known[idx] = true
	return nil
}

// Match reports whether two revealed cells hold the same character; when they
// do not, both are hidden again.
func (b *Board) Match(first, second int) bool {
	if b.cells[first] == b.cells[second] {
		return true
	}
	b.known[first] = false
	b.known[second] = false
	return false
}

// Done reports whether every cell is revealed.
func (b *Board) Done() bool {
	for _, k := range b.known {
		if !k {
			return false
		}
	}
	return true
}

// Render draws the grid with column letters and row numbers.
func (b *Board) Render() string {
	var sb strings.Builder
	letters := make([]string, b.size)
	for i := range letters {
		letters[i] = string(rune('a' + i))
	}
	rule := "     " + strings.Repeat("-", b.size*4+1)
	fmt.Fprintf(&sb, "       %s\n%s\n", strings.Join(letters, "   "), rule)
	for row := 0; row < b.size; row++ {
		fmt.Fprintf(&sb, "  %2d ", row+1)
		for col := 0; col < b.size; col++ {
			idx := row*b.size + col
			cell := hidden
			if b.known[idx] {
				cell = b.cells[idx]
			}
			fmt.Fprintf(&sb, "| %c ", cell)
		}
		fmt.Fprintf(&sb, "|\n%s\n", rule)
	}
	return sb.String()
}

// Game is one round of memory at a fixed difficulty.
type Game struct {
	size int
}

// New returns a game for difficulty.
func New(difficulty string) (*Game, error) {
	size, ok := gridSizes[difficulty]
	if !ok {
		return nil, fmt.Errorf("memory: unknown difficulty %q", difficulty)
	}
	return &Game{size: size}, nil
}

// Play runs one round.
func (g *Game) Play(c *console.Console) error {
	board, err := NewBoard(g.size, c.Shuffle)
	if err != nil {
		return err
	}
	return g.play(c, board)
}

func (g *Game) play(c *console.Console, board *Board) error {
	message := ""
	for !board.Done() {
		first, err := pick(c, board, &message, "coordinates;\n> ")
		if err != nil {
			return err
		}
		second, err := pick(c, board, &message, "> ")
		if err != nil {
			return err
		}
		show(c, board, "")
		c.Pause(revealDelay)
		board.Match(first, second)
	}
	show(c, board, "")
	c.Println("congrats")
	return nil
}

func pick(c *console.Console, board *Board, message *string, label string) (int, error) {
	for {
		show(c, board, *message)
		*message = ""
		input, err := c.Prompt(label)
		if err != nil {
			return 0, err
		}
		idx, err := board.Parse(input)
		if err == nil {
			err = board.Reveal(idx)
		}
		if err != nil {
			*message = invalidMsg
			continue
		}
		return idx, nil
	}
}

func show(c *console.Console, board *Board, message string) {
	c.Cls()
	c.Println()
	c.Printf("%s", board.Render())
	c.Println()
	if message != "" {
		c.Println(message)
		c.Println()
	}
}
