// Package towers is the Towers of Hanoi example: move the stack from peg A
// to peg C one disc at a time, never placing a disc on a smaller one.
package towers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/quickpython/internal/console"
)

// Title is shown in the banner.
const Title = "Towers"

var (
	// ErrInvalidMove is returned for input that does not name two pegs.
	ErrInvalidMove = errors.New("invalid move")
	// ErrEmptyPeg is returned when moving from a peg with no discs.
	ErrEmptyPeg = errors.New("that peg is empty")
	// ErrLargerOnSmaller is returned when a disc would cover a smaller one.
	ErrLargerOnSmaller = errors.New("a larger disc cannot go on a smaller one")
)

var heights = map[string]int{"easy": 3, "intermediate": 4, "hard": 5}

const pegNames = "ABC"

// Board holds three pegs of discs, bottom first.
type Board struct {
	discs int
	pegs  [3][]int
	moves int
}

// NewBoard stacks n discs on peg A.
func NewBoard(n int) *Board {
	b := &Board{discs: n}
	for size := n; size >= 1; size-- {
		b.pegs[0] = append(b.pegs[0], size)
	}
	return b
}

// ParseMove reads "AC", "a c" or "13" as a (from, to) pair.
func ParseMove(input string) (int, int, error) {
	compact := strings.ToUpper(strings.Join(strings.Fields(input), ""))
	if len(compact) != 2 {
		return 0, 0, ErrInvalidMove
	}
	from, ok := peg(compact[0])
	if !ok {
		return 0, 0, ErrInvalidMove
	}
	to, ok := peg(compact[1])
	if !ok || from == to {
		return 0, 0, ErrInvalidMove
	}
	return from, to, nil
}

func peg(ch byte) (int, bool) {
	if i := strings.IndexByte(pegNames, ch); i >= 0 {
		return i, true
	}
	if ch >= '1' && ch <= '3' {
		return int(ch - '1'), true
	}
	return 0, false
}

// Move shifts the top disc of from onto to.
func (b *Board) Move(from, to int) error {
	src := b.pegs[from]
	if len(src) == 0 {
		return ErrEmptyPeg
	}
	disc := src[len(src)-1]
	dst := b.pegs[to]
	if len(dst) > 0 && dst[len(dst)-1] < disc {
		return ErrLargerOnSmaller
	}
	b.pegs[from] = src[:len(src)-1]
	b.pegs[to] = append(dst, disc)
	b.moves++
	return nil
}

// Solved reports whether every disc is on peg C.
func (b *Board) Solved() bool {
	return len(b.pegs[2]) == b.discs
}

// Moves is the number of moves made.
func (b *Board) Moves() int {
	return b.moves
}

// Optimal is the fewest moves that solve n discs.
func Optimal(n int) int {
	return 1<<n - 1
}

// Render draws the pegs side by side.
func (b *Board) Render() string {
	width := 2*b.discs + 1
	var sb strings.Builder
	for level := b.discs; level >= 0; level-- {
		for p := range b.pegs {
			cell := strings.Repeat(" ", b.discs) + "|" + strings.Repeat(" ", b.discs)
			if level < len(b.pegs[p]) {
				size := b.pegs[p][level]
				pad := strings.Repeat(" ", b.discs-size)
				cell = pad + strings.Repeat("=", 2*size+1) + pad
			}
			sb.WriteString("  " + cell)
		}
		sb.WriteString("\n")
	}
	for p := range b.pegs {
		label := fmt.Sprintf("%*c", b.discs+1, pegNames[p])
		sb.WriteString("  " + label + strings.Repeat(" ", width-len(label)))
	}
	sb.WriteString("\n")
	return sb.String()
}

// Game is one round at a fixed height.
type Game struct {
	discs int
}

// New returns a game for difficulty.
func New(difficulty string) (*Game, error) {
	n, ok := heights[difficulty]
	if !ok {
		return nil, fmt.Errorf("towers: unknown difficulty %q", difficulty)
	}
	return &Game{discs: n}, nil
}

// Play runs one round.
func (g *Game) Play(c *console.Console) error {
	board := NewBoard(g.discs)
	message := ""
	for !board.Solved() {
		c.Cls()
		c.Println()
		c.Println(board.Render())
		if message != "" {
			c.Println(message)
			c.Println()
			message = ""
		}
		input, err := c.Prompt("move (e.g. AC);\n> ")
		if err != nil {
			return err
		}
		from, to, err := ParseMove(input)
		if err == nil {
			err = board.Move(from, to)
		}
		if err != nil {
			message = err.Error()
		}
	}
	c.Cls()
	c.Println()
	c.Println(board.Render())
	c.Printf("solved in %d moves (best possible: %d)\n", board.Moves(), Optimal(g.discs))
	return nil
}
