// Package minesweeper is the classic mine-clearing example.
package minesweeper

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/quickpython/internal/console"
)

// Title is shown in the banner.
const Title = "Minesweeper"

var (
	// ErrCannotFlag is returned when flagging a revealed cell.
	ErrCannotFlag = errors.New("cannot put a flag there")
	// ErrFlagged is returned when revealing a flagged cell.
	ErrFlagged = errors.New("there is a flag there")
	// ErrShown is returned when revealing a cell twice.
	ErrShown = errors.New("that cell is already shown")
	// ErrMine is returned when a mine is revealed.
	ErrMine = errors.New("you lose")
)

const invalidMsg = "invalid coordinates"

type level struct {
	size  int
	mines int
}

var levels = map[string]level{
	"easy":         {size: 10, mines: 10},
	"intermediate": {size: 18, mines: 50},
	"hard":         {size: 20, mines: 100},
}

var numberColors = []lipgloss.Color{"11", "3", "13", "5", "9", "1", "14", "6"}

var coordinatePattern = regexp.MustCompile(`^([A-Z])([1-9][0-9]?)(F?)$`)

type cellState int

const (
	stateHidden cellState = iota
	stateShown
	stateFlagged
)

// Grid is a square minefield.
type Grid struct {
	size      int
	mineCount int
	mines     map[int]bool
	numbers   []int
	state     []cellState
	flags     map[int]bool
}

// NewGrid returns an unarmed grid; Start places the mines.
func NewGrid(size, mines int) (*Grid, error) {
	if size < 3 || size > 26 {
		return nil, fmt.Errorf("minesweeper: grid size %d out of range", size)
	}
	if mines < 1 || mines > size*size-9 {
		return nil, fmt.Errorf("minesweeper: %d mines do not fit a %dx%d grid", mines, size, size)
	}
	return &Grid{
		size:      size,
		mineCount: mines,
		mines:     map[int]bool{},
		numbers:   make([]int, size*size),
		state:     make([]cellState, size*size),
		flags:     map[int]bool{},
	}, nil
}

// Size is the grid width and height.
func (g *Grid) Size() int {
	return g.size
}

// Neighbors lists the cells around idx.
func (g *Grid) Neighbors(idx int) []int {
	row, col := idx/g.size, idx%g.size
	out := make([]int, 0, 8)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			r, c := row+dr, col+dc
			if r < 0 || r >= g.size || c < 0 || c >= g.size {
				continue
			}
			out = append(out, r*g.size+c)
		}
	}
	return out
}

// Start places mines away from first and its neighbours, then reveals first.
func (g *Grid) Start(first int, intn func(int) int) {
	excluded := map[int]bool{first: true}
	for _, n := range g.Neighbors(first) {
		excluded[n] = true
	}
	mines := make([]int, 0, g.mineCount)
	chosen := map[int]bool{}
	for len(mines) < g.mineCount {
		idx := intn(g.size * g.size)
		if excluded[idx] || chosen[idx] {
			continue
		}
		chosen[idx] = true
		mines = append(mines, idx)
	}
	g.arm(mines)
	_ = g.Reveal(first)
}

func (g *Grid) arm(mines []int) {
	g.mines = map[int]bool{}
	for _, m := range mines {
		g.mines[m] = true
	}
	g.mineCount = len(g.mines)
	for idx := range g.numbers {
		count := 0
		for _, n := range g.Neighbors(idx) {
			if g.mines[n] {
				count++
			}
		}
		g.numbers[idx] = count
	}
}

// Reveal shows idx; zero cells open their unflagged neighbours.
func (g *Grid) Reveal(idx int) error {
	switch g.state[idx] {
	case stateFlagged:
		return ErrFlagged
	case stateShown:
		return ErrShown
	}
	if g.mines[idx] {
		return ErrMine
	}
	stack := []int{idx}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if g.state[cur] != stateHidden {
			continue
		}
		g.state[cur] = stateShown
		if g.numbers[cur] != 0 {
			continue
		}
		for _, n := range g.Neighbors(cur) {
			if g.state[n] == stateHidden && !g.mines[n] {
				stack = append(stack, n)
			}
		}
	}
	return nil
}

// ToggleFlag flags or unflags a hidden cell.
func (g *Grid) ToggleFlag(idx int) error {
	switch g.state[idx] {
	case stateHidden:
		g.state[idx] = stateFlagged
		g.flags[idx] = true
	case stateFlagged:
		g.state[idx] = stateHidden
		delete(g.flags, idx)
	default:
		return ErrCannotFlag
	}
	return nil
}

// MinesLeft is the mine count less the flags placed.
func (g *Grid) MinesLeft() int {
	return g.mineCount - len(g.flags)
}

// Won reports whether the flags match the mines exactly or every safe cell
// is shown.
func (g *Grid) Won() bool {
	if len(g.flags) == len(g.mines) {
		exact := true
		for idx := range g.flags {
			if !g.mines[idx] {
				exact = false
				break
			}
		}
		if exact {
			return true
		}
	}
	for idx, s := range g.state {
		if !g.mines[idx] && s != stateShown {
			return false
		}
	}
	return true
}

// Parse converts "C7" or "C7F" into a cell index and a flag marker.
func (g *Grid) Parse(coordinates string) (int, bool, error) {
	m := coordinatePattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(coordinates)))
	if m == nil {
		return 0, false, errors.New(invalidMsg)
	}
	col := int(m[1][0] - 'A')
	row, _ := strconv.Atoi(m[2])
	if col >= g.size || row < 1 || row > g.size {
		return 0, false, errors.New(invalidMsg)
	}
	return (row-1)*g.size + col, m[3] == "F", nil
}

// Render draws the grid; reveal shows every mine and number.
func (g *Grid) Render(reveal bool) string {
	var sb strings.Builder
	sb.WriteString("     ")
	for c := 0; c < g.size; c++ {
		fmt.Fprintf(&sb, "%c   ", 'A'+c)
	}
	rule := "   " + strings.Repeat("-", 4*g.size) + "-"
	fmt.Fprintf(&sb, "\n%s", rule)
	for row := 0; row < g.size; row++ {
		fmt.Fprintf(&sb, "\n%2d |", row+1)
		for col := 0; col < g.size; col++ {
			fmt.Fprintf(&sb, " %s |", g.glyph(row*g.size+col, reveal))
		}
		fmt.Fprintf(&sb, "\n%s", rule)
	}
	return sb.String()
}

func (g *Grid) glyph(idx int, reveal bool) string {
	if !reveal {
		switch g.state[idx] {
		case stateHidden:
			return " "
		case stateFlagged:
			return "F"
		}
	}
	if g.mines[idx] {
		return "X"
	}
	n := g.numbers[idx]
	if n == 0 {
		return "0"
	}
	return lipgloss.NewStyle().Foreground(numberColors[n-1]).Render(strconv.Itoa(n))
}

// Game is one round at a fixed difficulty.
type Game struct {
	level level
}

// New returns a game for difficulty.
func New(difficulty string) (*Game, error) {
	l, ok := levels[difficulty]
	if !ok {
		return nil, fmt.Errorf("minesweeper: unknown difficulty %q", difficulty)
	}
	return &Game{level: l}, nil
}

// Play runs one round.
func (g *Game) Play(c *console.Console) error {
	return g.play(c, func(grid *Grid, first int) { grid.Start(first, c.Intn) })
}

func (g *Game) play(c *console.Console, start func(*Grid, int)) error {
	grid, err := NewGrid(g.level.size, g.level.mines)
	if err != nil {
		return err
	}
	message := ""
	for {
		show(c, grid, message, false)
		message = ""
		input, err := c.Prompt("coordinates;\n> ")
		if err != nil {
			return err
		}
		idx, flag, err := grid.Parse(input)
		if err != nil || flag {
			message = invalidMsg
			continue
		}
		start(grid, idx)
		break
	}

	for !grid.Won() {
		status := message
		if status == "" {
			status = minesLeft(grid.MinesLeft())
		}
		show(c, grid, status, false)
		message = ""
		input, err := c.Prompt("coordinates;\n> ")
		if err != nil {
			return err
		}
		idx, flag, err := grid.Parse(input)
		if err != nil {
			message = err.Error()
			continue
		}
		if flag {
			if err := grid.ToggleFlag(idx); err != nil {
				message = err.Error()
			}
			continue
		}
		err = grid.Reveal(idx)
		switch {
		case errors.Is(err, ErrMine):
			show(c, grid, "", true)
			c.Beep()
			c.Println(ErrMine.Error())
			return nil
		case err != nil:
			message = err.Error()
		}
	}
	show(c, grid, "", true)
	c.Println("you win")
	return nil
}

func minesLeft(n int) string {
	if n == 1 {
		return "1 mine left"
	}
	return fmt.Sprintf("%d mines left", n)
}

func show(c *console.Console, grid *Grid, message string, reveal bool) {
	c.Cls()
	c.Println()
	c.Println(grid.Render(reveal))
	c.Println()
	if message != "" {
		c.Println(message)
		c.Println()
	}
}
