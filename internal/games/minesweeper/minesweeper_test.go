package minesweeper

import (
	"bytes"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/quickpython/internal/console"
)

// columnF puts a mine on every row of column F.
func columnF(grid *Grid, first int) {
	mines := make([]int, 0, grid.size)
	for row := 0; row < grid.size; row++ {
		mines = append(mines, row*grid.size+5)
	}
	grid.arm(mines)
	_ = grid.Reveal(first)
}

func bottomRow(grid *Grid, first int) {
	mines := make([]int, 0, grid.size)
	for col := 0; col < grid.size; col++ {
		mines = append(mines, (grid.size-1)*grid.size+col)
	}
	grid.arm(mines)
	_ = grid.Reveal(first)
}

func playScript(t *testing.T, start func(*Grid, int), lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	c := console.New(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out, console.WithPlain())
	g, err := New("easy")
	require.NoError(t, err)
	require.NoError(t, g.play(c, start))
	return out.String()
}

func TestStartKeepsFirstCellClear(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		grid, err := NewGrid(10, 10)
		require.NoError(t, err)
		first := rng.Intn(100)
		grid.Start(first, rng.Intn)
		assert.Len(t, grid.mines, 10)
		assert.False(t, grid.mines[first])
		for _, n := range grid.Neighbors(first) {
			assert.False(t, grid.mines[n], "neighbour %d of %d is a mine", n, first)
		}
		assert.Equal(t, stateShown, grid.state[first])
		assert.Equal(t, 0, grid.numbers[first])
	}
}

func TestNeighborsAtEdges(t *testing.T) {
	grid, err := NewGrid(10, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 10, 11}, grid.Neighbors(0))
	assert.Len(t, grid.Neighbors(55), 8)
	assert.Len(t, grid.Neighbors(9), 3)
	assert.Len(t, grid.Neighbors(50), 5)
}

func TestFloodFillStopsAtNumbers(t *testing.T) {
	grid, err := NewGrid(10, 10)
	require.NoError(t, err)
	columnF(grid, 0)
	for row := 0; row < 10; row++ {
		for col := 0; col < 10; col++ {
			idx := row*10 + col
			want := stateHidden
			if col <= 4 {
				want = stateShown
			}
			assert.Equal(t, want, grid.state[idx], "cell %d", idx)
		}
	}
	assert.Equal(t, 3, grid.numbers[14])
	assert.Equal(t, 2, grid.numbers[4])
	assert.False(t, grid.Won())
}

func TestParse(t *testing.T) {
	grid, err := NewGrid(10, 10)
	require.NoError(t, err)
	idx, flag, err := grid.Parse("c7f")
	require.NoError(t, err)
	assert.Equal(t, 62, idx)
	assert.True(t, flag)
	idx, flag, err = grid.Parse("J10")
	require.NoError(t, err)
	assert.Equal(t, 99, idx)
	assert.False(t, flag)
	for _, bad := range []string{"K1", "A0", "A05", "A00", "B07F", "A11", "AF", "A1FF", "eval(win)"} {
		_, _, err := grid.Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestWinByRevealingEverySafeCell(t *testing.T) {
	out := playScript(t, bottomRow, "a1")
	assert.Contains(t, out, "you win")
	assert.NotContains(t, out, "\a")
}

func TestWinByFlaggingEveryMine(t *testing.T) {
	lines := []string{"a1f", "a1", "a1f", "f1f", "f1", "a1", "z9"}
	for row := 2; row <= 10; row++ {
		lines = append(lines, fmt.Sprintf("f%df", row))
	}
	out := playScript(t, columnF, lines...)
	for _, msg := range []string{invalidMsg, ErrCannotFlag.Error(), ErrFlagged.Error(), ErrShown.Error(), "9 mines left", "1 mine left", "you win"} {
		assert.Contains(t, out, msg)
	}
	assert.NotContains(t, out, "you lose")
}

func TestUnflagRestoresCount(t *testing.T) {
	grid, err := NewGrid(10, 10)
	require.NoError(t, err)
	columnF(grid, 0)
	require.NoError(t, grid.ToggleFlag(5))
	assert.Equal(t, 9, grid.MinesLeft())
	require.NoError(t, grid.ToggleFlag(5))
	assert.Equal(t, 10, grid.MinesLeft())
	assert.ErrorIs(t, grid.ToggleFlag(0), ErrCannotFlag)
}

func TestRevealMineLoses(t *testing.T) {
	out := playScript(t, columnF, "a1", "f3")
	assert.Contains(t, out, "you lose")
	assert.Contains(t, out, "X")
	assert.Contains(t, out, "\a")
}

func TestNewGridRejectsOverfullBoards(t *testing.T) {
	_, err := NewGrid(4, 7)
	assert.NoError(t, err)
	_, err = NewGrid(4, 8)
	assert.Error(t, err)
	_, err = New("nightmare")
	assert.Error(t, err)
}
