// Package console is the small toolkit the example games share: screen
// clearing, the terminal bell, line prompts, a title banner and the
// "play again?" loop.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ErrQuit is returned by Prompt when input ends (Ctrl-D, closed pipe) and
// tells a game to return to the caller.
var ErrQuit = errors.New("console: quit")

const (
	clearSequence = "\x1b[H\x1b[2J"
	bell          = "\a"
)

// Difficulties accepted by ChooseDifficulty.
var Difficulties = []string{"easy", "intermediate", "hard"}

var bannerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FFFF55")).
	Background(lipgloss.Color("#0000AA")).
	Border(lipgloss.DoubleBorder()).
	BorderForeground(lipgloss.Color("#AAAAAA")).
	Padding(1, 4)

// Console wraps the streams a game talks to.
type Console struct {
	in    *bufio.Reader
	out   io.Writer
	rng   *rand.Rand
	sleep func(time.Duration)
	// Plain disables screen clearing so transcripts stay readable in tests
	// and pipes.
	Plain bool
}

// Option customizes a Console.
type Option func(*Console)

// WithRand seeds games deterministically.
func WithRand(rng *rand.Rand) Option {
	return func(c *Console) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// WithSleep replaces time.Sleep, mostly for tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Console) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithPlain disables screen clearing.
func WithPlain() Option {
	return func(c *Console) {
		c.Plain = true
	}
}

// New builds a console over in and out.
func New(in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		in:    bufio.NewReader(in),
		out:   out,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Cls clears the screen.
func (c *Console) Cls() {
	if c.Plain {
		fmt.Fprintln(c.out)
		return
	}
	fmt.Fprint(c.out, clearSequence)
}

// Beep rings the terminal bell.
func (c *Console) Beep() {
	fmt.Fprint(c.out, bell)
}

// Println writes a line.
func (c *Console) Println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

// Printf writes formatted text.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Prompt prints label and reads one trimmed line.
func (c *Console) Prompt(label string) (string, error) {
	if label != "" {
		fmt.Fprint(c.out, label)
	}
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrQuit
		}
		return "", fmt.Errorf("console: read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Pause sleeps for d.
func (c *Console) Pause(d time.Duration) {
	c.sleep(d)
}

// Intn returns a random number in [0, n).
func (c *Console) Intn(n int) int {
	return c.rng.Intn(n)
}

// Shuffle randomizes the order of n elements.
func (c *Console) Shuffle(n int, swap func(i, j int)) {
	c.rng.Shuffle(n, swap)
}

// Banner renders a title box.
func Banner(title string) string {
	return bannerStyle.Render(strings.ToUpper(title))
}

// ChooseDifficulty asks until one of Difficulties is typed.
func ChooseDifficulty(c *Console) (string, error) {
	for {
		c.Cls()
		c.Println()
		answer, err := c.Prompt("difficulty (easy, intermediate, hard);\n> ")
		if err != nil {
			return "", err
		}
		answer = strings.ToLower(answer)
		for _, d := range Difficulties {
			if answer == d {
				return d, nil
			}
		}
	}
}

// ValidDifficulty reports whether d is one of Difficulties.
func ValidDifficulty(d string) bool {
	for _, known := range Difficulties {
		if d == known {
			return true
		}
	}
	return false
}

// PlayAgain shows the banner, runs game and repeats while the player answers
// yes. ErrQuit from the game ends the loop without an error.
func PlayAgain(c *Console, title string, game func(*Console) error) error {
	for {
		c.Cls()
		c.Println(Banner(title))
		c.Println()
		if _, err := c.Prompt("enter to play\nctrl + d to quit to main menu\n\n"); err != nil {
			return quietQuit(err)
		}
		if err := game(c); err != nil {
			return quietQuit(err)
		}
		choice, err := c.Prompt("\nwould you like to play again?\n> ")
		if err != nil {
			return quietQuit(err)
		}
		if !strings.HasPrefix(strings.ToLower(choice), "y") {
			return nil
		}
	}
}

func quietQuit(err error) error {
	if errors.Is(err, ErrQuit) {
		return nil
	}
	return err
}
