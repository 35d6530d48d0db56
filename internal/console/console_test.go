package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPromptTrimsAndQuitsOnEOF(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("  a1 \nlast"), &out, WithPlain())
	got, err := c.Prompt("> ")
	if err != nil || got != "a1" {
		t.Fatalf("Prompt = %q, %v", got, err)
	}
	got, err = c.Prompt("> ")
	if err != nil || got != "last" {
		t.Fatalf("Prompt without newline = %q, %v", got, err)
	}
	if _, err := c.Prompt("> "); !errors.Is(err, ErrQuit) {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
	if strings.Count(out.String(), "> ") != 3 {
		t.Fatalf("labels not printed: %q", out.String())
	}
}

func TestClsAndBeep(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader(""), &out)
	c.Cls()
	c.Beep()
	if out.String() != clearSequence+bell {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestChooseDifficultyLoopsUntilValid(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("medium\nHard\n"), &out, WithPlain())
	d, err := ChooseDifficulty(c)
	if err != nil {
		t.Fatal(err)
	}
	if d != "hard" {
		t.Fatalf("difficulty = %q", d)
	}
}

func TestPlayAgainRepeatsWhileYes(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("\nyes\n\nno\n"), &out, WithPlain())
	plays := 0
	err := PlayAgain(c, "Demo", func(*Console) error {
		plays++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if plays != 2 {
		t.Fatalf("plays = %d, want 2", plays)
	}
	if !strings.Contains(out.String(), "DEMO") {
		t.Fatalf("banner missing: %q", out.String())
	}
}

func TestPlayAgainTreatsQuitAsDone(t *testing.T) {
	c := New(strings.NewReader("\n"), &bytes.Buffer{}, WithPlain())
	err := PlayAgain(c, "Demo", func(c *Console) error {
		_, err := c.Prompt("> ")
		return err
	})
	if err != nil {
		t.Fatalf("expected nil on quit, got %v", err)
	}
}

func TestPauseUsesInjectedSleep(t *testing.T) {
	var slept time.Duration
	c := New(strings.NewReader(""), &bytes.Buffer{}, WithSleep(func(d time.Duration) { slept += d }))
	c.Pause(time.Second)
	if slept != time.Second {
		t.Fatalf("slept %s", slept)
	}
}
