package games

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/kingrea/quickpython/internal/console"
)

type stubGame struct {
	plays *int
}

func (g stubGame) Play(c *console.Console) error {
	*g.plays++
	return nil
}

func TestRegisterRejectsDuplicatesAndBadInfo(t *testing.T) {
	reg := NewRegistry()
	info := Info{ID: "demo", Name: "Demo", Description: "demo game", Setting: SettingDifficulty}
	factory := func(Options) (Game, error) { return stubGame{plays: new(int)}, nil }
	if err := reg.Register(info, factory); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(info, factory); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := reg.Register(Info{ID: "x", Name: "X", Description: "x", Setting: "colour"}, factory); err == nil {
		t.Fatalf("expected setting error")
	}
	if err := reg.Register(Info{ID: "y", Name: "Y", Description: "y", Setting: SettingPlayers}, nil); err == nil {
		t.Fatalf("expected factory error")
	}
}

func TestResolveUnknown(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Resolve("nope", Options{}); !errors.Is(err, ErrUnknownGame) {
		t.Fatalf("expected ErrUnknownGame, got %v", err)
	}
	if _, err := reg.Info("nope"); !errors.Is(err, ErrUnknownGame) {
		t.Fatalf("expected ErrUnknownGame, got %v", err)
	}
}

func TestBuiltinRegistersEveryExample(t *testing.T) {
	reg := Builtin()
	want := []string{"memory", "minesweeper", "simon", "towers", "uno"}
	got := reg.IDs()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("IDs = %v, want %v", got, want)
	}
	for _, info := range reg.Infos() {
		opts := Options{Difficulty: "easy", Players: 2}
		if _, err := reg.Resolve(info.ID, opts); err != nil {
			t.Fatalf("resolve %s: %v", info.ID, err)
		}
	}
	if _, err := reg.Resolve("memory", Options{Difficulty: "impossible"}); err == nil {
		t.Fatalf("expected difficulty error")
	}
}

func TestRunAsksForMissingPlayers(t *testing.T) {
	reg := NewRegistry()
	plays := 0
	var gotPlayers int
	reg.MustRegister(Info{ID: "cards", Name: "Cards", Description: "cards", Setting: SettingPlayers},
		func(opts Options) (Game, error) {
			gotPlayers = opts.Players
			return stubGame{plays: &plays}, nil
		})
	var out bytes.Buffer
	c := console.New(strings.NewReader("seven\n9\n3\n\nno\n"), &out, console.WithPlain())
	if err := reg.Run(c, "cards", Options{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if gotPlayers != 3 || plays != 1 {
		t.Fatalf("players=%d plays=%d", gotPlayers, plays)
	}
	if strings.Count(out.String(), "players (2 - 4)") != 3 {
		t.Fatalf("expected three prompts: %q", out.String())
	}
}

func TestRunSkipsDifficultyPromptWhenGiven(t *testing.T) {
	reg := NewRegistry()
	plays := 0
	reg.MustRegister(Info{ID: "solo", Name: "Solo", Description: "solo", Setting: SettingDifficulty},
		func(opts Options) (Game, error) {
			if opts.Difficulty != "hard" {
				t.Errorf("difficulty = %q", opts.Difficulty)
			}
			return stubGame{plays: &plays}, nil
		})
	var out bytes.Buffer
	c := console.New(strings.NewReader("\n"), &out, console.WithPlain())
	if err := reg.Run(c, "solo", Options{Difficulty: "hard"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(out.String(), "difficulty (") {
		t.Fatalf("difficulty prompt shown: %q", out.String())
	}
	if plays != 1 {
		t.Fatalf("plays = %d", plays)
	}
}

func TestRunQuitsQuietlyDuringSetup(t *testing.T) {
	reg := Builtin()
	c := console.New(strings.NewReader(""), &bytes.Buffer{}, console.WithPlain())
	if err := reg.Run(c, "memory", Options{}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
