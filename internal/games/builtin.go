package games

import (
	"errors"
	"strconv"

	"github.com/kingrea/quickpython/internal/console"
	"github.com/kingrea/quickpython/internal/games/memory"
	"github.com/kingrea/quickpython/internal/games/minesweeper"
	"github.com/kingrea/quickpython/internal/games/simon"
	"github.com/kingrea/quickpython/internal/games/towers"
	"github.com/kingrea/quickpython/internal/games/uno"
)

// Builtin returns a registry holding every example that ships with the editor.
func Builtin() *Registry {
	reg := NewRegistry()
	reg.MustRegister(Info{
		ID:          "memory",
		Name:        memory.Title,
		Description: "Turn over two cells at a time and find every matching pair.",
		Setting:     SettingDifficulty,
	}, func(opts Options) (Game, error) {
		return memory.New(opts.Difficulty)
	})
	reg.MustRegister(Info{
		ID:          "minesweeper",
		Name:        minesweeper.Title,
		Description: "Clear the minefield, flagging every mine with a trailing F.",
		Setting:     SettingDifficulty,
	}, func(opts Options) (Game, error) {
		return minesweeper.New(opts.Difficulty)
	})
	reg.MustRegister(Info{
		ID:          "simon",
		Name:        simon.Title,
		Description: "Watch the colours flash and type back their initials.",
		Setting:     SettingDifficulty,
	}, func(opts Options) (Game, error) {
		return simon.New(opts.Difficulty)
	})
	reg.MustRegister(Info{
		ID:          "towers",
		Name:        towers.Title,
		Description: "Move the tower from peg A to peg C, never a larger disc on a smaller one.",
		Setting:     SettingDifficulty,
	}, func(opts Options) (Game, error) {
		return towers.New(opts.Difficulty)
	})
	reg.MustRegister(Info{
		ID:          "uno",
		Name:        uno.Title,
		Description: "Match colours or names and empty your hand first. 2 to 4 players.",
		Setting:     SettingPlayers,
	}, func(opts Options) (Game, error) {
		return uno.New(opts.Players)
	})
	return reg
}

// AskOptions fills in whatever opts is missing for info by prompting on c.
func AskOptions(c *console.Console, info Info, opts Options) (Options, error) {
	switch info.Setting {
	case SettingDifficulty:
		if console.ValidDifficulty(opts.Difficulty) {
			return opts, nil
		}
		d, err := console.ChooseDifficulty(c)
		if err != nil {
			return opts, err
		}
		opts.Difficulty = d
	case SettingPlayers:
		for opts.Players < 2 || opts.Players > 4 {
			c.Cls()
			c.Println()
			answer, err := c.Prompt("players (2 - 4);\n> ")
			if err != nil {
				return opts, err
			}
			if opts.Players, err = strconv.Atoi(answer); err != nil {
				opts.Players = 0
			}
		}
	}
	return opts, nil
}

// Run asks for missing options, then plays id until the player stops.
func (r *Registry) Run(c *console.Console, id string, opts Options) error {
	info, err := r.Info(id)
	if err != nil {
		return err
	}
	opts, err = AskOptions(c, info, opts)
	if err != nil {
		if errors.Is(err, console.ErrQuit) {
			return nil
		}
		return err
	}
	game, err := r.Resolve(id, opts)
	if err != nil {
		return err
	}
	return console.PlayAgain(c, info.Name, game.Play)
}
