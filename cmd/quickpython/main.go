// cmd/quickpython/main.go
//
// This is the entry point for the QuickPython CLI.
//
// Flow:
// 1. Resolve the home directory and load config.yaml
// 2. `quickpython [file]` opens the editor TUI
// 3. `quickpython play <example>` runs a console game; the editor's
//    Examples menu launches this same binary that way

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/quickpython/internal/config"
	"github.com/kingrea/quickpython/internal/console"
	"github.com/kingrea/quickpython/internal/games"
	"github.com/kingrea/quickpython/internal/logbook"
	"github.com/kingrea/quickpython/internal/logging"
	"github.com/kingrea/quickpython/internal/tui"
	"github.com/kingrea/quickpython/internal/watch"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootFlags struct {
	home    string
	verbose bool
}

// args renders the global flags for child invocations of this binary.
func (f *rootFlags) args() []string {
	var args []string
	if f.home != "" {
		args = append(args, "--home", f.home)
	}
	if f.verbose {
		args = append(args, "--verbose")
	}
	return args
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "quickpython [file]",
		Short: "A small terminal editor for Python",
		Long: `QuickPython is a QBasic-style editor for Python scripts.

Open a file (or start an empty buffer), press F5 to run it and read the
output in the Immediate pane. The Examples menu has console games to play
and study.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runEditor(flags, path)
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.PersistentFlags().StringVar(&flags.home, "home", "", "home directory for config and logs (default $"+config.HomeEnv+" or the user config dir)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "write debug entries to the diagnostic log")

	root.AddCommand(newPlayCmd(flags), newExamplesCmd(), newVersionCmd())
	return root
}

func newPlayCmd(flags *rootFlags) *cobra.Command {
	var opts games.Options
	cmd := &cobra.Command{
		Use:   "play [example]",
		Short: "Play one of the example games in the terminal",
		Long: `Play one of the console games from the Examples menu.

Without an example name the list is shown and you are asked to pick one.
Press Ctrl-D at any prompt to leave.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := openLogger(flags)
			defer logger.Close()

			reg := games.Builtin()
			c := console.New(cmd.InOrStdin(), cmd.OutOrStdout())
			id := ""
			if len(args) == 1 {
				id = strings.ToLower(strings.TrimSpace(args[0]))
			} else {
				var err error
				if id, err = chooseGame(c, reg); err != nil {
					if errors.Is(err, console.ErrQuit) {
						return nil
					}
					return err
				}
			}
			logger.Printf("play: %s difficulty=%q players=%d", id, opts.Difficulty, opts.Players)
			if err := reg.Run(c, id, opts); err != nil {
				logger.Errorf("play %s: %v", id, err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Difficulty, "difficulty", "d", "", "easy, intermediate or hard")
	cmd.Flags().IntVarP(&opts.Players, "players", "p", 0, "number of players (2 - 4) for card games")
	return cmd
}

// chooseGame lists the examples and asks for one by number or id.
func chooseGame(c *console.Console, reg *games.Registry) (string, error) {
	infos := reg.Infos()
	c.Println(console.Banner("Examples"))
	for i, info := range infos {
		c.Printf("%d. %-12s %s\n", i+1, info.Name, info.Description)
	}
	for {
		answer, err := c.Prompt("example;\n> ")
		if err != nil {
			return "", err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		for i, info := range infos {
			if answer == info.ID || answer == strings.ToLower(info.Name) || answer == fmt.Sprint(i+1) {
				return info.ID, nil
			}
		}
		c.Println("pick a number from the list")
	}
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "List the example games",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, info := range games.Builtin().Infos() {
				fmt.Fprintf(out, "%-12s %s\n", info.ID, info.Description)
			}
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the QuickPython version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "quickpython %s\n", version)
		},
	}
}

// runEditor loads config and runs the TUI until the user exits.
func runEditor(flags *rootFlags, path string) error {
	cfg, err := loadConfig(flags.home)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogsDir(), flags.verbose)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logger.Close()

	lb, err := logbook.New(cfg.ImmediateLogPath())
	if err != nil {
		return fmt.Errorf("open immediate log: %w", err)
	}
	defer lb.Close()

	opts := []tui.AppOption{
		tui.WithLogger(logger),
		tui.WithLogbook(lb),
		tui.WithGames(games.Builtin().Infos()),
		tui.WithVersion(version),
		tui.WithFile(path),
		tui.WithExampleArgs(flags.args()...),
	}
	// without a watcher the editor still works; it just won't notice
	// outside changes
	if w, err := watch.New(watch.WithLogger(logger.With("component", "watch"))); err != nil {
		logger.Errorf("file watcher unavailable: %v", err)
	} else {
		opts = append(opts, tui.WithWatcher(w))
	}

	app, err := tui.NewApp(cfg, opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	logger.Printf("editor: start home=%s file=%q", cfg.HomeDir, path)
	p := tea.NewProgram(
		app,
		tea.WithAltScreen(), // Use alternate screen buffer (like vim does)
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func loadConfig(home string) (*config.Config, error) {
	if home == "" {
		var err error
		if home, err = config.DefaultHomeDir(); err != nil {
			return nil, err
		}
	}
	if err := config.InitHomeDir(home); err != nil {
		return nil, fmt.Errorf("initializing %s: %w", home, err)
	}
	return config.Load(home)
}

// openLogger gives game runs a diagnostic log when the home directory is
// usable and a no-op logger otherwise.
func openLogger(flags *rootFlags) *logging.Logger {
	cfg, err := loadConfig(flags.home)
	if err != nil {
		return logging.Nop()
	}
	logger, err := logging.New(cfg.LogsDir(), flags.verbose)
	if err != nil {
		return logging.Nop()
	}
	return logger
}
