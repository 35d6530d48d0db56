// Package format pipes the code pane through external formatters such as
// isort and black. Each tool reads the source on stdin and writes the
// formatted source on stdout.
package format

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kingrea/quickpython/internal/config"
)

// ErrToolMissing is returned when a formatter executable cannot be found.
var ErrToolMissing = errors.New("format: tool not installed")

// Tool is one formatter in the pipeline.
type Tool struct {
	Name    string
	Command string
	Args    []string
}

// ToolError reports a formatter that ran and failed.
type ToolError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("format: %s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("format: %s: %s", e.Tool, firstLine(msg))
}

func (e *ToolError) Unwrap() error { return e.Err }

// Result describes a formatting pass.
type Result struct {
	Text    string
	Changed bool
	// Applied lists the tools that ran.
	Applied []string
	// Skipped lists tools that are not installed.
	Skipped []string
}

// Formatter runs the configured tools in order.
type Formatter struct {
	tools    []Tool
	lookPath func(string) (string, error)
}

// New builds a formatter from config.
func New(cfg config.FormatConfig) *Formatter {
	tools := make([]Tool, 0, len(cfg.Tools))
	for _, t := range cfg.Tools {
		tools = append(tools, Tool{Name: t.Name, Command: t.Command, Args: append([]string(nil), t.Args...)})
	}
	return &Formatter{tools: tools, lookPath: exec.LookPath}
}

// NewWithTools builds a formatter from an explicit tool list.
func NewWithTools(tools ...Tool) *Formatter {
	return &Formatter{tools: tools, lookPath: exec.LookPath}
}

// Tools returns the configured pipeline.
func (f *Formatter) Tools() []Tool {
	return append([]Tool(nil), f.tools...)
}

// Format pipes src through every installed tool. Missing tools are skipped and
// reported; when no tool could run the error is ErrToolMissing.
func (f *Formatter) Format(ctx context.Context, src string) (Result, error) {
	res := Result{Text: src}
	if len(f.tools) == 0 {
		return res, fmt.Errorf("%w: no formatters configured", ErrToolMissing)
	}
	current := src
	for _, tool := range f.tools {
		path, err := f.lookPath(tool.Command)
		if err != nil {
			res.Skipped = append(res.Skipped, tool.Name)
			continue
		}
		out, err := runTool(ctx, tool, path, current)
		if err != nil {
			return res, err
		}
		current = out
		res.Applied = append(res.Applied, tool.Name)
	}
	if len(res.Applied) == 0 {
		return res, fmt.Errorf("%w: %s", ErrToolMissing, strings.Join(res.Skipped, ", "))
	}
	res.Text = current
	res.Changed = current != src
	return res, nil
}

// Available reports, per tool name, whether its executable is on PATH. The
// lookups run concurrently.
func (f *Formatter) Available(ctx context.Context) (map[string]bool, error) {
	var (
		mu    sync.Mutex
		found = make(map[string]bool, len(f.tools))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, tool := range f.tools {
		tool := tool
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := f.lookPath(tool.Command)
			mu.Lock()
			found[tool.Name] = err == nil
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return found, nil
}

func runTool(ctx context.Context, tool Tool, path, src string) (string, error) {
	cmd := exec.CommandContext(ctx, path, tool.Args...)
	cmd.Stdin = strings.NewReader(src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", &ToolError{Tool: tool.Name, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
