// Package runner executes the code pane. The buffer is written to a temp file
// and handed to the configured interpreter; output is streamed line by line so
// the immediate pane can follow along. Go buffers are interpreted in-process.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/kingrea/quickpython/internal/config"
	"github.com/kingrea/quickpython/internal/logging"
)

const (
	defaultExt   = ".py"
	goExt        = ".go"
	lineBuffer   = 256
	waitDelay    = 2 * time.Second
	tempFileStem = "quickpython-"
)

// ErrEmptyProgram is returned when the buffer has nothing to run.
var ErrEmptyProgram = errors.New("runner: nothing to run")

// ErrTimeout is reported in Result.Err when run.timeout elapses.
var ErrTimeout = errors.New("runner: timed out")

// ErrStopped is reported in Result.Err when the run was stopped.
var ErrStopped = errors.New("runner: stopped")

// Result is the outcome of a finished run.
type Result struct {
	ID       string
	ExitCode int
	Duration time.Duration
	Err      error
}

// Runner builds and starts runs according to the run config.
type Runner struct {
	cfg     config.RunConfig
	tempDir string
	logger  *logging.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithTempDir places temp files in dir instead of os.TempDir().
func WithTempDir(dir string) Option {
	return func(r *Runner) {
		r.tempDir = dir
	}
}

// WithLogger attaches a diagnostic logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New returns a runner for cfg.
func New(cfg config.RunConfig, opts ...Option) *Runner {
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// IsGo reports whether name is run through the in-process Go interpreter.
func IsGo(name string) bool {
	return strings.EqualFold(filepath.Ext(name), goExt)
}

// Prepare writes src to a uniquely named temp file carrying the extension of
// name. The returned cleanup removes it unless keep_temp is set.
func (r *Runner) Prepare(src, name string) (string, func(), error) {
	if strings.TrimSpace(src) == "" {
		return "", func() {}, ErrEmptyProgram
	}
	ext := filepath.Ext(name)
	if ext == "" {
		ext = defaultExt
	}
	dir := r.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, tempFileStem+uuid.NewString()+ext)
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		return "", func() {}, fmt.Errorf("runner: write temp file: %w", err)
	}
	cleanup := func() {
		if r.cfg.KeepTemp {
			return
		}
		_ = os.Remove(path)
	}
	return path, cleanup, nil
}

// Command builds the interpreter command for a terminal run. The caller owns
// stdio and must call cleanup once the process has exited.
func (r *Runner) Command(src, name string) (*exec.Cmd, func(), error) {
	if IsGo(name) {
		return nil, func() {}, fmt.Errorf("runner: %s can only run captured", goExt)
	}
	path, cleanup, err := r.Prepare(src, name)
	if err != nil {
		return nil, cleanup, err
	}
	cmd := exec.Command(r.cfg.Interpreter, r.args(path)...)
	cmd.Dir = workDir(name)
	r.logger.Printf("runner: terminal %s", strings.Join(cmd.Args, " "))
	return cmd, cleanup, nil
}

// Start begins a captured run. Output lines arrive on Run.Lines until it is
// closed; Run.Wait then returns the result.
func (r *Runner) Start(ctx context.Context, src, name string) (*Run, error) {
	if strings.TrimSpace(src) == "" {
		return nil, ErrEmptyProgram
	}
	base, cancelTimeout := ctx, context.CancelFunc(func() {})
	if r.cfg.Timeout > 0 {
		base, cancelTimeout = context.WithTimeout(ctx, r.cfg.Timeout)
	}
	runCtx, cancelRun := context.WithCancel(base)
	cancel := func() {
		cancelRun()
		cancelTimeout()
	}
	run := &Run{
		ID:     uuid.NewString(),
		ctx:    runCtx,
		lines:  make(chan string, lineBuffer),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
		cancel: cancel,
	}
	run.logger = r.logger.With("run", run.ID)
	run.out = &lineWriter{lines: run.lines, stop: run.stop}
	started := time.Now()

	if IsGo(name) {
		run.logger.Printf("runner: interpreting %s in-process", displayName(name))
		go run.finish(started, r.cfg.Timeout, func() (int, error) {
			return evalGo(runCtx, src, run.out)
		})
		return run, nil
	}

	path, cleanup, err := r.Prepare(src, name)
	if err != nil {
		cancel()
		return nil, err
	}
	cmd := exec.CommandContext(runCtx, r.cfg.Interpreter, r.args(path)...)
	cmd.Dir = workDir(name)
	cmd.Stdout = run.out
	cmd.Stderr = run.out
	cmd.WaitDelay = waitDelay
	if err := cmd.Start(); err != nil {
		cleanup()
		cancel()
		return nil, fmt.Errorf("runner: start %s: %w", r.cfg.Interpreter, err)
	}
	run.logger.Printf("runner: started pid=%d %s", cmd.Process.Pid, strings.Join(cmd.Args, " "))
	go run.finish(started, r.cfg.Timeout, func() (int, error) {
		defer cleanup()
		err := cmd.Wait()
		code := -1
		if cmd.ProcessState != nil {
			code = cmd.ProcessState.ExitCode()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			err = nil
		}
		return code, err
	})
	return run, nil
}

func (r *Runner) args(path string) []string {
	args := append([]string(nil), r.cfg.Args...)
	return append(args, path)
}

// Run is a captured execution in progress.
type Run struct {
	ID string

	ctx    context.Context
	lines  chan string
	done   chan struct{}
	stop   chan struct{}
	once   sync.Once
	cancel context.CancelFunc
	out    *lineWriter
	logger *logging.Logger
	result Result
}

// Lines streams combined stdout/stderr lines. It is closed when the run ends.
func (r *Run) Lines() <-chan string {
	return r.lines
}

// Done is closed once the result is available.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run has finished.
func (r *Run) Wait() Result {
	<-r.done
	return r.result
}

// Stop kills the run and discards any output not yet consumed.
func (r *Run) Stop() {
	r.once.Do(func() {
		close(r.stop)
		r.cancel()
	})
}

func (r *Run) finish(started time.Time, timeout time.Duration, body func() (int, error)) {
	code, err := body()
	r.out.flush()
	close(r.lines)
	switch ctxErr := r.ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		err = fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case errors.Is(ctxErr, context.Canceled):
		err = ErrStopped
	}
	r.result = Result{ID: r.ID, ExitCode: code, Duration: time.Since(started), Err: err}
	r.logger.Debugf("runner: finished exit=%d in %s err=%v", code, r.result.Duration.Round(time.Millisecond), err)
	r.cancel()
	close(r.done)
}

// lineWriter splits written bytes into lines. exec serializes writes when
// Stdout and Stderr are the same writer.
type lineWriter struct {
	mu      sync.Mutex
	pending []byte
	lines   chan<- string
	stop    <-chan struct{}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, p...)
	for {
		idx := bytes.IndexByte(w.pending, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimRight(string(w.pending[:idx]), "\r")
		w.pending = w.pending[idx+1:]
		if !w.send(line) {
			w.pending = nil
			break
		}
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) > 0 {
		w.send(strings.TrimRight(string(w.pending), "\r"))
		w.pending = nil
	}
}

func (w *lineWriter) send(line string) bool {
	select {
	case <-w.stop:
		return false
	default:
	}
	select {
	case w.lines <- line:
		return true
	case <-w.stop:
		return false
	}
}

// evalGo interprets src with yaegi. Output from fmt, log and writes to
// os.Stdout or os.Stderr all go through one pipe into out, in order.
func evalGo(ctx context.Context, src string, out *lineWriter) (code int, err error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return -1, fmt.Errorf("runner: output pipe: %w", err)
	}
	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		_, _ = io.Copy(out, pr)
		_ = pr.Close()
	}()
	defer func() {
		_ = pw.Close()
		<-pumped
	}()
	defer func() {
		if rec := recover(); rec != nil {
			_, _ = fmt.Fprintf(pw, "panic: %v\n", rec)
			code, err = 2, fmt.Errorf("runner: go program panicked: %v", rec)
		}
	}()

	i := interp.New(interp.Options{Stdout: pw, Stderr: pw})
	if err := i.Use(stdlib.Symbols); err != nil {
		return -1, fmt.Errorf("runner: load go stdlib symbols: %w", err)
	}
	stdout, stderr := pw, pw
	if err := i.Use(interp.Exports{
		"os/os": {
			"Stdout": reflect.ValueOf(&stdout).Elem(),
			"Stderr": reflect.ValueOf(&stderr).Elem(),
		},
	}); err != nil {
		return -1, fmt.Errorf("runner: redirect go stdio: %w", err)
	}
	if _, err := i.EvalWithContext(ctx, src); err != nil {
		if ctx.Err() != nil {
			return -1, nil
		}
		_, _ = fmt.Fprintln(pw, err.Error())
		return 1, nil
	}
	return 0, nil
}

func workDir(name string) string {
	if name == "" {
		return ""
	}
	dir := filepath.Dir(name)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}

func displayName(name string) string {
	if name == "" {
		return "untitled"
	}
	return filepath.Base(name)
}
