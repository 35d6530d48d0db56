package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kingrea/quickpython/internal/config"
	"github.com/kingrea/quickpython/internal/logging"
)

func shellRunner(t *testing.T, cfg config.RunConfig) (*Runner, string) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	cfg.Interpreter = "sh"
	dir := t.TempDir()
	return New(cfg, WithTempDir(dir)), dir
}

func collect(run *Run) ([]string, Result) {
	var lines []string
	for line := range run.Lines() {
		lines = append(lines, line)
	}
	return lines, run.Wait()
}

func TestPrepareNamesAndCleansTempFile(t *testing.T) {
	dir := t.TempDir()
	r := New(config.RunConfig{Interpreter: "python3"}, WithTempDir(dir))
	path, cleanup, err := r.Prepare("print('hi')\n", "")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), tempFileStem))
	assert.Equal(t, ".py", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(data))
	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	keep := New(config.RunConfig{KeepTemp: true}, WithTempDir(dir))
	path, cleanup, err = keep.Prepare("x = 1", "/somewhere/script.pyw")
	require.NoError(t, err)
	assert.Equal(t, ".pyw", filepath.Ext(path))
	cleanup()
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestEmptyProgram(t *testing.T) {
	r := New(config.RunConfig{Interpreter: "python3"})
	_, err := r.Start(context.Background(), "  \n\t", "")
	assert.True(t, errors.Is(err, ErrEmptyProgram))
	_, _, err = r.Command("", "x.py")
	assert.True(t, errors.Is(err, ErrEmptyProgram))
}

func TestStartStreamsCombinedOutput(t *testing.T) {
	r, dir := shellRunner(t, config.RunConfig{})
	run, err := r.Start(context.Background(), "echo hello\necho oops >&2\nprintf partial\n", "script.sh")
	require.NoError(t, err)
	lines, res := collect(run)
	assert.ElementsMatch(t, []string{"hello", "oops", "partial"}, lines)
	assert.Equal(t, 0, res.ExitCode)
	assert.NoError(t, res.Err)
	assert.Equal(t, run.ID, res.ID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file should be removed after the run")
}

func TestStartReportsExitCode(t *testing.T) {
	r, _ := shellRunner(t, config.RunConfig{})
	run, err := r.Start(context.Background(), "echo failing\nexit 3\n", "script.sh")
	require.NoError(t, err)
	lines, res := collect(run)
	assert.Equal(t, []string{"failing"}, lines)
	assert.Equal(t, 3, res.ExitCode)
	assert.NoError(t, res.Err)
}

func TestRunLogLinesCarryRunID(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	logDir := t.TempDir()
	logger, err := logging.New(logDir, true)
	require.NoError(t, err)
	r := New(config.RunConfig{Interpreter: "sh"}, WithTempDir(t.TempDir()), WithLogger(logger))
	run, err := r.Start(context.Background(), "exit 4\n", "script.sh")
	require.NoError(t, err)
	_, res := collect(run)
	require.Equal(t, 4, res.ExitCode)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(logDir, logging.FileName))
	require.NoError(t, err)
	var started, finished bool
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.Contains(line, `"run": "`+run.ID+`"`) {
			continue
		}
		started = started || strings.Contains(line, "runner: started pid=")
		finished = finished || strings.Contains(line, "runner: finished exit=4")
	}
	assert.True(t, started, "start line tagged with run id: %q", data)
	assert.True(t, finished, "finish line tagged with run id: %q", data)
}

func TestStartTimeout(t *testing.T) {
	r, _ := shellRunner(t, config.RunConfig{Timeout: 100 * time.Millisecond})
	run, err := r.Start(context.Background(), "sleep 5\n", "slow.sh")
	require.NoError(t, err)
	_, res := collect(run)
	assert.True(t, errors.Is(res.Err, ErrTimeout), "got %v", res.Err)
	assert.Less(t, res.Duration, 4*time.Second)
}

func TestStopKillsRun(t *testing.T) {
	defer goleak.VerifyNone(t)
	r, _ := shellRunner(t, config.RunConfig{})
	run, err := r.Start(context.Background(), "echo started\nsleep 5\n", "slow.sh")
	require.NoError(t, err)
	first := <-run.Lines()
	assert.Equal(t, "started", first)
	run.Stop()
	res := run.Wait()
	assert.True(t, errors.Is(res.Err, ErrStopped), "got %v", res.Err)
	for range run.Lines() {
	}
}

func TestCommandForTerminalRun(t *testing.T) {
	dir := t.TempDir()
	r := New(config.RunConfig{Interpreter: "python3", Args: []string{"-u"}}, WithTempDir(dir))
	cmd, cleanup, err := r.Command("print(1)\n", filepath.Join(dir, "main.py"))
	require.NoError(t, err)
	defer cleanup()
	require.Len(t, cmd.Args, 3)
	assert.Equal(t, "python3", cmd.Args[0])
	assert.Equal(t, "-u", cmd.Args[1])
	assert.Equal(t, dir, cmd.Dir)

	_, _, err = r.Command("package main", "main.go")
	assert.Error(t, err)
}

func TestGoBufferRunsInProcess(t *testing.T) {
	r := New(config.RunConfig{Interpreter: "python3"})
	src := "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hi from go\")\n}\n"
	run, err := r.Start(context.Background(), src, "hello.go")
	require.NoError(t, err)
	lines, res := collect(run)
	assert.Equal(t, []string{"hi from go"}, lines)
	assert.Equal(t, 0, res.ExitCode)
	assert.NoError(t, res.Err)
}

func TestGoBufferCapturesEveryOutputPath(t *testing.T) {
	r := New(config.RunConfig{})
	src := `package main

import (
	"fmt"
	"log"
	"os"
)

func main() {
	fmt.Println("via println")
	fmt.Fprintln(os.Stdout, "via stdout")
	fmt.Fprintln(os.Stderr, "via stderr")
	log.Println("via log")
}
`
	run, err := r.Start(context.Background(), src, "streams.go")
	require.NoError(t, err)
	lines, res := collect(run)
	assert.Equal(t, 0, res.ExitCode)
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"via println", "via stdout", "via stderr"}, lines[:3])
	assert.True(t, strings.HasSuffix(lines[3], "via log"), lines[3])
}

func TestGoBufferCompileError(t *testing.T) {
	r := New(config.RunConfig{})
	run, err := r.Start(context.Background(), "package main\n\nfunc main() { undefinedCall() }\n", "broken.go")
	require.NoError(t, err)
	lines, res := collect(run)
	assert.Equal(t, 1, res.ExitCode)
	require.NotEmpty(t, lines)
	assert.Contains(t, strings.Join(lines, "\n"), "undefined")
}
