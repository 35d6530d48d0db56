package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	home := t.TempDir()
	t.Setenv(InterpreterEnv, "")
	c, err := Load(home)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.File.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.File.Version)
	}
	if c.Run().Interpreter != defaultInterpreter {
		t.Fatalf("expected interpreter %q, got %q", defaultInterpreter, c.Run().Interpreter)
	}
	if c.Editor().TabSize != 4 {
		t.Fatalf("expected tab size 4, got %d", c.Editor().TabSize)
	}
}

func TestInitHomeDirWritesParsableDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv(InterpreterEnv, "")
	if err := InitHomeDir(home); err != nil {
		t.Fatalf("InitHomeDir: %v", err)
	}
	for _, dir := range []string{"logs", "state"} {
		if info, err := os.Stat(filepath.Join(home, dir)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s dir, err=%v", dir, err)
		}
	}
	c, err := Load(home)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Format().Tools) != 2 || c.Format().Tools[1].Command != "black" {
		t.Fatalf("unexpected tools: %+v", c.Format().Tools)
	}
	if c.Run().Mode != RunModeCapture {
		t.Fatalf("expected capture mode, got %q", c.Run().Mode)
	}
}

func TestLoadParsesYaml(t *testing.T) {
	home := t.TempDir()
	t.Setenv(InterpreterEnv, "")
	configYAML := strings.TrimSpace(`
version: 1
editor:
  tab_size: 2
  auto_indent: false
run:
  interpreter: " pypy3 "
  mode: Terminal
  timeout: 5s
format:
  tools:
    - command: /usr/bin/ruff
      args: ["format", "-"]
recent_files:
  - /tmp/a.py
  - "  "
`)
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(home)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.Editor().TabSize != 2 || c.Editor().AutoIndent {
		t.Fatalf("editor settings not parsed: %+v", c.Editor())
	}
	if c.Run().Interpreter != "pypy3" {
		t.Fatalf("interpreter not trimmed: %q", c.Run().Interpreter)
	}
	if c.Run().Mode != RunModeTerminal {
		t.Fatalf("mode not normalized: %q", c.Run().Mode)
	}
	if c.Run().Timeout != 5*time.Second {
		t.Fatalf("timeout = %s", c.Run().Timeout)
	}
	if len(c.Format().Tools) != 1 || c.Format().Tools[0].Name != "ruff" {
		t.Fatalf("expected single ruff tool, got %+v", c.Format().Tools)
	}
	if len(c.RecentFiles()) != 1 {
		t.Fatalf("blank recent entries should be dropped: %v", c.RecentFiles())
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"bad mode":     "run:\n  mode: detached\n",
		"bad tab size": "editor:\n  tab_size: 40\n",
		"tool command": "format:\n  tools:\n    - name: black\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			home := t.TempDir()
			if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(home); err == nil {
				t.Fatalf("expected validation error but got none")
			}
		})
	}
}

func TestInterpreterEnvOverride(t *testing.T) {
	t.Setenv(InterpreterEnv, "python3.12")
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if c.Run().Interpreter != "python3.12" {
		t.Fatalf("env override ignored: %q", c.Run().Interpreter)
	}
}

func TestAddRecentFilePersistsMostRecentFirst(t *testing.T) {
	home := t.TempDir()
	t.Setenv(InterpreterEnv, "")
	if err := InitHomeDir(home); err != nil {
		t.Fatal(err)
	}
	c, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < maxRecentFiles+2; i++ {
		if err := c.AddRecentFile(filepath.Join(home, "f"+string(rune('a'+i))+".py")); err != nil {
			t.Fatalf("AddRecentFile: %v", err)
		}
	}
	if err := c.AddRecentFile(filepath.Join(home, "fc.py")); err != nil {
		t.Fatal(err)
	}
	reloaded, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	recent := reloaded.RecentFiles()
	if len(recent) != maxRecentFiles {
		t.Fatalf("expected %d recent files, got %d", maxRecentFiles, len(recent))
	}
	if filepath.Base(recent[0]) != "fc.py" {
		t.Fatalf("expected fc.py first, got %s", recent[0])
	}
	seen := map[string]bool{}
	for _, r := range recent {
		if seen[r] {
			t.Fatalf("duplicate recent entry %s", r)
		}
		seen[r] = true
	}
}

func TestSaveKeepsConfigComments(t *testing.T) {
	home := t.TempDir()
	t.Setenv(InterpreterEnv, "")
	if err := InitHomeDir(home); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(home, "config.yaml")
	custom := strings.Replace(defaultConfigYAML, "  theme: classic\n", "  theme: classic # picked by hand\n", 1)
	if err := os.WriteFile(path, []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetShowLineNumbers(false); err != nil {
		t.Fatalf("SetShowLineNumbers: %v", err)
	}
	if err := c.AddRecentFile(filepath.Join(home, "game.py")); err != nil {
		t.Fatalf("AddRecentFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		"# quickpython configuration",
		"# mode: capture runs inside the immediate pane",
		"# picked by hand",
		"show_line_numbers: false",
		"recent_files:",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("saved config missing %q:\n%s", want, text)
		}
	}
	if strings.Index(text, "editor:") > strings.Index(text, "run:") {
		t.Fatalf("key order changed:\n%s", text)
	}

	reloaded, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Editor().ShowLineNumbers {
		t.Fatalf("show_line_numbers not persisted")
	}
	if got := reloaded.RecentFiles(); len(got) != 1 || filepath.Base(got[0]) != "game.py" {
		t.Fatalf("recent files = %v", got)
	}
	if got := reloaded.Run().Args; len(got) != 1 || got[0] != "-u" {
		t.Fatalf("run args = %v", got)
	}
}

func TestDefaultHomeDirHonoursEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)
	got, err := DefaultHomeDir()
	if err != nil {
		t.Fatal(err)
	}
	if got != dir {
		t.Fatalf("DefaultHomeDir = %s, want %s", got, dir)
	}
}
