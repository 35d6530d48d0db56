// internal/config/config.go
//
// This package handles configuration and the QuickPython home directory.
// The home directory holds config.yaml, the diagnostic log and the immediate
// pane transcript so they survive between editor sessions.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// HomeEnv overrides the location of the QuickPython home directory.
	HomeEnv = "QUICKPYTHON_HOME"
	// InterpreterEnv overrides run.interpreter from config.yaml.
	InterpreterEnv = "QUICKPYTHON_INTERPRETER"

	defaultInterpreter = "python3"
	defaultTabSize     = 4
	maxRecentFiles     = 10
)

// Run modes.
const (
	RunModeCapture  = "capture"
	RunModeTerminal = "terminal"
)

const defaultConfigYAML = `# quickpython configuration
version: 1

editor:
  tab_size: 4
  auto_indent: true
  strip_trailing_whitespace: true
  show_line_numbers: true
  theme: classic

# mode: capture runs inside the immediate pane, terminal hands the screen to
# the program so it can read input.
run:
  interpreter: python3
  args: ["-u"]
  mode: capture
  timeout: 0s
  keep_temp: false

format:
  on_save: false
  tools:
    - name: isort
      command: isort
      args: ["--quiet", "-"]
    - name: black
      command: black
      args: ["--quiet", "-"]
`

// EditorConfig captures code pane behaviour.
type EditorConfig struct {
	TabSize                 int    `yaml:"tab_size"`
	AutoIndent              bool   `yaml:"auto_indent"`
	StripTrailingWhitespace bool   `yaml:"strip_trailing_whitespace"`
	ShowLineNumbers         bool   `yaml:"show_line_numbers"`
	Theme                   string `yaml:"theme"`
}

// RunConfig describes how buffers are executed.
type RunConfig struct {
	Interpreter string        `yaml:"interpreter"`
	Args        []string      `yaml:"args,omitempty"`
	Mode        string        `yaml:"mode"`
	Timeout     time.Duration `yaml:"timeout"`
	KeepTemp    bool          `yaml:"keep_temp"`
}

// FormatTool is one external formatter invoked on the buffer.
type FormatTool struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// FormatConfig lists the formatter pipeline.
type FormatConfig struct {
	OnSave bool         `yaml:"on_save"`
	Tools  []FormatTool `yaml:"tools"`
}

// FileConfig models config.yaml.
type FileConfig struct {
	Version     int          `yaml:"version"`
	Editor      EditorConfig `yaml:"editor"`
	Run         RunConfig    `yaml:"run"`
	Format      FormatConfig `yaml:"format"`
	RecentFiles []string     `yaml:"recent_files,omitempty"`
}

// Config holds the runtime configuration for QuickPython.
type Config struct {
	// HomeDir is where config.yaml, logs/ and state/ live
	HomeDir string

	File FileConfig

	interpreterOverride string
}

// DefaultHomeDir resolves the home directory from the environment, falling
// back to the user config directory.
func DefaultHomeDir() (string, error) {
	if home := strings.TrimSpace(os.Getenv(HomeEnv)); home != "" {
		return filepath.Abs(home)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: locate user config dir: %w", err)
	}
	return filepath.Join(base, "quickpython"), nil
}

// InitHomeDir creates the home directory structure.
//
// Structure created:
// <home>/
// ├── config.yaml
// ├── logs/    <- diagnostic log
// └── state/   <- immediate pane transcript
func InitHomeDir(homeDir string) error {
	dirs := []string{
		filepath.Join(homeDir, "logs"),
		filepath.Join(homeDir, "state"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureConfigFile(filepath.Join(homeDir, "config.yaml"))
}

// Load reads config.yaml from homeDir. A missing file yields defaults.
func Load(homeDir string) (*Config, error) {
	cfg := &Config{
		HomeDir: homeDir,
		File:    defaultFileConfig(),
	}
	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Default returns an in-memory configuration that is never persisted.
func Default() *Config {
	return &Config{File: defaultFileConfig()}
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.HomeDir, "logs")
}

// StateDir returns the path to the state directory
func (c *Config) StateDir() string {
	return filepath.Join(c.HomeDir, "state")
}

// ConfigPath returns the on-disk location for the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.HomeDir, "config.yaml")
}

// ImmediateLogPath returns the transcript file restored into the immediate pane.
func (c *Config) ImmediateLogPath() string {
	return filepath.Join(c.StateDir(), "immediate.log")
}

// Editor returns the code pane settings.
func (c *Config) Editor() EditorConfig {
	return c.File.Editor
}

// Run returns the run settings with environment overrides applied.
func (c *Config) Run() RunConfig {
	run := c.File.Run
	if c.interpreterOverride != "" {
		run.Interpreter = c.interpreterOverride
	}
	return run
}

// Format returns the formatter settings.
func (c *Config) Format() FormatConfig {
	return c.File.Format
}

// RecentFiles returns the most-recent-first list of opened files.
func (c *Config) RecentFiles() []string {
	return c.File.RecentFiles
}

// AddRecentFile moves path to the front of the recent list and persists the
// config when a home directory is set.
func (c *Config) AddRecentFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("config: recent file path is required")
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	recent := []string{path}
	for _, existing := range c.File.RecentFiles {
		if existing == path {
			continue
		}
		recent = append(recent, existing)
	}
	if len(recent) > maxRecentFiles {
		recent = recent[:maxRecentFiles]
	}
	c.File.RecentFiles = recent
	if c.HomeDir == "" {
		return nil
	}
	return c.save()
}

// SetShowLineNumbers toggles the line number gutter and persists the choice.
func (c *Config) SetShowLineNumbers(show bool) error {
	c.File.Editor.ShowLineNumbers = show
	if c.HomeDir == "" {
		return nil
	}
	return c.save()
}

func (c *Config) loadFile() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultFileConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.File = parsed
	return nil
}

func (c *Config) applyEnvOverrides() {
	if interp := strings.TrimSpace(os.Getenv(InterpreterEnv)); interp != "" {
		c.interpreterOverride = interp
	}
}

func defaultFileConfig() FileConfig {
	return FileConfig{
		Version: 1,
		Editor: EditorConfig{
			TabSize:                 defaultTabSize,
			AutoIndent:              true,
			StripTrailingWhitespace: true,
			ShowLineNumbers:         true,
			Theme:                   "classic",
		},
		Run: RunConfig{
			Interpreter: defaultInterpreter,
			Args:        []string{"-u"},
			Mode:        RunModeCapture,
		},
		Format: FormatConfig{
			Tools: []FormatTool{
				{Name: "isort", Command: "isort", Args: []string{"--quiet", "-"}},
				{Name: "black", Command: "black", Args: []string{"--quiet", "-"}},
			},
		},
	}
}

func (fc *FileConfig) applyDefaults() {
	if fc.Version == 0 {
		fc.Version = 1
	}
	if fc.Editor.TabSize == 0 {
		fc.Editor.TabSize = defaultTabSize
	}
	if strings.TrimSpace(fc.Run.Interpreter) == "" {
		fc.Run.Interpreter = defaultInterpreter
	}
	if strings.TrimSpace(fc.Run.Mode) == "" {
		fc.Run.Mode = RunModeCapture
	}
	if strings.TrimSpace(fc.Editor.Theme) == "" {
		fc.Editor.Theme = "classic"
	}
}

func (fc *FileConfig) normalize() {
	fc.Run.Mode = strings.ToLower(strings.TrimSpace(fc.Run.Mode))
	fc.Run.Interpreter = strings.TrimSpace(fc.Run.Interpreter)
	fc.Editor.Theme = strings.ToLower(strings.TrimSpace(fc.Editor.Theme))
	for i := range fc.Format.Tools {
		fc.Format.Tools[i].Name = strings.TrimSpace(fc.Format.Tools[i].Name)
		fc.Format.Tools[i].Command = strings.TrimSpace(fc.Format.Tools[i].Command)
		if fc.Format.Tools[i].Name == "" {
			fc.Format.Tools[i].Name = filepath.Base(fc.Format.Tools[i].Command)
		}
	}
	var recent []string
	for _, path := range fc.RecentFiles {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			recent = append(recent, trimmed)
		}
	}
	fc.RecentFiles = recent
}

func (fc *FileConfig) validate() error {
	if fc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if fc.Editor.TabSize < 1 || fc.Editor.TabSize > 16 {
		return fmt.Errorf("editor.tab_size must be between 1 and 16")
	}
	switch fc.Run.Mode {
	case RunModeCapture, RunModeTerminal:
	default:
		return fmt.Errorf("run.mode must be '%s' or '%s'", RunModeCapture, RunModeTerminal)
	}
	if fc.Run.Timeout < 0 {
		return fmt.Errorf("run.timeout must not be negative")
	}
	for i, tool := range fc.Format.Tools {
		if tool.Command == "" {
			return fmt.Errorf("format.tools[%d]: command is required", i)
		}
	}
	return nil
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func (c *Config) save() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.File.applyDefaults()
	c.File.normalize()
	if err := c.File.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.HomeDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure home dir: %w", err)
	}
	data, err := c.encode()
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write config: %w", err)
	}
	return nil
}

// encode renders c.File onto the existing config.yaml so comments and key
// order the user (or the default template) put there survive a save.
func (c *Config) encode() ([]byte, error) {
	var fresh yaml.Node
	if err := fresh.Encode(c.File); err != nil {
		return nil, err
	}
	existing, err := os.ReadFile(c.ConfigPath())
	if err != nil {
		return marshalNode(&fresh)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(existing, &doc); err != nil || doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return marshalNode(&fresh)
	}
	mergeNode(doc.Content[0], &fresh)
	return marshalNode(&doc)
}

// mergeNode makes dst hold src's values while keeping dst's comments and
// styles. Mapping keys absent from src are dropped; new ones are appended.
func mergeNode(dst, src *yaml.Node) {
	if dst.Kind != yaml.MappingNode || src.Kind != yaml.MappingNode {
		kept := *dst
		*dst = *src
		dst.HeadComment, dst.LineComment, dst.FootComment = kept.HeadComment, kept.LineComment, kept.FootComment
		if kept.Kind == src.Kind && src.Kind == yaml.SequenceNode {
			dst.Style = kept.Style
		}
		return
	}
	values := map[string]*yaml.Node{}
	for i := 0; i+1 < len(src.Content); i += 2 {
		values[src.Content[i].Value] = src.Content[i+1]
	}
	merged := make([]*yaml.Node, 0, len(src.Content))
	for i := 0; i+1 < len(dst.Content); i += 2 {
		key := dst.Content[i]
		value, ok := values[key.Value]
		if !ok {
			continue
		}
		mergeNode(dst.Content[i+1], value)
		merged = append(merged, key, dst.Content[i+1])
		delete(values, key.Value)
	}
	for i := 0; i+1 < len(src.Content); i += 2 {
		if _, ok := values[src.Content[i].Value]; ok {
			merged = append(merged, src.Content[i], src.Content[i+1])
		}
	}
	dst.Content = merged
}

func marshalNode(n *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
