// internal/tui/app.go
//
// This is the editor TUI for QuickPython. Like every bubbletea program it
// follows The Elm Architecture:
//
// 1. Model: App holds the code pane, the immediate pane, menus and dialogs
// 2. Update: keys and background results (run output, saves, file events)
// 3. View: menu bar, panes, status line and key help rendered to a string
//
// Slow work (formatting, saving, running) happens in tea.Cmds so the screen
// never blocks; results come back as messages.

package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/quickpython/internal/buffer"
	"github.com/kingrea/quickpython/internal/config"
	"github.com/kingrea/quickpython/internal/format"
	"github.com/kingrea/quickpython/internal/games"
	"github.com/kingrea/quickpython/internal/logbook"
	"github.com/kingrea/quickpython/internal/logging"
	"github.com/kingrea/quickpython/internal/runner"
	"github.com/kingrea/quickpython/internal/watch"
)

// appState represents what has the keyboard.
type appState int

const (
	stateEditing appState = iota // code or immediate pane
	stateMenu                    // a dropdown is open
	stateDialog                  // a dialog is open
)

type paneFocus int

const (
	focusCode paneFocus = iota
	focusImmediate
)

const (
	untitledName      = "untitled.py"
	immediateHistory  = logbook.DefaultLimit
	saveMute          = time.Second
	defaultWidth      = 100
	defaultHeight     = 30
	minImmediateLines = 3
)

// Clipboard is the system clipboard. The default uses atotto/clipboard and
// falls back to an in-process register when no clipboard tool is present.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemClipboard struct {
	register string
}

func (c *systemClipboard) ReadAll() (string, error) {
	if text, err := clipboard.ReadAll(); err == nil {
		return text, nil
	}
	return c.register, nil
}

func (c *systemClipboard) WriteAll(text string) error {
	c.register = text
	if clipboard.Unsupported {
		return nil
	}
	return clipboard.WriteAll(text)
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithLogger attaches the diagnostic logger.
func WithLogger(logger *logging.Logger) AppOption {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithLogbook attaches the immediate pane transcript.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// WithWatcher enables external change detection for the open file.
func WithWatcher(w *watch.Watcher) AppOption {
	return func(a *App) {
		a.watcher = w
	}
}

// WithFormatter overrides the formatter built from config.
func WithFormatter(f *format.Formatter) AppOption {
	return func(a *App) {
		if f != nil {
			a.formatter = f
		}
	}
}

// WithRunner overrides the runner built from config.
func WithRunner(r *runner.Runner) AppOption {
	return func(a *App) {
		if r != nil {
			a.runner = r
		}
	}
}

// WithClipboard replaces the system clipboard.
func WithClipboard(c Clipboard) AppOption {
	return func(a *App) {
		if c != nil {
			a.clipboard = c
		}
	}
}

// WithGames lists the examples offered in the Examples menu.
func WithGames(infos []games.Info) AppOption {
	return func(a *App) {
		a.games = infos
	}
}

// WithExecutable sets the binary launched for `play <example>`.
func WithExecutable(path string) AppOption {
	return func(a *App) {
		a.executable = path
	}
}

// WithExampleArgs adds global flags to every `play <example>` launch.
func WithExampleArgs(args ...string) AppOption {
	return func(a *App) {
		a.exampleArgs = append(a.exampleArgs, args...)
	}
}

// WithVersion is shown in Help > About.
func WithVersion(version string) AppOption {
	return func(a *App) {
		a.version = version
	}
}

// WithFile opens path at startup. A missing file starts an empty buffer
// that will be saved there.
func WithFile(path string) AppOption {
	return func(a *App) {
		a.startFile = path
	}
}

// App is the editor model. In bubbletea, this holds ALL the state.
type App struct {
	state appState
	focus paneFocus

	cfg       *config.Config
	logger    *logging.Logger
	logbook   *logbook.Logbook
	runner    *runner.Runner
	formatter *format.Formatter
	watcher   *watch.Watcher
	clipboard Clipboard
	games     []games.Info

	executable  string
	exampleArgs []string
	version     string
	startFile   string

	ctx    context.Context
	cancel context.CancelFunc

	// UI components
	code      textarea.Model
	immediate viewport.Model
	dropdown  list.Model
	dialog    *dialog
	keys      keyMap
	help      help.Model

	menuIdx   int
	menuWidth int

	immediateLines []string
	showImmediate  bool

	// path is empty for an unsaved buffer; saved is the text last read or
	// written so modified can be derived.
	path     string
	saved    string
	modified bool

	run     *runner.Run
	runName string

	// formatters maps tool name to installed; nil until checked
	formatters map[string]bool

	status string
	width  int
	height int
}

// NewApp creates the editor over cfg.
func NewApp(cfg *config.Config, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, errors.New("tui: config is required")
	}
	editor := cfg.Editor()

	code := textarea.New()
	code.Prompt = ""
	code.CharLimit = 0
	code.MaxHeight = 0
	code.ShowLineNumbers = editor.ShowLineNumbers
	code.Placeholder = "# type some Python, then press F5"
	code.Focus()

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		state:         stateEditing,
		focus:         focusCode,
		cfg:           cfg,
		logger:        logging.Nop(),
		clipboard:     &systemClipboard{},
		ctx:           ctx,
		cancel:        cancel,
		code:          code,
		immediate:     viewport.New(defaultWidth, minImmediateLines),
		keys:          defaultKeyMap(),
		help:          help.New(),
		showImmediate: true,
		width:         defaultWidth,
		height:        defaultHeight,
		version:       "dev",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if app.runner == nil {
		app.runner = runner.New(cfg.Run(), runner.WithLogger(app.logger))
	}
	if app.formatter == nil {
		app.formatter = format.New(cfg.Format())
	}
	if app.executable == "" {
		if exe, err := os.Executable(); err == nil {
			app.executable = exe
		}
	}
	app.restoreImmediate()
	if app.startFile != "" {
		if err := app.openFile(app.startFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				cancel()
				return nil, err
			}
			app.path = absPath(app.startFile)
			app.watchPath()
			app.status = fmt.Sprintf("new file %s", filepath.Base(app.path))
		}
	}
	app.layout()
	return app, nil
}

// Close stops a running program and releases the watcher.
func (a *App) Close() error {
	if a.run != nil {
		a.run.Stop()
	}
	a.cancel()
	if a.watcher != nil {
		return a.watcher.Close()
	}
	return nil
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, a.waitForFileEvent(), a.checkFormatters())
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		return a, nil

	case runLineMsg:
		if a.run == nil || msg.id != a.run.ID {
			return a, nil
		}
		a.appendImmediate(msg.line)
		a.logbook.Output(msg.line)
		return a, waitForRunLine(a.run)

	case runDoneMsg:
		return a, a.finishRun(msg)

	case terminalDoneMsg:
		return a, a.finishTerminalRun(msg)

	case exampleDoneMsg:
		if msg.err != nil {
			a.status = fmt.Sprintf("%s ended: %v", msg.id, msg.err)
			a.logger.Errorf("example %s: %v", msg.id, msg.err)
		} else {
			a.status = fmt.Sprintf("back from %s", msg.id)
		}
		return a, nil

	case formattedMsg:
		a.applyFormat(msg)
		return a, nil

	case formattersMsg:
		a.noteFormatters(msg)
		return a, nil

	case savedMsg:
		return a, a.finishSave(msg)

	case fileEventMsg:
		a.noteFileEvent(msg.event)
		return a, a.waitForFileEvent()

	case watchErrMsg:
		a.logger.Errorf("watch: %v", msg.err)
		return a, a.waitForFileEvent()

	case tea.KeyMsg:
		switch a.state {
		case stateDialog:
			return a, a.updateDialog(msg)
		case stateMenu:
			return a, a.updateMenu(msg)
		}
		if cmd, handled := a.handleKey(msg); handled {
			return a, cmd
		}
	}

	return a, a.updatePanes(msg)
}

// handleKey runs editor bindings. Keys that are not bindings fall through
// to the focused pane.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	for i, m := range menus {
		if msg.String() == m.accel {
			a.openMenu(i)
			return nil, true
		}
	}
	switch {
	case key.Matches(msg, a.keys.Menu):
		a.openMenu(a.menuIdx)
	case key.Matches(msg, a.keys.Quit):
		return a.perform(menuEntry{action: actExit}), true
	case key.Matches(msg, a.keys.New):
		return a.perform(menuEntry{action: actNew}), true
	case key.Matches(msg, a.keys.Open):
		return a.perform(menuEntry{action: actOpen}), true
	case key.Matches(msg, a.keys.Save):
		return a.perform(menuEntry{action: actSave}), true
	case key.Matches(msg, a.keys.Run):
		return a.perform(menuEntry{action: actRun}), true
	case key.Matches(msg, a.keys.Stop):
		return a.perform(menuEntry{action: actStop}), true
	case key.Matches(msg, a.keys.Focus):
		return a.perform(menuEntry{action: actFocus}), true
	case key.Matches(msg, a.keys.ClearImmediate):
		return a.perform(menuEntry{action: actClearImmediate}), true
	case key.Matches(msg, a.keys.Help):
		return a.perform(menuEntry{action: actKeys}), true
	case key.Matches(msg, a.keys.Goto):
		return a.perform(menuEntry{action: actGoto}), true
	case a.focus != focusCode:
		return nil, false
	case key.Matches(msg, a.keys.Indent):
		return a.perform(menuEntry{action: actIndent}), true
	case key.Matches(msg, a.keys.Dedent):
		return a.perform(menuEntry{action: actDedent}), true
	case key.Matches(msg, a.keys.CopyLine):
		return a.perform(menuEntry{action: actCopyLine}), true
	case key.Matches(msg, a.keys.CutLine):
		return a.perform(menuEntry{action: actCutLine}), true
	case key.Matches(msg, a.keys.Paste):
		return a.perform(menuEntry{action: actPaste}), true
	case key.Matches(msg, a.keys.Format):
		return a.perform(menuEntry{action: actFormat}), true
	case msg.Type == tea.KeyEnter && a.cfg.Editor().AutoIndent:
		a.newLine()
	default:
		return nil, false
	}
	return nil, true
}

func (a *App) updatePanes(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if a.focus == focusImmediate {
		if _, isKey := msg.(tea.KeyMsg); isKey {
			a.immediate, cmd = a.immediate.Update(msg)
			return cmd
		}
	}
	before := a.code.Value()
	a.code, cmd = a.code.Update(msg)
	if _, isKey := msg.(tea.KeyMsg); isKey && a.code.Value() != before {
		a.touch()
	}
	return cmd
}

func (a *App) updateMenu(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "f10":
		a.closeMenu()
		return nil
	case "left":
		a.openMenu(a.menuIdx - 1)
		return nil
	case "right":
		a.openMenu(a.menuIdx + 1)
		return nil
	case "enter":
		entry, ok := a.dropdown.SelectedItem().(menuEntry)
		a.closeMenu()
		if !ok {
			return nil
		}
		return a.perform(entry)
	}
	for i, m := range menus {
		if msg.String() == m.accel {
			a.openMenu(i)
			return nil
		}
	}
	var cmd tea.Cmd
	a.dropdown, cmd = a.dropdown.Update(msg)
	return cmd
}

func (a *App) updateDialog(msg tea.KeyMsg) tea.Cmd {
	d := a.dialog
	if d == nil {
		a.state = stateEditing
		return nil
	}
	done, cmd := d.update(msg)
	if done && a.dialog == d {
		a.dialog = nil
		if a.state == stateDialog {
			a.state = stateEditing
		}
	}
	return cmd
}

// perform carries out a menu action. Key bindings route through here too.
func (a *App) perform(entry menuEntry) tea.Cmd {
	switch entry.action {
	case actNew:
		return a.guardUnsaved("New file", func() tea.Cmd {
			a.resetBuffer("", "")
			a.status = "new file"
			return nil
		})
	case actOpen:
		a.showInput("Open", "File to open:", a.suggestDir(), func(value string) tea.Cmd {
			if value == "" {
				return nil
			}
			return a.guardUnsaved("Open", func() tea.Cmd {
				a.openOrReport(value)
				return nil
			})
		})
	case actOpenRecent:
		return a.guardUnsaved("Open", func() tea.Cmd {
			a.openOrReport(entry.arg)
			return nil
		})
	case actSave:
		if a.path == "" {
			return a.perform(menuEntry{action: actSaveAs})
		}
		return a.save(a.path, nil)
	case actSaveAs:
		suggest := a.path
		if suggest == "" {
			suggest = filepath.Join(a.suggestDir(), untitledName)
		}
		a.showInput("Save As", "Save to:", suggest, func(value string) tea.Cmd {
			if value == "" {
				return nil
			}
			return a.save(absPath(value), nil)
		})
	case actReload:
		if a.path == "" {
			a.status = "nothing to reload"
			return nil
		}
		return a.guardUnsaved("Reload", func() tea.Cmd {
			a.openOrReport(a.path)
			return nil
		})
	case actExit:
		return a.guardUnsaved("Exit", func() tea.Cmd {
			a.logger.Printf("tui: exit")
			return tea.Quit
		})
	case actIndent:
		row, col := a.cursor()
		a.applyEdit(buffer.Indent(a.code.Value(), row, col, a.cfg.Editor().TabSize))
	case actDedent:
		row, col := a.cursor()
		a.applyEdit(buffer.Dedent(a.code.Value(), row, col, a.cfg.Editor().TabSize))
	case actGoto:
		a.showInput("Go to Line", fmt.Sprintf("Line number (1-%d):", a.code.LineCount()), "", func(value string) tea.Cmd {
			a.gotoLine(value)
			return nil
		})
	case actCopyLine:
		row, _ := a.cursor()
		a.copyText(buffer.Line(a.code.Value(), row)+"\n", "line copied")
	case actCutLine:
		row, _ := a.cursor()
		edit, cut := buffer.CutLine(a.code.Value(), row)
		a.applyEdit(edit)
		a.copyText(cut, "line cut")
	case actPaste:
		text, err := a.clipboard.ReadAll()
		if err != nil || text == "" {
			a.status = "clipboard is empty"
			return nil
		}
		row, col := a.cursor()
		a.applyEdit(buffer.Insert(a.code.Value(), row, col, text))
	case actFormat:
		a.status = "formatting..."
		return a.formatBuffer()
	case actToggleLineNumbers:
		show := !a.code.ShowLineNumbers
		a.code.ShowLineNumbers = show
		if err := a.cfg.SetShowLineNumbers(show); err != nil {
			a.logger.Errorf("save config: %v", err)
		}
	case actToggleImmediate:
		a.showImmediate = !a.showImmediate
		if !a.showImmediate {
			a.setFocus(focusCode)
		}
		a.layout()
	case actClearImmediate:
		a.immediateLines = nil
		a.immediate.SetContent("")
		if err := a.logbook.Clear(); err != nil {
			a.logger.Errorf("clear immediate: %v", err)
		}
	case actFocus:
		if a.focus == focusCode && a.showImmediate {
			a.setFocus(focusImmediate)
		} else {
			a.setFocus(focusCode)
		}
	case actRun:
		if a.cfg.Run().Mode == config.RunModeTerminal && !runner.IsGo(a.bufferName()) {
			return a.runInTerminal()
		}
		return a.runCaptured()
	case actRunTerminal:
		return a.runInTerminal()
	case actRunCaptured:
		return a.runCaptured()
	case actStop:
		if a.run == nil {
			a.status = "nothing is running (ctrl+q exits)"
			return nil
		}
		a.run.Stop()
		a.status = "stopping..."
	case actExample:
		return a.launchExample(entry.arg)
	case actAbout:
		a.showMessage("About", renderMarkdown(a.aboutMarkdown(), a.dialogWidth()-6))
	case actKeys:
		a.showMessage("Keys", renderMarkdown(a.keys.markdown(), a.dialogWidth()-6))
	}
	return nil
}

// guardUnsaved runs next directly, or after asking to save a modified buffer.
func (a *App) guardUnsaved(title string, next func() tea.Cmd) tea.Cmd {
	if !a.modified {
		return next()
	}
	name := filepath.Base(a.bufferName())
	a.dialog = newConfirmDialog(title, fmt.Sprintf("Save changes to %s?", name), func(choice confirmChoice) tea.Cmd {
		switch choice {
		case choiceYes:
			if a.path == "" {
				a.status = "use File > Save As first"
				a.perform(menuEntry{action: actSaveAs})
				return nil
			}
			return a.save(a.path, next)
		case choiceNo:
			return next()
		}
		return nil
	})
	a.state = stateDialog
	return nil
}

func (a *App) showInput(title, prompt, value string, submit func(string) tea.Cmd) {
	a.dialog = newInputDialog(title, prompt, value, a.dialogWidth(), submit)
	a.state = stateDialog
}

func (a *App) showMessage(title, content string) {
	a.dialog = newMessageDialog(title, content, a.dialogWidth(), a.height)
	a.state = stateDialog
}

func (a *App) showError(title string, err error) {
	a.logger.Errorf("%s: %v", strings.ToLower(title), err)
	a.showMessage(title, err.Error())
}

func (a *App) dialogWidth() int {
	return max(30, min(80, a.width-4))
}

// ---- buffer ----

// cursor returns the logical row and column of the code pane cursor.
func (a *App) cursor() (int, int) {
	info := a.code.LineInfo()
	return a.code.Line(), info.StartColumn + info.ColumnOffset
}

func (a *App) moveCursor(row, col int) {
	limit := len(a.code.Value()) + a.code.LineCount() + 1
	for i := 0; a.code.Line() > row && i < limit; i++ {
		a.code.CursorUp()
	}
	for i := 0; a.code.Line() < row && i < limit; i++ {
		a.code.CursorDown()
	}
	a.code.SetCursor(col)
}

func (a *App) applyEdit(edit buffer.Edit) {
	a.code.SetValue(edit.Text)
	a.moveCursor(edit.Row, edit.Col)
	a.touch()
}

func (a *App) newLine() {
	row, col := a.cursor()
	editor := a.cfg.Editor()
	a.applyEdit(buffer.NewLine(a.code.Value(), row, col, buffer.NewLineOptions{
		TabSize:       editor.TabSize,
		AutoIndent:    editor.AutoIndent,
		StripTrailing: editor.StripTrailingWhitespace,
	}))
}

func (a *App) touch() {
	a.modified = a.code.Value() != a.saved
}

func (a *App) resetBuffer(path, text string) {
	a.path = path
	a.saved = text
	a.code.SetValue(text)
	a.moveCursor(0, 0)
	a.modified = false
	a.watchPath()
}

func (a *App) gotoLine(value string) {
	n, err := buffer.ParseLine(value)
	if err == nil {
		var row int
		if row, err = buffer.GotoLine(a.code.Value(), n); err == nil {
			a.moveCursor(row, 0)
			a.status = fmt.Sprintf("line %d", n)
			return
		}
	}
	a.status = strings.TrimPrefix(err.Error(), "buffer: ")
}

func (a *App) copyText(text, status string) {
	if err := a.clipboard.WriteAll(text); err != nil {
		a.logger.Errorf("clipboard: %v", err)
	}
	a.status = status
}

func (a *App) bufferName() string {
	if a.path == "" {
		return untitledName
	}
	return a.path
}

func (a *App) suggestDir() string {
	if a.path != "" {
		return filepath.Dir(a.path)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return ""
}

// ---- files ----

func (a *App) openFile(path string) error {
	path = absPath(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	a.resetBuffer(path, string(data))
	if err := a.cfg.AddRecentFile(path); err != nil {
		a.logger.Errorf("recent files: %v", err)
	}
	a.status = fmt.Sprintf("opened %s", filepath.Base(path))
	a.logger.Printf("tui: opened %s (%d bytes)", path, len(data))
	return nil
}

func (a *App) openOrReport(path string) {
	if err := a.openFile(path); err != nil {
		a.showError("Open", err)
	}
}

func (a *App) watchPath() {
	if a.watcher == nil {
		return
	}
	if err := a.watcher.Watch(a.path); err != nil {
		a.logger.Errorf("watch %s: %v", a.path, err)
	}
}

// save formats (when format.on_save is set), strips trailing whitespace and
// writes the buffer in the background. then, if set, runs after a successful
// write.
func (a *App) save(path string, then func() tea.Cmd) tea.Cmd {
	src := a.code.Value()
	strip := a.cfg.Editor().StripTrailingWhitespace
	onSave := a.cfg.Format().OnSave
	formatter := a.formatter
	watcher := a.watcher
	ctx := a.ctx
	a.status = fmt.Sprintf("saving %s...", filepath.Base(path))
	return func() tea.Msg {
		msg := savedMsg{path: path, source: src, text: src, then: then}
		if onSave {
			res, err := formatter.Format(ctx, src)
			if err != nil {
				msg.formatErr = err
			} else {
				msg.text = res.Text
			}
		}
		if strip {
			msg.text = buffer.StripTrailingWhitespace(msg.text)
		}
		// mute after formatting so a slow formatter cannot outlast it
		if watcher != nil && path == watcher.Target() {
			watcher.Mute(saveMute)
		}
		msg.err = os.WriteFile(path, []byte(msg.text), 0o644)
		return msg
	}
}

func (a *App) finishSave(msg savedMsg) tea.Cmd {
	if msg.err != nil {
		a.showError("Save", msg.err)
		return nil
	}
	retarget := msg.path != a.path
	a.path = msg.path
	a.saved = msg.text
	if a.code.Value() == msg.source && msg.text != msg.source {
		row, col := a.cursor()
		a.applyEdit(buffer.Edit{Text: msg.text, Row: row, Col: col})
	}
	a.touch()
	if retarget {
		a.watchPath()
	}
	if err := a.cfg.AddRecentFile(msg.path); err != nil {
		a.logger.Errorf("recent files: %v", err)
	}
	a.status = fmt.Sprintf("saved %s", filepath.Base(msg.path))
	if msg.formatErr != nil {
		a.status += " (format failed: " + msg.formatErr.Error() + ")"
		a.logbook.Warn("format on save: %v", msg.formatErr)
	}
	a.logger.Printf("tui: saved %s (%d bytes)", msg.path, len(msg.text))
	if msg.then != nil {
		return msg.then()
	}
	return nil
}

func (a *App) noteFileEvent(ev watch.Event) {
	if ev.Path != a.path {
		return
	}
	if ev.Op == watch.OpWrite {
		if data, err := os.ReadFile(ev.Path); err == nil && string(data) == a.saved {
			a.logger.Debugf("tui: ignoring write to %s matching the last save", ev.Path)
			return
		}
	}
	name := filepath.Base(ev.Path)
	switch ev.Op {
	case watch.OpRemove:
		a.status = fmt.Sprintf("%s was removed on disk; save to recreate it", name)
	default:
		a.status = fmt.Sprintf("%s changed on disk; File > Reload to load it", name)
	}
	a.logger.Printf("tui: %s %s externally", ev.Path, ev.Op)
}

func (a *App) waitForFileEvent() tea.Cmd {
	w := a.watcher
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			return fileEventMsg{event: ev}
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			return watchErrMsg{err: err}
		}
	}
}

// ---- format ----

func (a *App) formatBuffer() tea.Cmd {
	src := a.code.Value()
	formatter := a.formatter
	ctx := a.ctx
	return func() tea.Msg {
		res, err := formatter.Format(ctx, src)
		return formattedMsg{source: src, result: res, err: err}
	}
}

// checkFormatters looks up every configured formatter in the background.
func (a *App) checkFormatters() tea.Cmd {
	formatter := a.formatter
	ctx := a.ctx
	return func() tea.Msg {
		found, err := formatter.Available(ctx)
		return formattersMsg{found: found, err: err}
	}
}

func (a *App) noteFormatters(msg formattersMsg) {
	if msg.err != nil {
		a.logger.Errorf("format: checking tools: %v", msg.err)
		return
	}
	a.formatters = msg.found
	var missing []string
	for _, tool := range a.formatter.Tools() {
		if !msg.found[tool.Name] {
			missing = append(missing, tool.Name)
		}
	}
	if len(missing) == 0 {
		return
	}
	a.logger.Printf("format: not installed: %s", strings.Join(missing, ", "))
	if a.status == "" {
		a.status = "formatters not installed: " + strings.Join(missing, ", ")
	}
}

func (a *App) applyFormat(msg formattedMsg) {
	switch {
	case errors.Is(msg.err, format.ErrToolMissing):
		a.status = strings.TrimPrefix(msg.err.Error(), "format: ")
		return
	case msg.err != nil:
		a.status = "format failed"
		a.logbook.Error("%v", msg.err)
		a.appendImmediate(msg.err.Error())
		return
	}
	res := msg.result
	switch {
	case a.code.Value() != msg.source:
		a.status = "buffer changed while formatting; try again"
		return
	case !res.Changed:
		a.status = "already formatted"
		return
	}
	row, col := a.cursor()
	a.applyEdit(buffer.Edit{Text: res.Text, Row: row, Col: col})
	a.status = "formatted with " + strings.Join(res.Applied, ", ")
}

// ---- run ----

func (a *App) runCaptured() tea.Cmd {
	if a.run != nil {
		a.status = "already running (ctrl+c stops it)"
		return nil
	}
	name := a.bufferName()
	run, err := a.runner.Start(a.ctx, a.code.Value(), name)
	if err != nil {
		a.reportRunError(err)
		return nil
	}
	a.run = run
	a.runName = filepath.Base(name)
	a.logbook.Info("run %s", a.runName)
	a.appendImmediate(fmt.Sprintf("> run %s", a.runName))
	a.status = fmt.Sprintf("running %s...", a.runName)
	return waitForRunLine(run)
}

func (a *App) finishRun(msg runDoneMsg) tea.Cmd {
	if a.run == nil || msg.result.ID != a.run.ID {
		return nil
	}
	a.run = nil
	res := msg.result
	var summary string
	switch {
	case errors.Is(res.Err, runner.ErrStopped):
		summary = fmt.Sprintf("%s stopped after %s", a.runName, res.Duration.Round(time.Millisecond))
	case res.Err != nil:
		summary = fmt.Sprintf("%s: %v", a.runName, res.Err)
	default:
		summary = fmt.Sprintf("%s exited with code %d in %s", a.runName, res.ExitCode, res.Duration.Round(time.Millisecond))
	}
	a.appendImmediate("> " + summary)
	if res.Err != nil || res.ExitCode != 0 {
		a.logbook.Warn("%s", summary)
	} else {
		a.logbook.Info("%s", summary)
	}
	a.status = summary
	return nil
}

func (a *App) runInTerminal() tea.Cmd {
	if a.run != nil {
		a.status = "already running (ctrl+c stops it)"
		return nil
	}
	name := a.bufferName()
	cmd, cleanup, err := a.runner.Command(a.code.Value(), name)
	if err != nil {
		a.reportRunError(err)
		return nil
	}
	a.runName = filepath.Base(name)
	a.logbook.Info("run %s in terminal", a.runName)
	started := time.Now()
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		cleanup()
		return terminalDoneMsg{err: err, elapsed: time.Since(started)}
	})
}

func (a *App) finishTerminalRun(msg terminalDoneMsg) tea.Cmd {
	code := 0
	var exitErr *exec.ExitError
	switch {
	case errors.As(msg.err, &exitErr):
		code = exitErr.ExitCode()
	case msg.err != nil:
		a.reportRunError(msg.err)
		return nil
	}
	summary := fmt.Sprintf("%s exited with code %d in %s", a.runName, code, msg.elapsed.Round(time.Millisecond))
	a.appendImmediate("> " + summary)
	a.logbook.Info("%s", summary)
	a.status = summary
	return nil
}

func (a *App) reportRunError(err error) {
	if errors.Is(err, runner.ErrEmptyProgram) {
		a.status = "nothing to run"
		return
	}
	a.appendImmediate("> " + err.Error())
	a.logbook.Error("%v", err)
	a.status = "run failed"
}

// launchExample hands the terminal to `<self> play <id>`.
func (a *App) launchExample(id string) tea.Cmd {
	if a.executable == "" {
		a.status = "cannot locate the quickpython binary"
		return nil
	}
	cmd := a.exampleCommand(id)
	a.logger.Printf("tui: launching example %s: %s", id, strings.Join(cmd.Args, " "))
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return exampleDoneMsg{id: id, err: err}
	})
}

// exampleCommand passes the editor's global flags through so the game
// logs to the same home directory.
func (a *App) exampleCommand(id string) *exec.Cmd {
	args := append(append([]string(nil), a.exampleArgs...), "play", id)
	return exec.Command(a.executable, args...)
}

func waitForRunLine(run *runner.Run) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-run.Lines()
		if !ok {
			return runDoneMsg{result: run.Wait()}
		}
		return runLineMsg{id: run.ID, line: line}
	}
}

// ---- immediate pane ----

func (a *App) restoreImmediate() {
	a.immediateLines = a.logbook.Messages(immediateHistory)
	a.refreshImmediate()
}

func (a *App) appendImmediate(line string) {
	a.immediateLines = append(a.immediateLines, line)
	if over := len(a.immediateLines) - immediateHistory; over > 0 {
		a.immediateLines = a.immediateLines[over:]
	}
	a.refreshImmediate()
}

func (a *App) refreshImmediate() {
	a.immediate.SetContent(strings.Join(a.immediateLines, "\n"))
	a.immediate.GotoBottom()
}

func (a *App) setFocus(f paneFocus) {
	a.focus = f
	if f == focusCode {
		a.code.Focus()
		return
	}
	a.code.Blur()
}

// ---- view ----

var (
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444"))
	paneFocusStyle = paneStyle.
			BorderForeground(lipgloss.Color("#5B8DEF"))
	paneTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0000AA"))
)

// layout sizes the panes for the current window.
func (a *App) layout() {
	body := max(6, a.height-3)
	inner := max(10, a.width-2)
	immediate := 0
	if a.showImmediate {
		immediate = max(minImmediateLines, body/4)
		a.immediate.Width = inner
		a.immediate.Height = immediate
		immediate += 3
	}
	a.code.SetWidth(inner)
	a.code.SetHeight(max(1, body-immediate-3))
	a.help.Width = a.width
	a.refreshImmediate()
}

func (a *App) codeTitle() string {
	title := filepath.Base(a.bufferName())
	if a.modified {
		title += " *"
	}
	return title
}

// View renders the current state to a string.
func (a *App) View() string {
	bar := a.renderMenuBar()
	body := a.renderPanes()
	bodyHeight := max(6, a.height-3)
	switch a.state {
	case stateMenu:
		body = overlayTop(a.renderDropdown(), body)
	case stateDialog:
		if a.dialog != nil {
			body = lipgloss.Place(a.width, bodyHeight, lipgloss.Center, lipgloss.Center, a.dialog.view())
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, bar, body, a.renderStatus(), a.help.View(a.keys))
}

func (a *App) renderPanes() string {
	codeStyle, immStyle := paneStyle, paneStyle
	if a.focus == focusCode {
		codeStyle = paneFocusStyle
	} else {
		immStyle = paneFocusStyle
	}
	code := codeStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		paneTitleStyle.Render(a.codeTitle()),
		a.code.View(),
	))
	if !a.showImmediate {
		return code
	}
	immediate := immStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		paneTitleStyle.Render("Immediate"),
		a.immediate.View(),
	))
	return lipgloss.JoinVertical(lipgloss.Left, code, immediate)
}

func (a *App) renderStatus() string {
	row, col := a.cursor()
	right := fmt.Sprintf(" Ln %d, Col %d ", row+1, col+1)
	if a.run != nil {
		right = " RUNNING " + right
	}
	left := " " + a.status
	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right))
	return statusStyle.Render(left + strings.Repeat(" ", gap) + right)
}

// overlayTop replaces the first lines of base with top.
func overlayTop(top, base string) string {
	topLines := strings.Split(top, "\n")
	baseLines := strings.Split(base, "\n")
	for i, line := range topLines {
		if i < len(baseLines) {
			baseLines[i] = line
		} else {
			baseLines = append(baseLines, line)
		}
	}
	return strings.Join(baseLines, "\n")
}

func (a *App) aboutMarkdown() string {
	return fmt.Sprintf(`# QuickPython %s

A small terminal editor for Python in the spirit of QBasic.

* **F5** runs the buffer with %s; output lands in the Immediate pane.
* **Ctrl+F** runs the configured formatters.
* The **Examples** menu has a few console games to read and play.

Settings live in %s.

## Formatters

%s`, a.version, a.cfg.Run().Interpreter, a.cfg.ConfigPath(), a.formattersMarkdown())
}

func (a *App) formattersMarkdown() string {
	tools := a.formatter.Tools()
	if len(tools) == 0 {
		return "None configured.\n"
	}
	var sb strings.Builder
	for _, tool := range tools {
		state := "not checked yet"
		if a.formatters != nil {
			state = "not installed"
			if a.formatters[tool.Name] {
				state = "installed"
			}
		}
		fmt.Fprintf(&sb, "* `%s`: %s\n", tool.Name, state)
	}
	return sb.String()
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// ---- messages ----

type runLineMsg struct {
	id   string
	line string
}

type runDoneMsg struct {
	result runner.Result
}

type terminalDoneMsg struct {
	err     error
	elapsed time.Duration
}

type exampleDoneMsg struct {
	id  string
	err error
}

type formattedMsg struct {
	source string
	result format.Result
	err    error
}

type formattersMsg struct {
	found map[string]bool
	err   error
}

type savedMsg struct {
	path      string
	source    string
	text      string
	formatErr error
	err       error
	then      func() tea.Cmd
}

type fileEventMsg struct {
	event watch.Event
}

type watchErrMsg struct {
	err error
}
