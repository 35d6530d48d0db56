package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a transcript entry.
type Level string

const (
	LevelInfo   Level = "INFO"
	LevelWarn   Level = "WARN"
	LevelError  Level = "ERROR"
	LevelOutput Level = "OUT"
)

// DefaultLimit is how many entries survive a compaction unless WithLimit
// says otherwise.
const DefaultLimit = 500

// Logbook persists the immediate pane transcript to a simple text file so the
// pane can be restored on the next launch. Program output is buffered until
// the next non-output entry or an explicit Flush. The file is cut back to
// the newest limit entries on open and whenever it grows to twice that.
type Logbook struct {
	path  string
	limit int

	mu    sync.Mutex
	file  *os.File
	w     *bufio.Writer
	count int
}

// Option customizes a Logbook.
type Option func(*Logbook)

// WithLimit sets how many entries are kept; zero or less keeps everything.
func WithLimit(n int) Option {
	return func(l *Logbook) {
		l.limit = n
	}
}

// New creates a logbook that writes to the provided path.
func New(path string, opts ...Option) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	l := &Logbook{path: path, limit: DefaultLimit}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	lines, err := l.readLocked()
	if err != nil {
		return nil, err
	}
	l.count = len(lines)
	if l.limit > 0 && l.count > l.limit {
		if err := l.rewriteLocked(lines[l.count-l.limit:]); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry to the logbook.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.openLocked(); err != nil {
		return
	}
	fmt.Fprintf(l.w, "%s %-5s %s\n",
		time.Now().UTC().Format(time.RFC3339),
		string(level),
		strings.TrimRight(message, "\r\n"),
	)
	l.count++
	if level != LevelOutput {
		_ = l.w.Flush()
	}
	if l.limit > 0 && l.count >= 2*l.limit {
		_ = l.compactLocked()
	}
}

// Flush writes buffered output entries to the file.
func (l *Logbook) Flush() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return nil
	}
	return l.w.Flush()
}

// Close flushes and releases the file. A later Append reopens it.
func (l *Logbook) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

// Tail returns up to maxLines of the most recent entries plus the total
// number of entries in the file.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w != nil {
		_ = l.w.Flush()
	}
	lines, err := l.readLocked()
	total := len(lines)
	if err != nil || total == 0 {
		return nil, 0
	}
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}

func (l *Logbook) openLocked() error {
	if l.file != nil {
		return nil
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	l.file = file
	l.w = bufio.NewWriter(file)
	return nil
}

func (l *Logbook) closeLocked() error {
	if l.file == nil {
		return nil
	}
	flushErr := l.w.Flush()
	closeErr := l.file.Close()
	l.file, l.w = nil, nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// readLocked returns every line in the file; a missing file has none.
func (l *Logbook) readLocked() ([]string, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func (l *Logbook) compactLocked() error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	lines, err := l.readLocked()
	if err != nil {
		return err
	}
	if len(lines) <= l.limit {
		l.count = len(lines)
		return nil
	}
	return l.rewriteLocked(lines[len(lines)-l.limit:])
}

// rewriteLocked replaces the file with lines through a temp file and rename.
func (l *Logbook) rewriteLocked(lines []string) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, l.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	l.count = len(lines)
	return nil
}

// Messages is Tail with the timestamp and level stripped, which is what the
// immediate pane displays.
func (l *Logbook) Messages(maxLines int) []string {
	lines, _ := l.Tail(maxLines)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, Message(line))
	}
	return out
}

// Message extracts the message part of a logbook line.
func Message(line string) string {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) != 2 {
		return line
	}
	if _, err := time.Parse(time.RFC3339, parts[0]); err != nil {
		return line
	}
	rest := strings.TrimLeft(parts[1], " ")
	idx := strings.IndexByte(rest, ' ')
	if idx < 0 {
		return ""
	}
	// the level column is padded to five characters
	return strings.TrimPrefix(rest[idx+1:], strings.Repeat(" ", max(0, 5-idx)))
}

// Clear truncates the transcript.
func (l *Logbook) Clear() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.closeLocked(); err != nil {
		return err
	}
	l.count = 0
	return os.WriteFile(l.path, nil, 0o644)
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}

// Output appends a line of program output verbatim.
func (l *Logbook) Output(line string) {
	l.Append(LevelOutput, line)
}
