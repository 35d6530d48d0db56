package logbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newBook(t *testing.T, path string, opts ...Option) *Logbook {
	t.Helper()
	book, err := New(path, opts...)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	t.Cleanup(func() { _ = book.Close() })
	return book
}

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "immediate.log")
	book := newBook(t, path)
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestMessagesStripPrefixAndKeepIndentation(t *testing.T) {
	book := newBook(t, filepath.Join(t.TempDir(), "state", "immediate.log"))
	book.Info("run hello.py")
	book.Output("    indented output")
	book.Output("")
	book.Error("exit status 1")
	got := book.Messages(10)
	want := []string{"run hello.py", "    indented output", "", "exit status 1"}
	if len(got) != len(want) {
		t.Fatalf("messages = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("message %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestClearTruncates(t *testing.T) {
	book := newBook(t, filepath.Join(t.TempDir(), "immediate.log"))
	book.Warn("something")
	if err := book.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if lines, total := book.Tail(5); len(lines) != 0 || total != 0 {
		t.Fatalf("expected empty logbook, got %v (%d)", lines, total)
	}
}

func TestNilLogbookIsSafe(t *testing.T) {
	var book *Logbook
	book.Info("ignored")
	if lines, total := book.Tail(3); lines != nil || total != 0 {
		t.Fatalf("nil logbook returned data")
	}
	if book.Path() != "" {
		t.Fatalf("nil logbook path should be empty")
	}
	if err := book.Flush(); err != nil {
		t.Fatalf("flush nil: %v", err)
	}
	if err := book.Close(); err != nil {
		t.Fatalf("close nil: %v", err)
	}
}

func TestOutputIsBatchedUntilNextEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "immediate.log")
	book := newBook(t, path)
	book.Output("first")
	book.Output("second")
	if data, _ := os.ReadFile(path); len(data) != 0 {
		t.Fatalf("output reached the file before a flush: %q", data)
	}
	book.Info("run finished")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "\n"); got != 3 {
		t.Fatalf("file has %d lines after info entry, want 3: %q", got, data)
	}

	book.Output("third")
	if err := book.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if data, _ := os.ReadFile(path); !strings.Contains(string(data), "third") {
		t.Fatalf("flushed output missing: %q", data)
	}
}

func TestCompactionKeepsNewestEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "immediate.log")
	book := newBook(t, path, WithLimit(10))
	for i := 0; i < 45; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(100)
	if total > 20 {
		t.Fatalf("file grew to %d entries with a limit of 10", total)
	}
	if last := Message(lines[len(lines)-1]); last != "entry-44" {
		t.Fatalf("newest entry = %q, want entry-44", last)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestNewTrimsOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "immediate.log")
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "2024-01-02T03:04:05Z INFO  old-%d\n", i)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	book := newBook(t, path, WithLimit(5))
	got := book.Messages(100)
	want := []string{"old-25", "old-26", "old-27", "old-28", "old-29"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("messages after open = %q, want %q", got, want)
	}
}
