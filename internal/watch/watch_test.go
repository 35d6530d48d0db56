package watch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/kingrea/quickpython/internal/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(opts...)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	w.debounce = 20 * time.Millisecond
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func waitEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func TestWatchReportsExternalWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.py")
	if err := os.WriteFile(path, []byte("print(1)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := newTestWatcher(t)
	if err := w.Watch(path); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "other.py"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("print(2)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, w)
	if ev.Op != OpWrite {
		t.Fatalf("op = %s, want %s", ev.Op, OpWrite)
	}
	if filepath.Base(ev.Path) != "main.py" {
		t.Fatalf("event for %s, want main.py", ev.Path)
	}
}

func TestWatchReportsRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.py")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := newTestWatcher(t)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if ev := waitEvent(t, w); ev.Op != OpRemove {
		t.Fatalf("op = %s, want %s", ev.Op, OpRemove)
	}
}

func TestMuteSuppressesOwnSaves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.py")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	logDir := t.TempDir()
	logger, err := logging.New(logDir, true)
	if err != nil {
		t.Fatal(err)
	}
	w := newTestWatcher(t, WithLogger(logger))
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}
	w.Mute(time.Second)
	if err := os.WriteFile(path, []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event while muted: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
	_ = w.Close()
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(logDir, logging.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "watch: muted") {
		t.Fatalf("muted write not logged: %q", data)
	}
}

func TestWatchSwitchAndClear(t *testing.T) {
	w := newTestWatcher(t)
	first := filepath.Join(t.TempDir(), "a.py")
	second := filepath.Join(t.TempDir(), "b.py")
	if err := w.Watch(first); err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(second); err != nil {
		t.Fatal(err)
	}
	if w.Target() != second {
		t.Fatalf("target = %s, want %s", w.Target(), second)
	}
	if err := w.Watch(""); err != nil {
		t.Fatal(err)
	}
	if w.Target() != "" {
		t.Fatalf("expected cleared target, got %s", w.Target())
	}
}
