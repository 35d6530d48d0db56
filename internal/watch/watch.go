// Package watch notices when the file open in the editor is changed by
// another program. The parent directory is watched rather than the file so
// editors that save by rename are still seen.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kingrea/quickpython/internal/logging"
)

const defaultDebounce = 150 * time.Millisecond

// Op describes what happened to the watched file.
type Op string

const (
	OpWrite  Op = "write"
	OpRemove Op = "remove"
)

// Event reports a change to the watched file.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// Watcher emits debounced events for a single file at a time.
type Watcher struct {
	mu       sync.Mutex
	fs       *fsnotify.Watcher
	target   string
	dir      string
	debounce time.Duration
	muted    time.Time
	logger   *logging.Logger

	events chan Event
	errors chan error
	stopCh chan struct{}
	doneCh chan struct{}
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithLogger attaches a diagnostic logger.
func WithLogger(logger *logging.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New starts a watcher goroutine. Call Close to stop it.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{
		fs:       fsw,
		debounce: defaultDebounce,
		events:   make(chan Event, 1),
		errors:   make(chan error, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	go w.loop()
	return w, nil
}

// Events delivers changes to the watched file.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors delivers watcher failures.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Watch switches the watcher to path. An empty path stops watching.
func (w *Watcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		path = abs
	}
	dir := ""
	if path != "" {
		dir = filepath.Dir(path)
	}
	if dir != w.dir {
		if w.dir != "" {
			_ = w.fs.Remove(w.dir)
		}
		if dir != "" {
			if err := w.fs.Add(dir); err != nil {
				w.dir, w.target = "", ""
				return fmt.Errorf("watch: %s: %w", dir, err)
			}
		}
		w.dir = dir
	}
	w.target = path
	return nil
}

// Target returns the file currently watched.
func (w *Watcher) Target() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target
}

// Mute suppresses events for d, used while the editor itself saves.
func (w *Watcher) Mute(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.muted = time.Now().Add(d)
}

// Close stops the goroutine and releases the fsnotify handle.
func (w *Watcher) Close() error {
	select {
	case <-w.stopCh:
		return nil
	default:
	}
	close(w.stopCh)
	err := w.fs.Close()
	<-w.doneCh
	return err
}

func (w *Watcher) loop() {
	defer close(w.doneCh)
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending Event
	)
	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			op, match := w.classify(ev)
			if !match {
				continue
			}
			pending = Event{Path: ev.Name, Op: op, Time: time.Now()}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			w.deliver(pending)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) classify(ev fsnotify.Event) (Op, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.target == "" || filepath.Clean(ev.Name) != w.target {
		return "", false
	}
	if time.Now().Before(w.muted) {
		w.logger.Debugf("watch: muted %s on %s", ev.Op, ev.Name)
		return "", false
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return OpRemove, true
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
		return OpWrite, true
	}
	return "", false
}

func (w *Watcher) deliver(ev Event) {
	w.logger.Debugf("watch: %s %s", ev.Op, ev.Path)
	// keep only the newest event if the consumer is behind
	select {
	case <-w.events:
	default:
	}
	select {
	case w.events <- ev:
	case <-w.stopCh:
	}
}
