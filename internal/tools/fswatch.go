package tools

import (
	"sync"

	"github.com/fsnotify/fsnotify"

	"quill/internal/logging"
)

// FreshnessWatcher observes files that have been read through a UseContext
// and reports external modifications. It backs the stale-read check for
// changes that a wall-clock mtime comparison can miss (sub-granularity
// edits, editors that preserve timestamps).
type FreshnessWatcher struct {
	fw       *fsnotify.Watcher
	onChange func(path string)

	mu      sync.Mutex
	watched map[string]bool
	closed  bool
}

// NewFreshnessWatcher starts a watcher that invokes onChange for every
// write, create, remove, or rename event on a watched path.
func NewFreshnessWatcher(onChange func(path string)) (*FreshnessWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &FreshnessWatcher{
		fw:       fw,
		onChange: onChange,
		watched:  make(map[string]bool),
	}
	go w.loop()
	return w, nil
}

func (w *FreshnessWatcher) loop() {
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				logging.ToolsDebug("freshness: %s changed (%s)", ev.Name, ev.Op)
				w.onChange(ev.Name)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logging.Tools("freshness watcher error: %v", err)
		}
	}
}

// Watch registers a path. Watching the same path twice is a no-op.
func (w *FreshnessWatcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.watched[path] {
		return nil
	}
	if err := w.fw.Add(path); err != nil {
		return err
	}
	w.watched[path] = true
	return nil
}

// Close stops the watcher.
func (w *FreshnessWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.fw.Close()
}
