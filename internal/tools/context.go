package tools

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Options is the caller's option set for one conversation turn.
type Options struct {
	// BypassPermissions skips the permission gate for every invocation.
	BypassPermissions bool

	// AvailableTools restricts which tool names may be invoked this turn.
	// Empty means all registered tools.
	AvailableTools []string

	// Model is a hint naming the model driving this turn.
	Model string
}

// FileStamp records when a path was last read through a context and the
// on-disk modification time observed at that moment.
type FileStamp struct {
	ReadAt  time.Time
	ModTime time.Time
}

// UseContext is the per-invocation scope threaded through tool execution.
// It is created per conversation turn and discarded after. The read-stamp
// map is the system's only concurrency-control state: optimistic, per-path,
// no locks beyond the map's own mutex, because a turn is logically
// single-writer.
type UseContext struct {
	// Options is the caller's option set.
	Options Options

	mu      sync.Mutex
	stamps  map[string]FileStamp
	dirty   map[string]bool
	watcher *FreshnessWatcher
}

// NewUseContext creates a fresh per-turn context.
func NewUseContext(opts Options) *UseContext {
	return &UseContext{
		Options: opts,
		stamps:  make(map[string]FileStamp),
		dirty:   make(map[string]bool),
	}
}

// AttachWatcher wires a freshness watcher whose change events mark paths
// dirty. Optional; the mtime comparison alone still catches most staleness.
func (c *UseContext) AttachWatcher(w *FreshnessWatcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watcher = w
}

// RecordRead notes that path was read now with the given on-disk mtime.
// Clears any dirty mark and registers the path with the watcher.
func (c *UseContext) RecordRead(path string, modTime time.Time) {
	c.mu.Lock()
	c.stamps[path] = FileStamp{ReadAt: time.Now(), ModTime: modTime}
	delete(c.dirty, path)
	w := c.watcher
	c.mu.Unlock()

	if w != nil {
		// Best effort; a watch failure degrades to mtime-only checks.
		_ = w.Watch(path)
	}
}

// ReadStamp returns the recorded stamp for path.
func (c *UseContext) ReadStamp(path string) (FileStamp, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.stamps[path]
	return st, ok
}

// MarkDirty flags a path as externally modified since its last read.
func (c *UseContext) MarkDirty(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, tracked := c.stamps[path]; tracked {
		c.dirty[path] = true
	}
}

// CheckFresh verifies that path may be written: it must have been read
// through this context and must not have changed on disk since. Returns
// ErrFileNotRead or ErrStaleRead accordingly.
func (c *UseContext) CheckFresh(path string) error {
	c.mu.Lock()
	st, read := c.stamps[path]
	dirty := c.dirty[path]
	c.mu.Unlock()

	if !read {
		return fmt.Errorf("%w: %s", ErrFileNotRead, path)
	}
	if dirty {
		return fmt.Errorf("%w: %s", ErrStaleRead, path)
	}

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Deleted out from under us counts as stale.
			return fmt.Errorf("%w: %s (deleted)", ErrStaleRead, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.ModTime().After(st.ModTime) {
		return fmt.Errorf("%w: %s", ErrStaleRead, path)
	}
	return nil
}

// Close releases the watcher, if any.
func (c *UseContext) Close() {
	c.mu.Lock()
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()

	if w != nil {
		w.Close()
	}
}
