// Package watch triggers site rebuilds when files change on disk.  It
// watches the content directory recursively (new subdirectories join the
// watch as they appear) plus any schema files, coalesces bursts of events
// into one rebuild, and skips the droppings editors leave behind while
// saving.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a burst of events is allowed to settle
// before one rebuild is fired for the lot.
const DefaultDebounce = 250 * time.Millisecond

// ErrAlreadyStarted is returned by Start on a watcher that is running.
var ErrAlreadyStarted = errors.New("watcher already started")

// RebuildFunc receives the changed paths once a burst settles.  Paths
// under the content directory are relative to it; schema files keep the
// path they were registered with.  It runs on the watcher's goroutine, so
// a slow rebuild delays the next one rather than piling up.
type RebuildFunc func(paths []string)

// Watcher is the serve-mode file watcher.
type Watcher struct {
	mu sync.Mutex

	dir      string   // content directory, absolute
	files    []string // schema files, absolute
	rebuild  RebuildFunc
	debounce time.Duration
	logger   *slog.Logger

	fsw     *fsnotify.Watcher
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a watcher over the content directory and the given extra
// files.  Nothing happens until Start.
func New(contentDir string, schemaFiles []string, rebuild RebuildFunc, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	dir, err := filepath.Abs(contentDir)
	if err != nil {
		dir = filepath.Clean(contentDir)
	}
	files := make([]string, 0, len(schemaFiles))
	for _, f := range schemaFiles {
		if abs, err := filepath.Abs(f); err == nil {
			files = append(files, abs)
		} else {
			files = append(files, filepath.Clean(f))
		}
	}
	return &Watcher{
		dir:      dir,
		files:    files,
		rebuild:  rebuild,
		debounce: DefaultDebounce,
		logger:   logger.With("component", "watcher"),
	}
}

// SetDebounce overrides the default settle window.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Start begins watching and returns immediately; rebuild callbacks arrive
// on a background goroutine until Stop or the context ends.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	if err := w.watchTree(w.dir); err != nil {
		_ = fsw.Close()
		w.fsw = nil
		return err
	}
	// Watch the directory holding each schema file rather than the file
	// itself - editors replace files on save, which silently kills a
	// per-file watch.
	seen := map[string]bool{w.dir: true}
	for _, f := range w.files {
		parent := filepath.Dir(f)
		if seen[parent] {
			continue
		}
		seen[parent] = true
		if err := fsw.Add(parent); err != nil {
			w.logger.Warn("cannot watch schema dir", "dir", parent, "error", err)
		}
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	w.started = true
	w.logger.Info("watcher started", "dir", w.dir, "extra_files", len(w.files))
	return nil
}

// Stop ends watching.  It is safe to call on a stopped watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return nil
	}
	w.cancel()
	_ = w.fsw.Close()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		w.logger.Warn("watcher shutdown timeout exceeded")
	}

	w.fsw = nil
	w.started = false
	w.logger.Info("watcher stopped")
	return nil
}

// run is the event loop: collect events into pending, fire the rebuild
// once they stop arriving for a debounce window.
func (w *Watcher) run(ctx context.Context) {
	pending := make(map[string]struct{})
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod || w.ignored(ev.Name) {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				// A directory moved in wholesale only announces itself,
				// so it must both join the watch and count as a change.
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.watchTree(ev.Name); err != nil {
						w.logger.Warn("cannot watch new dir", "dir", ev.Name, "error", err)
					}
				}
			}
			rel, ok := w.relevant(ev.Name)
			if !ok {
				continue
			}
			pending[rel] = struct{}{}

			if timer != nil && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-fire:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]struct{})
			timer, fire = nil, nil

			w.logger.Info("content changed", "paths", len(paths))
			w.rebuild(paths)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// watchTree adds dir and everything below it to the watch.
func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		return w.fsw.Add(p)
	})
}

// ignored reports whether name is an editor dropping: vim swap and backup
// files, temp files, and vim's write-test file 4913.
func (w *Watcher) ignored(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".tmp") ||
		base == "4913"
}

// relevant maps an event path to what the rebuild should hear about:
// content paths become relative, registered schema files stay as given,
// anything else (a neighbour in a schema file's directory) is dropped.
func (w *Watcher) relevant(name string) (string, bool) {
	if rel, err := filepath.Rel(w.dir, name); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel), true
	}
	for _, f := range w.files {
		if name == f {
			return f, true
		}
	}
	return "", false
}
