package watch_test

// watch_test.go drives the watcher with real filesystem events.  Debounce
// windows are shortened so the tests settle quickly.

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gqldocs/gqldocs/internal/watch"
)

const settle = 300 * time.Millisecond // long enough for fsnotify + debounce

// startWatcher returns a running watcher and the channel its rebuilds
// arrive on.
func startWatcher(t *testing.T, dir string, schema []string) (*watch.Watcher, chan []string) {
	t.Helper()
	rebuilds := make(chan []string, 8)
	w := watch.New(dir, schema, func(paths []string) { rebuilds <- paths }, nil)
	w.SetDebounce(50 * time.Millisecond)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return w, rebuilds
}

func waitBatch(t *testing.T, rebuilds chan []string) []string {
	t.Helper()
	select {
	case paths := <-rebuilds:
		return paths
	case <-time.After(2 * time.Second):
		t.Fatalf("no rebuild arrived")
		return nil
	}
}

func noBatch(t *testing.T, rebuilds chan []string) {
	t.Helper()
	select {
	case paths := <-rebuilds:
		t.Fatalf("unexpected rebuild for %v", paths)
	case <-time.After(settle):
	}
}

func write(t *testing.T, dir, name string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte("x"), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestRebuildOnChange(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "page.md")
	_, rebuilds := startWatcher(t, dir, nil)

	write(t, dir, "page.md")
	paths := waitBatch(t, rebuilds)
	Assertf(t, len(paths) == 1 && paths[0] == "page.md", "Expected just page.md, got %v", paths)
}

func TestBurstCoalesced(t *testing.T) {
	dir := t.TempDir()
	_, rebuilds := startWatcher(t, dir, nil)

	write(t, dir, "one.md")
	write(t, dir, "two.md")
	write(t, dir, "one.md") // touched twice, reported once

	paths := waitBatch(t, rebuilds)
	Assertf(t, len(paths) == 2, "Expected one batch with both files, got %v", paths)
	Assertf(t, paths[0] == "one.md" && paths[1] == "two.md", "Expected sorted paths, got %v", paths)
	noBatch(t, rebuilds)
}

func TestEditorDroppingsIgnored(t *testing.T) {
	dir := t.TempDir()
	_, rebuilds := startWatcher(t, dir, nil)

	for _, name := range []string{".page.md.swp", "page.md~", "save.tmp", "4913", ".hidden"} {
		write(t, dir, name)
	}
	noBatch(t, rebuilds)
}

func TestNewDirectoryJoinsWatch(t *testing.T) {
	dir := t.TempDir()
	_, rebuilds := startWatcher(t, dir, nil)

	if err := os.Mkdir(filepath.Join(dir, "guides"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	paths := waitBatch(t, rebuilds) // the new directory itself is a change
	Assertf(t, len(paths) == 1 && paths[0] == "guides", "Expected the new dir reported, got %v", paths)

	write(t, dir, "guides/intro.md")
	paths = waitBatch(t, rebuilds)
	Assertf(t, len(paths) == 1 && paths[0] == "guides/intro.md",
		"Expected a file in the new dir to be seen, got %v", paths)
}

func TestSchemaFileWatched(t *testing.T) {
	contentDir := t.TempDir()
	schemaDir := t.TempDir()
	schema := filepath.Join(schemaDir, "schema.graphql")
	if err := os.WriteFile(schema, []byte("type Query { ok: Boolean }"), 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	_, rebuilds := startWatcher(t, contentDir, []string{schema})

	// a neighbour in the schema's directory is not ours to care about
	if err := os.WriteFile(filepath.Join(schemaDir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	noBatch(t, rebuilds)

	if err := os.WriteFile(schema, []byte("type Query { ok: Int }"), 0o600); err != nil {
		t.Fatalf("rewrite schema: %v", err)
	}
	paths := waitBatch(t, rebuilds)
	Assertf(t, len(paths) == 1 && strings.HasSuffix(paths[0], "schema.graphql"),
		"Expected the schema file reported, got %v", paths)
}

func TestLifecycle(t *testing.T) {
	dir := t.TempDir()
	w, rebuilds := startWatcher(t, dir, nil)

	err := w.Start(context.Background())
	Assertf(t, err == watch.ErrAlreadyStarted, "Expected ErrAlreadyStarted, got %v", err)

	err = w.Stop()
	Assertf(t, err == nil, "Expected a clean stop, got %v", err)
	err = w.Stop()
	Assertf(t, err == nil, "Expected stop to be idempotent, got %v", err)

	// no callbacks after Stop
	write(t, dir, "late.md")
	noBatch(t, rebuilds)

	// a stopped watcher can start again
	err = w.Start(context.Background())
	Assertf(t, err == nil, "Expected a restart to work, got %v", err)
	write(t, dir, "again.md")
	paths := waitBatch(t, rebuilds)
	Assertf(t, len(paths) == 1 && paths[0] == "again.md", "Expected the restarted watcher to see changes, got %v", paths)
}

const (
	succeed = "✓"
	failed  = "X" //"✗"
)

// Assertf is used to log test results
func Assertf(tb testing.TB, condition bool, format string, args ...interface{}) {
	tb.Helper()
	if !condition {
		tb.Errorf("%-6s"+format, append([]interface{}{failed}, args...)...)
	} else {
		tb.Logf("%-6s"+format, append([]interface{}{succeed}, args...)...)
	}
}
