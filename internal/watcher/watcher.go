// Package watcher turns filesystem events under a vault into indexing tasks.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/queue"
	"vaultindex/internal/vault"
)

// DefaultSettle is how long a rename waits for the matching create event.
const DefaultSettle = 100 * time.Millisecond

// Sink receives the tasks produced by the watcher.
type Sink interface {
	Push(task queue.Task)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(task queue.Task)

// Push calls f(task).
func (f SinkFunc) Push(task queue.Task) { f(task) }

// Watcher observes a vault recursively.
//
// A rename arrives as two events: Rename on the old name, then Create on the new
// one. The watcher holds the old name for the settle window and emits a Move when
// the Create follows; otherwise the file left the vault and a Delete is emitted.
type Watcher struct {
	vault  *vault.Vault
	sink   Sink
	settle time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	// Owned by the event loop once started.
	logger  *slog.Logger
	dirs    map[string]struct{}
	files   map[string]struct{}
	pending *pendingRename
	timer   *time.Timer
}

type pendingRename struct {
	path  string
	isDir bool
}

// New creates a watcher for v that pushes tasks to sink. A non-positive settle
// selects DefaultSettle.
func New(v *vault.Vault, sink Sink, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{vault: v, sink: sink, settle: settle}
}

// Start registers watches on every directory of the vault and begins
// translating events. The logger in ctx is used for the watcher's lifetime.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	w.fsw = fsw
	w.logger = contextutil.LoggerFromContext(ctx).With("component", "watcher")
	w.dirs = make(map[string]struct{})
	w.files = make(map[string]struct{})
	w.pending = nil
	w.timer = time.NewTimer(time.Hour)
	w.timer.Stop()

	if err := w.addTree(w.vault.Root(), false); err != nil {
		_ = fsw.Close()
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.run(loopCtx, fsw, w.done)

	w.logger.Info("watcher started", "root", w.vault.Root(), "dirs", len(w.dirs))
	return nil
}

// Stop ends event delivery and waits for the loop to exit. It is safe to call
// more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel, done, fsw := w.cancel, w.done, w.fsw
	w.mu.Unlock()

	cancel()
	<-done
	if err := fsw.Close(); err != nil {
		w.logger.Warn("failed to close watcher", "error", err)
	}
	w.logger.Info("watcher stopped")
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			w.flushPending()
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)
		case <-w.timer.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if w.vault.IsReserved(path) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		w.onCreate(path)
	case ev.Has(fsnotify.Write):
		if vault.IsMarkdown(path) && w.isFile(path) {
			w.files[path] = struct{}{}
			w.emit(queue.Upsert{Path: path})
		}
	case ev.Has(fsnotify.Remove):
		w.onRemove(path)
	case ev.Has(fsnotify.Rename):
		w.onRename(path)
	}
}

func (w *Watcher) onCreate(path string) {
	info, err := os.Stat(path)
	if err != nil {
		// Gone before we looked; a Remove event follows.
		return
	}

	if p := w.pending; p != nil {
		switch {
		case p.isDir && info.IsDir():
			w.clearPending()
			w.moveTree(p.path, path)
			return
		case !p.isDir && !info.IsDir() && vault.IsMarkdown(path):
			w.clearPending()
			delete(w.files, p.path)
			w.files[path] = struct{}{}
			w.emit(queue.Move{Src: p.path, Dest: path})
			return
		default:
			w.flushPending()
		}
	}

	if info.IsDir() {
		if err := w.addTree(path, true); err != nil {
			w.logger.Error("failed to watch new directory", "path", path, "error", err)
		}
		return
	}
	if vault.IsMarkdown(path) {
		w.files[path] = struct{}{}
		w.emit(queue.Upsert{Path: path})
	}
}

func (w *Watcher) onRemove(path string) {
	if _, ok := w.dirs[path]; ok {
		w.removeTree(path)
		return
	}
	if !vault.IsMarkdown(path) {
		return
	}
	delete(w.files, path)
	w.emit(queue.Delete{Path: path})
}

func (w *Watcher) onRename(path string) {
	w.flushPending()

	_, isDir := w.dirs[path]
	_, known := w.files[path]
	if !isDir && !known && !vault.IsMarkdown(path) {
		return
	}
	w.pending = &pendingRename{path: path, isDir: isDir}
	w.timer.Reset(w.settle)
}

// flushPending treats an unmatched rename as a removal.
func (w *Watcher) flushPending() {
	p := w.pending
	if p == nil {
		return
	}
	w.clearPending()
	if p.isDir {
		w.removeTree(p.path)
		return
	}
	delete(w.files, p.path)
	w.emit(queue.Delete{Path: p.path})
}

func (w *Watcher) clearPending() {
	w.pending = nil
	if !w.timer.Stop() {
		select {
		case <-w.timer.C:
		default:
		}
	}
}

// addTree watches root and every directory below it. With emit, Markdown files
// not seen before are reported as upserts.
func (w *Watcher) addTree(root string, emit bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != root {
				return nil
			}
			return err
		}
		if w.vault.IsReserved(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			w.dirs[path] = struct{}{}
			return nil
		}
		if !vault.IsMarkdown(path) {
			return nil
		}
		if _, seen := w.files[path]; seen {
			return nil
		}
		w.files[path] = struct{}{}
		if emit {
			w.emit(queue.Upsert{Path: path})
		}
		return nil
	})
}

// removeTree forgets a directory that left the vault and deletes every file
// known beneath it.
func (w *Watcher) removeTree(root string) {
	for dir := range w.dirs {
		if under(dir, root) {
			_ = w.fsw.Remove(dir)
			delete(w.dirs, dir)
		}
	}
	for _, path := range w.filesUnder(root) {
		delete(w.files, path)
		w.emit(queue.Delete{Path: path})
	}
}

// moveTree re-homes every known file under src to dest and watches the new tree.
func (w *Watcher) moveTree(src, dest string) {
	for dir := range w.dirs {
		if under(dir, src) {
			_ = w.fsw.Remove(dir)
			delete(w.dirs, dir)
		}
	}
	for _, path := range w.filesUnder(src) {
		moved := dest + strings.TrimPrefix(path, src)
		delete(w.files, path)
		w.files[moved] = struct{}{}
		w.emit(queue.Move{Src: path, Dest: moved})
	}
	if err := w.addTree(dest, true); err != nil {
		w.logger.Error("failed to watch moved directory", "path", dest, "error", err)
	}
}

func (w *Watcher) filesUnder(root string) []string {
	var paths []string
	for path := range w.files {
		if under(path, root) {
			paths = append(paths, path)
		}
	}
	return paths
}

func (w *Watcher) isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (w *Watcher) emit(task queue.Task) {
	w.logger.Debug("file event", "task", task.Kind(), "detail", task)
	w.sink.Push(task)
}

// under reports whether path is root or lies below it.
func under(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
