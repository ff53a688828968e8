// Package watcher follows the generated store with fsnotify and reports
// changed files after a debounce.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// DefaultExtensions are the store files worth reporting.
var DefaultExtensions = []string{".html", ".json"}

// Watcher watches one output directory tree and invokes callbacks on file
// changes.
type Watcher struct {
	root        string
	extensions  []string
	onChange    func(path string)
	onRemove    func(path string)
	debounce    time.Duration
	logger      *zap.Logger
	mu          sync.Mutex
	fsw         *fsnotify.Watcher
	debounceMap map[string]*time.Timer
	done        chan struct{}
	stopOnce    sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithExtensions restricts callbacks to files with these extensions. Empty
// means every file.
func WithExtensions(exts ...string) WatcherOption {
	return func(w *Watcher) { w.extensions = exts }
}

// WithDebounce sets how long a file must stay quiet before onChange runs.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for root. onChange runs for created or
// written files, onRemove for removed or renamed ones; either may be nil.
func NewWatcher(root string, onChange, onRemove func(path string), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:        filepath.Clean(root),
		extensions:  DefaultExtensions,
		onChange:    onChange,
		onRemove:    onRemove,
		debounce:    defaultDebounce,
		logger:      zap.NewNop(),
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Start creates the root if needed, watches it and every directory below it,
// and runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := addTree(fsw, w.root); err != nil {
		_ = fsw.Close()
		return err
	}
	w.fsw = fsw
	w.logger.Debug("watcher starting", zap.String("root", w.root), zap.Strings("extensions", w.extensions))
	go w.run(ctx, fsw)
	return nil
}

func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !inDir(w.root, path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(fsw, path)
			return
		}
		if matchExtension(path, w.extensions) {
			w.debounceChange(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancelDebounce(path)
		if matchExtension(path, w.extensions) && w.onRemove != nil {
			w.onRemove(path)
		}
	}
}

// handleNewDirectory watches a directory that appeared under the root and
// reports the files already inside it; generators create a section
// directory and write into it before the watch is in place.
func (w *Watcher) handleNewDirectory(fsw *fsnotify.Watcher, dir string) {
	if err := addTree(fsw, dir); err != nil {
		w.logger.Debug("watcher failed to add directory", zap.String("path", dir), zap.Error(err))
	}
	w.syncDirectory(dir, w.debounceChange)
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) debounceChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.logger.Debug("watcher reporting change", zap.String("path", path))
		if w.onChange != nil {
			w.onChange(path)
		}
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

func (w *Watcher) syncDirectory(dir string, report func(string)) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if matchExtension(path, w.extensions) {
			report(path)
		}
		return nil
	})
}

// SyncExistingFiles calls onChange, without debounce, for every matching
// file already under the root.
func (w *Watcher) SyncExistingFiles() {
	if w.onChange == nil {
		return
	}
	w.logger.Debug("watcher syncing existing files", zap.String("root", w.root))
	w.syncDirectory(w.root, w.onChange)
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	fsw := w.fsw
	w.mu.Unlock()
	w.stopOnce.Do(func() {
		close(w.done)
		if fsw != nil {
			_ = fsw.Close()
		}
	})
}
