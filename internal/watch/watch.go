// Package watch re-runs drift detection when source or documentation files
// change.
package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tosin2013/docdrift/internal/discover"
	"github.com/tosin2013/docdrift/internal/lang"
)

// DefaultDebounce is the quiet period before a batch of changes is handled.
const DefaultDebounce = 500 * time.Millisecond

// Handler receives the sorted, de-duplicated paths (relative to the watched
// root) that changed during one debounce window. A returned error is logged
// and watching continues.
type Handler func(ctx context.Context, changed []string) error

// Watcher watches a project tree.
type Watcher struct {
	root     string
	handler  Handler
	debounce time.Duration
	ignore   []string
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithIgnore excludes paths under the given directories, absolute or
// relative to the root.
func WithIgnore(dirs ...string) Option {
	return func(w *Watcher) { w.ignore = append(w.ignore, dirs...) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a Watcher for root.
func New(root string, handler Handler, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     abs,
		handler:  handler,
		debounce: DefaultDebounce,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	for i, dir := range w.ignore {
		if !filepath.IsAbs(dir) {
			w.ignore[i] = filepath.Join(w.root, dir)
		}
	}
	return w, nil
}

// Run watches until ctx is cancelled. Changes still pending at cancellation
// are dropped.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addRecursive(fw, w.root, nil); err != nil {
		return fmt.Errorf("watching %s: %w", w.root, err)
	}
	w.logger.Info("watching for changes", "root", w.root, "debounce", w.debounce)

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			changed := false
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// Files written before the directory was watched are
					// picked up by the walk.
					err := w.addRecursive(fw, event.Name, func(rel string) {
						pending[rel] = struct{}{}
						changed = true
					})
					if err != nil {
						w.logger.Warn("watching new directory", "path", event.Name, "error", err)
					}
				}
			}
			if rel, ok := w.relevant(event.Name); ok && event.Op != fsnotify.Chmod {
				pending[rel] = struct{}{}
				changed = true
			}
			if !changed {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			w.flush(ctx, pending)
			pending = make(map[string]struct{})

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) {
	if len(pending) == 0 || w.handler == nil {
		return
	}
	changed := make([]string, 0, len(pending))
	for p := range pending {
		changed = append(changed, p)
	}
	sort.Strings(changed)

	w.logger.Debug("changes detected", "files", len(changed))
	if err := w.handler(ctx, changed); err != nil {
		w.logger.Error("handling changes", "error", err)
	}
}

// addRecursive watches dir and its subdirectories. onFile, when set,
// receives every relevant file found on the way.
func (w *Watcher) addRecursive(fw *fsnotify.Watcher, dir string, onFile func(rel string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			if onFile != nil {
				if rel, ok := w.relevant(path); ok {
					onFile(rel)
				}
			}
			return nil
		}
		if path != w.root && (discover.SkipDir(d.Name()) || w.ignored(path)) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

func (w *Watcher) ignored(path string) bool {
	for _, dir := range w.ignore {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// relevant reports whether path is a source or documentation file outside
// skipped directories, returning it relative to the root.
func (w *Watcher) relevant(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") || w.ignored(path) {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")
	for _, dir := range parts[:len(parts)-1] {
		if discover.SkipDir(dir) {
			return "", false
		}
	}
	if lang.ForExtension(filepath.Ext(rel)) == "" && !discover.IsDoc(rel) {
		return "", false
	}
	return rel, true
}
