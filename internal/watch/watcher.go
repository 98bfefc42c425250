package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/conveyor/internal/events"
	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
)

// Watcher forwards relevant filesystem changes under a root directory into a
// ChangeQueue. Newly created directories are added to the watch set on the
// fly; editor temp files and hidden files are ignored.
type Watcher struct {
	root    string
	queue   *ChangeQueue
	bus     *events.Bus
	logger  *slog.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for root. The bus is optional; when set,
// every accepted change is also published as events.ChangeDetected.
func NewWatcher(root string, queue *ChangeQueue, bus *events.Bus, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "resolve watch root").
			WithContext("root", root).
			Build()
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "watch root not found").
			WithContext("root", abs).
			Build()
	}
	if !st.IsDir() {
		return nil, ferrors.FileSystemError("watch root is not a directory").
			WithContext("root", abs).
			Build()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create filesystem watcher").Build()
	}
	w := &Watcher{root: abs, queue: queue, bus: bus, logger: logger, watcher: fsw}
	if err := w.addDirsRecursive(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run consumes filesystem events until ctx is canceled or the watcher's
// event stream closes.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if shouldIgnorePath(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addDirsRecursive(ev.Name)
			return
		}
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		rel = ev.Name
	}
	rel = filepath.ToSlash(rel)

	w.logger.Debug("file change detected",
		slog.String("path", rel),
		slog.String("op", ev.Op.String()))

	w.queue.NotifyChanged(rel)
	if w.bus != nil {
		_ = w.bus.Publish(ctx, events.ChangeDetected{Path: rel, At: time.Now()})
	}
}

func (w *Watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(filepath.Base(path), ".") && path != root {
				return filepath.SkipDir
			}
			if addErr := w.watcher.Add(path); addErr != nil {
				w.logger.Warn("watch add failed", slog.String("dir", path), slog.Any("error", addErr))
			}
		}
		return nil
	})
}

// shouldIgnorePath filters hidden files and editor temp/swap artifacts that
// must not trigger rebuilds.
func shouldIgnorePath(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
