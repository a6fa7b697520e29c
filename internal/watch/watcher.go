package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Watcher reports changes anywhere below a root directory. fsnotify watches
// are not recursive, so every directory is added and new ones are picked up
// as they appear.
type Watcher struct {
	root   string
	skip   []string
	fw     *fsnotify.Watcher
	notify func(path string)
}

// NewWatcher watches root, ignoring dot entries and anything under skip
// (typically the output directory).
func NewWatcher(root string, skip []string, notify func(path string)) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.IOError("failed to resolve watch root").WithFile(root).WithCause(err).Build()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.IOError("failed to create file watcher").WithCause(err).Build()
	}
	w := &Watcher{root: absRoot, fw: fw, notify: notify}
	for _, s := range skip {
		if abs, err := filepath.Abs(s); err == nil {
			w.skip = append(w.skip, abs)
		}
	}
	if err := w.addTree(absRoot); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) ignored(path string) bool {
	if path != w.root && strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	for _, s := range w.skip {
		if path == s || strings.HasPrefix(path, s+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(p) {
			return filepath.SkipDir
		}
		return w.fw.Add(p)
	})
	if err != nil {
		return errors.IOError("failed to watch directory").WithFile(dir).WithCause(err).Build()
	}
	return nil
}

// Run forwards relevant events until ctx ends or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	slog.Info("Watching for changes", logfields.Path(w.root))
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if w.ignored(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						slog.Warn("Unable to watch new directory", logfields.Path(ev.Name), logfields.Error(err))
					}
				}
			}
			slog.Debug("Change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			w.notify(ev.Name)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

// Close releases the underlying watches.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
