// Package watch re-measures files when the filesystem reports a change to
// them. Each report is a fresh query; nothing is cached between events.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/timfallmk/filesize/internal/config"
	"github.com/timfallmk/filesize/internal/logging"
	"github.com/timfallmk/filesize/internal/report"
)

// MeasureFunc measures one file.
type MeasureFunc func(path string) (report.Usage, error)

// Watcher watches a set of files. Parent directories are watched rather than
// the files themselves so that files replaced by rename, or not created yet,
// are still seen.
type Watcher struct {
	logger   *logging.Logger
	measure  MeasureFunc
	debounce time.Duration
	initial  bool

	fsw  *fsnotify.Watcher
	errs <-chan error // fsw.Errors unless replaced in tests

	mu    sync.Mutex
	files map[string]string // absolute path -> path as given
	dirs  map[string]bool
}

// New returns a Watcher using measure for every report.
func New(cfg config.WatchConfig, logger *logging.Logger, measure MeasureFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		logger:   logger.WithComponent("watch"),
		measure:  measure,
		debounce: cfg.Debounce,
		initial:  cfg.Initial,
		fsw:      fsw,
		errs:     fsw.Errors,
		files:    make(map[string]string),
		dirs:     make(map[string]bool),
	}, nil
}

// Add starts watching path. The file need not exist yet, but its directory
// must.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dirs[dir] {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.files[abs] = path

	w.logger.Debug("watching file", "path", path, "dir", dir)
	return nil
}

// Run reports files through emit until ctx is cancelled or the watcher is
// closed. Measurement failures are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context, emit func(report.Usage)) error {
	if w.initial {
		for _, path := range w.watched() {
			w.report(path, emit)
		}
	}

	pending := make(map[string]bool)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	flush := func() {
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		for _, p := range paths {
			delete(pending, p)
			w.report(p, emit)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}

			path, tracked := w.lookup(ev.Name)
			if !tracked {
				continue
			}

			switch {
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				delete(pending, path)
				w.logger.Info("file removed", "path", path, "op", ev.Op.String())
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create), ev.Has(fsnotify.Chmod):
				pending[path] = true
				if w.debounce <= 0 {
					flush()
					continue
				}
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case <-timer.C:
			flush()
		case err, ok := <-w.errs:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were dropped; re-measure everything once.
				w.logger.Warn("event queue overflowed, re-measuring all files")
				for _, p := range w.watched() {
					pending[p] = true
				}
				flush()
				continue
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// Close stops the underlying watcher. Run returns once it notices.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) lookup(name string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	path, ok := w.files[filepath.Clean(name)]
	return path, ok
}

func (w *Watcher) watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.files))
	for _, p := range w.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (w *Watcher) report(path string, emit func(report.Usage)) {
	u, err := w.measure(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			w.logger.Info("file not present", "path", path)
			return
		}
		w.logger.Warn("measure failed", "path", path, "error", err)
		return
	}
	emit(u)
}
