// Package watch re-runs a build whenever a directory's contents change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Watcher.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Watcher calls Rebuild once at start and again after each burst of changes in Dir.
type Watcher struct {
	Dir      string
	Debounce time.Duration
	Ignore   []string // Absolute paths whose events never trigger a rebuild
	Rebuild  func(ctx context.Context) error
	Logger   *slog.Logger
}

// Run blocks until ctx is canceled. Rebuild errors are logged, not returned.
func (w *Watcher) Run(ctx context.Context) error {
	log := w.Logger
	if log == nil {
		log = slog.Default()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.Dir, err)
	}

	w.rebuild(ctx, log)

	// Armed only by relevant events.
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			log.Debug("change detected", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)

		case <-timer.C:
			w.rebuild(ctx, log)
		}
	}
}

func (w *Watcher) rebuild(ctx context.Context, log *slog.Logger) {
	if err := w.Rebuild(ctx); err != nil && ctx.Err() == nil {
		log.Error("rebuild failed", "error", err)
	}
}

// relevant filters out chmod-only events, hidden files (including atomic-write
// temp files) and ignored paths.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	name := filepath.Clean(ev.Name)
	for _, p := range w.Ignore {
		if filepath.Clean(p) == name {
			return false
		}
	}
	return true
}
