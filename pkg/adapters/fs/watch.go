package fs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before a run starts.
const DefaultDebounce = 500 * time.Millisecond

// Watcher runs a callback each time a file settles after a change.
// Runs never overlap: changes seen during a run schedule exactly one more.
type Watcher struct {
	Path     string
	Debounce time.Duration
	Logger   *slog.Logger
}

// NewWatcher creates a Watcher for the file at path.
func NewWatcher(path string, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{Path: path, Debounce: debounce, Logger: logger}
}

// Run calls fn once, then again after every change to the file, until ctx is done.
// It watches the parent folder, since editors and exporters usually replace
// the file rather than write to it.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	target, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", w.Path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	done := make(chan struct{}, 1)
	running, pending := false, false
	var timer *time.Timer
	var fire <-chan time.Time

	start := func() {
		running, pending = true, false
		lifecycle.Go(ctx, func(ctx context.Context) error {
			defer func() { done <- struct{}{} }()
			if err := fn(ctx); err != nil {
				w.Logger.Error("run failed", "file", target, "error", err)
			}
			return nil
		}, lifecycle.WithErrorHandler(func(err error) {
			w.Logger.Error("run panic", "file", target, "error", err)
		}))
	}

	start()
	for {
		select {
		case <-ctx.Done():
			if running {
				<-done
			}
			return nil

		case <-done:
			running = false
			if pending {
				start()
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.Logger.Warn("watched file removed, waiting for it to come back", "file", target)
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.Logger.Debug("change detected", "file", target, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				timer.Reset(w.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if running {
				pending = true
			} else {
				start()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.Logger.Error("fsnotify error", "error", err)
		}
	}
}
