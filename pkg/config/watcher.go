package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the configuration file for changes and triggers reloads.
// It debounces rapid sequences of write events so an editor save produces a
// single reload.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// DefaultDebounceInterval is the quiet period after a file event before a
// reload fires.
const DefaultDebounceInterval = 100 * time.Millisecond

// NewWatcher creates a watcher over the configuration file at path.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default().With("component", "config.watcher")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     path,
		debounce: DefaultDebounceInterval,
		watcher:  fsw,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks, reloading the file and calling onChange with the new
// configuration whenever it changes, until the context is cancelled or Stop
// is called. A reload that fails to load or validate is logged and dropped;
// the previous configuration stays in effect.
func (w *Watcher) Watch(ctx context.Context, onChange func(*Config)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	// Watch the parent directory: editors and config management tools
	// replace the file by rename, which drops a watch on the file itself.
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.logger.Info("config watcher started",
		"path", w.path,
		"debounce_ms", w.debounce.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("config watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.shouldProcessEvent(event) {
				continue
			}

			w.logger.Debug("config file event",
				"path", event.Name,
				"op", event.Op.String(),
			)
			w.trigger(func() { w.reload(onChange) })

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and waits for it to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != filepath.Base(w.path) {
		return false
	}
	return event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Rename)
}

func (w *Watcher) trigger(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, fn)
}

func (w *Watcher) reload(onChange func(*Config)) {
	cfg, err := LoadConfigWithEnvOverrides(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping previous configuration",
			"path", w.path,
			"error", err,
		)
		return
	}

	w.logger.Info("config reloaded", "path", w.path)
	onChange(cfg)
}
