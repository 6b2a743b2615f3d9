package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ikolvi/quicui-core/internal/infrastructure/logging"
)

// WatcherConfig holds configuration for the flow file watcher.
type WatcherConfig struct {
	DebounceDuration time.Duration
	BufferSize       int
}

// DefaultWatcherConfig returns sensible default configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		DebounceDuration: 100 * time.Millisecond,
		BufferSize:       64,
	}
}

// Watcher monitors registered flow files and invalidates the loader cache
// when a definition changes on disk, so the next Load re-reads it.
// It wraps fsnotify with debouncing and JSON file filtering.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	loader    *Loader
	logger    *logging.Logger
	config    WatcherConfig

	// Debouncing state
	pending   map[string]time.Time
	pendingMu sync.Mutex

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.Mutex
}

// NewWatcher creates a watcher bound to the given loader.
func NewWatcher(l *Loader, logger *logging.Logger, cfg WatcherConfig) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	if cfg.DebounceDuration <= 0 {
		cfg.DebounceDuration = 100 * time.Millisecond
	}
	if logger == nil {
		logger = logging.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		fsWatcher: fsWatcher,
		loader:    l,
		logger:    logger,
		config:    cfg,
		pending:   make(map[string]time.Time),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Watch starts watching the given flow files' directories.
// Non-existent paths are skipped without error.
func (w *Watcher) Watch(locators ...string) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	dirs := make(map[string]struct{})
	for _, locator := range locators {
		if _, err := os.Stat(locator); os.IsNotExist(err) {
			continue
		}
		dirs[filepath.Dir(locator)] = struct{}{}
	}

	for dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return err
		}
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.debounceProcessor()

	return nil
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

// processEvents reads from fsnotify and queues events for debouncing.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if !isJSONFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			w.pendingMu.Lock()
			w.pending[event.Name] = time.Now()
			w.pendingMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("flow watcher error", "error", err.Error())
		}
	}
}

// debounceProcessor periodically flushes stable events into cache invalidations.
func (w *Watcher) debounceProcessor() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.DebounceDuration / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.invalidateStable()
		}
	}
}

// invalidateStable clears cache entries for files that stopped changing.
func (w *Watcher) invalidateStable() {
	w.pendingMu.Lock()
	now := time.Now()
	var stable []string
	for path, stamp := range w.pending {
		if now.Sub(stamp) >= w.config.DebounceDuration {
			stable = append(stable, path)
			delete(w.pending, path)
		}
	}
	w.pendingMu.Unlock()

	for _, path := range stable {
		w.loader.ClearCache(path)
		w.logger.Info("flow cache invalidated", "resource", path)
	}
}

// isJSONFile returns true if the file has a .json extension.
func isJSONFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".json"
}
