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

// ReloadEvent reports the outcome of reloading the config file
type ReloadEvent struct {
	// Config is the reloaded configuration (nil when Error is set)
	Config *Config

	// Error if the file could not be loaded or is invalid
	Error error
}

// WatcherConfig configures the config file watcher
type WatcherConfig struct {
	// Path is the config file to watch
	Path string

	// Skipped is updated with migration.skipped_classes on every valid reload
	Skipped *SkippedClasses

	// DebounceDelay is how long to wait for more changes before reloading
	DebounceDelay time.Duration

	// Logger for logging events
	Logger *slog.Logger
}

// Watcher reloads the config file when it changes. The containing
// directory is watched so that editors replacing the file are noticed.
type Watcher struct {
	config  WatcherConfig
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu sync.Mutex
	pending   bool

	events chan ReloadEvent
}

// NewWatcher creates a new config watcher
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("config watcher: path is required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = 100 * time.Millisecond
	}
	if abs, err := filepath.Abs(config.Path); err == nil {
		config.Path = abs
	}

	return &Watcher{
		config:  config,
		watcher: fsw,
		logger:  logger,
		events:  make(chan ReloadEvent, 10),
	}, nil
}

// Events returns the channel of reload events
func (w *Watcher) Events() <-chan ReloadEvent {
	return w.events
}

// Start begins watching the config file for changes
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.config.Path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go w.processEvents(ctx)

	w.logger.Info("Config watcher started",
		"path", w.config.Path,
		"debounce", w.config.DebounceDelay)
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// processEvents handles fsnotify events with debouncing
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.config.Path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingMu.Unlock()
}

func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	pending := w.pending
	w.pending = false
	w.pendingMu.Unlock()
	if !pending {
		return
	}

	event := w.reload()
	select {
	case w.events <- event:
	case <-ctx.Done():
	default:
		w.logger.Warn("Dropped config reload event, channel full")
	}
}

// reload reads the file and applies the skipped classes when it is valid
func (w *Watcher) reload() ReloadEvent {
	cfg, err := LoadFromFile(w.config.Path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		w.logger.Warn("Ignoring invalid config change", "path", w.config.Path, "error", err)
		return ReloadEvent{Error: err}
	}

	if w.config.Skipped != nil {
		w.config.Skipped.Set(cfg.Migration.SkippedClasses)
	}
	w.logger.Info("Reloaded config",
		"path", w.config.Path,
		"skipped_classes", len(cfg.Migration.SkippedClasses))
	return ReloadEvent{Config: cfg}
}
