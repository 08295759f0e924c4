package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the config file when it changes and publishes every
// valid version. An invalid edit is logged and the previous config stays
// current.
type Watcher struct {
	path    string
	current atomic.Pointer[Config]
	logger  *zap.Logger
}

// NewWatcher creates a watcher for path starting from initial.
func NewWatcher(path string, initial *Config, logger *zap.Logger) *Watcher {
	w := &Watcher{
		path:   filepath.Clean(path),
		logger: logger.Named("config"),
	}
	w.current.Store(initial)
	return w
}

// Current returns the latest valid config.
func (w *Watcher) Current() *Config {
	return w.current.Load()
}

// Run watches the config file's directory until ctx is done. Watching the
// directory keeps working when editors replace the file.
func (w *Watcher) Run(ctx context.Context) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload()
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", zap.Error(werr))
		}
	}
}

func (w *Watcher) reload() {
	config, err := Load(w.path)
	if err != nil {
		w.logger.Warn("ignoring config change", zap.Error(err))
		return
	}
	w.current.Store(config)
	w.logger.Info("config reloaded", zap.String("path", w.path))
}
