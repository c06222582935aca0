package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/baynext/baynext/pkg/observability"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher re-reads the config file when it changes and applies the new log
// level. Nothing else is reloaded at runtime.
type Watcher struct {
	path    string
	logger  *logrus.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher watches path's directory so editors that replace the file are seen
func NewWatcher(path string, logger *logrus.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	return &Watcher{
		path:    filepath.Clean(path),
		logger:  logger,
		watcher: w,
	}, nil
}

// Run processes file events until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("config watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) reload() {
	fc, err := readFile(w.path)
	if err != nil {
		w.logger.WithError(err).Warn("failed to reload config file")
		return
	}
	if fc.Logging.Level == nil {
		return
	}

	level := observability.ParseLevel(*fc.Logging.Level)
	if level == w.logger.GetLevel() {
		return
	}
	w.logger.SetLevel(level)
	w.logger.WithField("level", level.String()).Info("log level changed")
}
