package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/edaniels/golog"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// editors tend to emit several writes for one save.
const watchDebounce = 100 * time.Millisecond

// Watch calls onChange with the freshly read config whenever the file at path is written or
// replaced, once writes settle. Configs that fail to read are logged and skipped. Watch blocks
// until ctx is done, and onChange is never called after it returns.
func Watch(ctx context.Context, path string, logger golog.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Debugw("closing config watcher", "error", err)
		}
	}()

	// editors often replace the file, so watch the directory and match on name
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrapf(err, "cannot watch %q", path)
	}

	// reloads run on the debounce timer; stopped keeps them from calling onChange once Watch returns
	var mu sync.Mutex
	stopped := false
	defer func() {
		mu.Lock()
		stopped = true
		mu.Unlock()
	}()
	reload := func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped || ctx.Err() != nil {
			return
		}
		conf, err := Read(abs, logger)
		if err != nil {
			logger.Warnw("ignoring invalid config change", "path", path, "error", err)
			return
		}
		logger.Infow("config changed", "path", path)
		onChange(conf)
	}
	debounced := debounce.New(watchDebounce)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("config watcher error", "error", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			debounced(reload)
		}
	}
}
