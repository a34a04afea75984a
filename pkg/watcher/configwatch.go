package watcher

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchFile watches a single file and invokes onChange (debounced) when it
// is written, created, or replaced. Editors that write via rename are
// covered by watching the parent directory.
func WatchFile(ctx context.Context, path string, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	debounce := NewDebouncer(DefaultDebounce)

	go func() {
		defer w.Close()
		defer debounce.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Name != path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					debounce.Trigger(onChange)
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
				// Watch errors are not fatal for a preferences file; the
				// next manual reload still works.
			}
		}
	}()

	return nil
}
