package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay lets editors finish writing before the file is re-read.
const settleDelay = 250 * time.Millisecond

// Watch reloads the corpus file into h whenever it changes, until ctx is done.
// The parent directory is watched so that editors that save by rename are seen.
// A file that fails to parse is logged and the previous corpus stays in place.
// onReload, when set, is called after every successful swap.
func Watch(ctx context.Context, path string, h *Holder, logger *slog.Logger, onReload func(*Corpus)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create corpus watcher: %w", err)
	}
	defer w.Close()

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch corpus dir: %w", err)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		c, err := Load(path)
		if err != nil {
			logger.Warn("corpus reload failed, keeping previous corpus", "path", path, "error", err)
			return
		}
		h.Swap(c)
		logger.Info("corpus reloaded", "path", path, "books", len(c.Books()), "segments", c.SegmentCount())
		if onReload != nil {
			onReload(c)
		}
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(settleDelay, reload)
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("corpus watcher error", "error", err)
		}
	}
}
