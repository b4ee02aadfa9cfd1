// Package watcher detects external deletion of the capture database so the
// daemon can shut down cleanly and be restarted with a fresh store.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// debounce absorbs the burst of events SQLite emits when its WAL and shm
// sidecar files are removed together with the database.
const debounce = 200 * time.Millisecond

// DBWatcher monitors the capture database file for deletion and calls
// onDelete once when it is removed. It watches the parent directory, since
// fsnotify cannot watch a path that no longer exists.
type DBWatcher struct {
	dbPath   string
	dataDir  string
	onDelete func()
	watcher  *fsnotify.Watcher
}

// New creates a DBWatcher for the database at dbPath.
func New(dbPath string, onDelete func()) (*DBWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &DBWatcher{
		dbPath:   filepath.Clean(dbPath),
		dataDir:  filepath.Dir(dbPath),
		onDelete: onDelete,
		watcher:  fsw,
	}, nil
}

// Run watches until ctx is cancelled. It returns nil on cancellation and
// the fsnotify error otherwise.
func (w *DBWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if _, err := os.Stat(w.dataDir); err != nil {
		return err
	}
	if err := w.watcher.Add(w.dataDir); err != nil {
		return err
	}

	var (
		timer   *time.Timer
		pending bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			eventPath := filepath.Clean(event.Name)

			removed := event.Op&fsnotify.Remove != 0 &&
				(eventPath == w.dbPath || eventPath == w.dataDir)
			if removed {
				log.Info().Str("path", eventPath).Msg("Capture database deleted")
				pending = true
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, w.onDelete)
				continue
			}

			// Database recreated before the debounce fired: false alarm.
			if pending && eventPath == w.dbPath && event.Op&fsnotify.Create != 0 {
				log.Info().Str("path", w.dbPath).Msg("Capture database recreated, cancelling deletion callback")
				pending = false
				if timer != nil {
					timer.Stop()
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Database watcher error")
		}
	}
}
