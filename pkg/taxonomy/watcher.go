package taxonomy

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/drift/pkg/logger"
)

// Watcher reloads a taxonomy file when it changes on disk and hands the new
// definition to a callback. The parent directory is watched rather than the
// file itself so atomic-rename saves from editors are picked up.
type Watcher struct {
	fsw  *fsnotify.Watcher
	path string
	log  *slog.Logger
	done chan struct{}
}

// NewWatcher starts watching path. onReload is invoked with each
// successfully loaded definition; a definition that fails to load or
// validate is logged and skipped, leaving the previous one in effect.
func NewWatcher(path string, log *slog.Logger, onReload func(*Definition)) (*Watcher, error) {
	if log == nil {
		log = logger.Nop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating taxonomy watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching taxonomy dir: %w", err)
	}

	w := &Watcher{
		fsw:  fsw,
		path: filepath.Clean(path),
		log:  log,
		done: make(chan struct{}),
	}

	go w.run(onReload)

	return w, nil
}

func (w *Watcher) run(onReload func(*Definition)) {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			def, err := Load(w.path)
			if err != nil {
				w.log.Warn("taxonomy reload failed, keeping previous definition",
					"path", w.path, "error", err)
				continue
			}

			w.log.Info("taxonomy reloaded", "path", w.path, "topics", len(def.Topics))
			onReload(def)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("taxonomy watcher error", "error", err)
		}
	}
}

// Close stops watching and waits for the reload loop to exit.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}
