package observer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gnemet/LessonForge/internal/logger"
)

// DefaultDebounce waits out editors that write a file in several steps.
const DefaultDebounce = 300 * time.Millisecond

type watch struct {
	dir    string
	exts   []string
	reload func() error
	timer  *time.Timer
}

// Observer reloads templates and translation files when they change on disk.
type Observer struct {
	log      *logger.Logger
	debounce time.Duration

	mu      sync.Mutex
	watches []*watch
	reloads int
}

func NewObserver(log *logger.Logger, debounce time.Duration) *Observer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Observer{log: log.With("component", "observer"), debounce: debounce}
}

// Watch registers reload for changes to files in dir with one of exts.
func (o *Observer) Watch(dir string, exts []string, reload func() error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.watches = append(o.watches, &watch{dir: filepath.Clean(dir), exts: exts, reload: reload})
}

// Reloads reports how many reloads have run.
func (o *Observer) Reloads() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reloads
}

// Start blocks until ctx is done. ready, if non-nil, is closed once all
// directories are watched.
func (o *Observer) Start(ctx context.Context, ready chan<- struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	o.mu.Lock()
	watches := append([]*watch(nil), o.watches...)
	o.mu.Unlock()

	for _, w := range watches {
		if _, err := os.Stat(w.dir); err != nil {
			return fmt.Errorf("watch %s: %w", w.dir, err)
		}
		if err := watcher.Add(w.dir); err != nil {
			return fmt.Errorf("watch %s: %w", w.dir, err)
		}
		o.log.Info("Observer started", "dir", w.dir)
	}
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			o.stopTimers()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)) {
				continue
			}
			for _, w := range watches {
				if w.matches(event.Name) {
					o.log.Debug("Detected change", "file", event.Name)
					o.schedule(w)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.log.Warn("Watcher error", "error", err)
		}
	}
}

func (w *watch) matches(name string) bool {
	if filepath.Dir(filepath.Clean(name)) != w.dir {
		return false
	}
	if len(w.exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range w.exts {
		if ext == e {
			return true
		}
	}
	return false
}

func (o *Observer) schedule(w *watch) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(o.debounce, func() {
		if err := w.reload(); err != nil {
			o.log.Error("Reload failed", "dir", w.dir, "error", err)
			return
		}
		o.mu.Lock()
		o.reloads++
		o.mu.Unlock()
		o.log.Info("Reloaded", "dir", w.dir)
	})
}

func (o *Observer) stopTimers() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, w := range o.watches {
		if w.timer != nil {
			w.timer.Stop()
		}
	}
}
