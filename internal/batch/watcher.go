package batch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watched exchange-file extensions, lower case.
var watchedExtensions = map[string]bool{
	".step": true,
	".stp":  true,
}

// Watcher re-extracts exchange files as they change on disk. Events are
// debounced so an exporter writing a file in chunks triggers one extraction.
type Watcher struct {
	watcher      *fsnotify.Watcher
	rootDir      string
	debounceTime time.Duration
	callback     func(files []string)

	accumulated   map[string]bool
	accumulatedMu sync.Mutex
	debounceTimer *time.Timer
	timerMu       sync.Mutex
	stopOnce      sync.Once
	doneCh        chan struct{}
}

// NewWatcher creates a watcher over rootDir (recursive).
func NewWatcher(rootDir string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:      fsw,
		rootDir:      rootDir,
		debounceTime: debounce,
		accumulated:  make(map[string]bool),
		doneCh:       make(chan struct{}),
	}
	if err := w.addDirectoriesRecursively(rootDir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Start begins watching. callback receives the batch of changed files after
// each quiet period. Blocks until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context, callback func(files []string)) error {
	w.callback = callback
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}

// Stop closes the underlying watcher. Idempotent.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New directories need to be added to the watch set.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addDirectoriesRecursively(event.Name)
			return
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if !watchedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}

	w.accumulatedMu.Lock()
	w.accumulated[event.Name] = true
	w.accumulatedMu.Unlock()

	w.resetDebounce()
}

func (w *Watcher) resetDebounce() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceTime, w.flush)
}

func (w *Watcher) flush() {
	w.accumulatedMu.Lock()
	files := make([]string, 0, len(w.accumulated))
	for f := range w.accumulated {
		files = append(files, f)
	}
	w.accumulated = make(map[string]bool)
	w.accumulatedMu.Unlock()

	if len(files) > 0 && w.callback != nil {
		w.callback(files)
	}
}

func (w *Watcher) addDirectoriesRecursively(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}
