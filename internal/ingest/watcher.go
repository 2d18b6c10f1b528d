package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must stay quiet before it is reported
const DefaultSettle = 500 * time.Millisecond

// Watcher reports supported files dropped into a directory
type Watcher struct {
	// Settle is the quiet period after the last write to a file
	Settle time.Duration

	dir     string
	watcher *fsnotify.Watcher
	mu      sync.Mutex
	lastMod map[string]time.Time
}

// NewWatcher starts watching dir
func NewWatcher(dir string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("ingest: failed to watch %s: %w", dir, err)
	}
	return &Watcher{
		Settle:  DefaultSettle,
		dir:     dir,
		watcher: w,
		lastMod: make(map[string]time.Time),
	}, nil
}

// Run calls handler for every created or rewritten CSV/XLSX file until ctx is
// done. Each write restarts the file's settle timer, so a file still being
// copied is reported once, after it goes quiet. A file is reported again
// only when its modification time advances.
func (w *Watcher) Run(ctx context.Context, handler func(path string)) error {
	settled := make(chan string)
	done := make(chan struct{})
	timers := make(map[string]*time.Timer)
	defer func() {
		close(done)
		for _, t := range timers {
			t.Stop()
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
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsSupported(event.Name) {
				continue
			}
			if t, ok := timers[event.Name]; ok {
				t.Reset(w.Settle)
				continue
			}
			path := event.Name
			timers[path] = time.AfterFunc(w.Settle, func() {
				select {
				case settled <- path:
				case <-done:
				}
			})
		case path := <-settled:
			delete(timers, path)
			if w.changed(path) {
				handler(path)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("ingest: watcher error on %s: %v", w.dir, err)
		}
	}
}

func (w *Watcher) changed(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if last, ok := w.lastMod[path]; ok && !info.ModTime().After(last) {
		return false
	}
	w.lastMod[path] = info.ModTime()
	return true
}

// Close stops the underlying watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
