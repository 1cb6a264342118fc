// Package watch debounces local-store filesystem events into Synchronize
// calls, grounded on the teacher's cmd/bd/daemon_watcher.go: an fsnotify
// watcher on the store's parent directory, falling back to polling when
// fsnotify can't be established, feeding a Debouncer that fires once after
// a quiet period.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Synchronizer is the subset of orchestrator.Orchestrator the watcher drives.
type Synchronizer interface {
	Synchronize(ctx context.Context, serviceID string) (bool, error)
}

// OnError is called with any error Synchronize returns. May be nil.
type OnError func(serviceID string, err error)

// Watcher triggers a debounced Synchronize whenever path changes on disk.
type Watcher struct {
	path         string
	parentDir    string
	serviceID    string
	sync         Synchronizer
	debouncer    *Debouncer
	pollInterval time.Duration
	pollingMode  bool
	fsw          *fsnotify.Watcher
	onError      OnError

	lastModTime time.Time
	lastExists  bool
	lastSize    int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Watcher over path that calls sync.Synchronize(ctx, serviceID)
// once delay has elapsed after the last detected change (500ms when delay
// is not positive).
// Falls back to a 2s poll loop if fsnotify cannot be established.
func New(path, serviceID string, sync Synchronizer, delay time.Duration, onError OnError) (*Watcher, error) {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	w := &Watcher{
		path:         path,
		parentDir:    filepath.Dir(path),
		serviceID:    serviceID,
		sync:         sync,
		pollInterval: 2 * time.Second,
		onError:      onError,
	}
	w.debouncer = NewDebouncer(delay, w.fire)

	if stat, err := os.Stat(path); err == nil {
		w.lastModTime = stat.ModTime()
		w.lastExists = true
		w.lastSize = stat.Size()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.pollingMode = true
		return w, nil
	}
	w.fsw = fsw

	if err := fsw.Add(w.parentDir); err != nil {
		fsw.Close() //nolint:errcheck
		w.pollingMode = true
		w.fsw = nil
		return w, nil
	}
	// The file may not exist yet; rely on the parent-directory watch for
	// its creation and retry the direct watch once it appears.
	_ = fsw.Add(path)

	return w, nil
}

// Start begins watching in a background goroutine until ctx is done or
// Close is called.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	if w.pollingMode {
		w.startPolling(ctx)
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		base := filepath.Base(w.path)
		for {
			select {
			case event, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if event.Name == filepath.Join(w.parentDir, base) && event.Op&fsnotify.Create != 0 {
					_ = w.fsw.Add(w.path)
					w.debouncer.Trigger()
					continue
				}
				if event.Name == w.path && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Chmod) != 0 {
					w.debouncer.Trigger()
				}
			case _, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (w *Watcher) startPolling(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stat, err := os.Stat(w.path)
				switch {
				case err != nil && errors.Is(err, os.ErrNotExist):
					if w.lastExists {
						w.lastExists = false
						w.debouncer.Trigger()
					}
				case err == nil:
					if !w.lastExists || !stat.ModTime().Equal(w.lastModTime) || stat.Size() != w.lastSize {
						w.lastExists = true
						w.lastModTime = stat.ModTime()
						w.lastSize = stat.Size()
						w.debouncer.Trigger()
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (w *Watcher) fire() {
	ok, err := w.sync.Synchronize(context.Background(), w.serviceID)
	if !ok && err != nil && w.onError != nil {
		w.onError(w.serviceID, err)
	}
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.debouncer.Cancel()
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}
