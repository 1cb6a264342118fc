package watch

import (
	"sync"
	"time"
)

// Debouncer fires fn once after delay has elapsed since the last Trigger.
// Grounded on the usage shape of the teacher's own Debouncer type (referenced
// but not present in the retrieved source), inferred from daemon_watcher.go's
// NewDebouncer(delay, fn).Trigger()/.Cancel() call sites.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer returns a Debouncer that calls fn delay after the most recent
// Trigger, coalescing any Triggers that arrive in between.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger (re)starts the debounce window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Cancel stops any pending fire without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
