package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSync struct {
	mu    sync.Mutex
	calls int
	ok    bool
	err   error
}

func (c *countingSync) Synchronize(ctx context.Context, serviceID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.ok, c.err
}

func (c *countingSync) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestWatcherTriggersSynchronizeOnFileWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.db")
	if err := os.WriteFile(path, []byte("initial"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	sync := &countingSync{ok: true}
	w, err := New(path, "svc1", sync, 30*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	w.Start(context.Background())

	if err := os.WriteFile(path, []byte("changed"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sync.count() > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected Synchronize to be called after a debounced file write")
}

func TestDebouncerCoalescesRapidTriggers(t *testing.T) {
	var calls int32
	d := NewDebouncer(30*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly one coalesced call, got %d", got)
	}
}

func TestDebouncerCancelSuppressesFire(t *testing.T) {
	var calls int32
	d := NewDebouncer(20*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })

	d.Trigger()
	d.Cancel()

	time.Sleep(60 * time.Millisecond)

	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("expected Cancel to suppress the pending fire, got %d calls", got)
	}
}

func TestWatcherOnErrorCalledOnSynchronizeFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.db")
	if err := os.WriteFile(path, []byte("initial"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	failing := &countingSync{ok: false, err: context.DeadlineExceeded}

	var mu sync.Mutex
	var gotErr error
	w, err := New(path, "svc1", failing, 30*time.Millisecond, func(serviceID string, err error) {
		mu.Lock()
		defer mu.Unlock()
		gotErr = err
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	w.Start(context.Background())
	if err := os.WriteFile(path, []byte("changed"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		e := gotErr
		mu.Unlock()
		if e != nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected onError to be called")
}
