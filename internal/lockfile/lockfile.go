// Package lockfile provides a cross-process advisory lock on top of
// gofrs/flock, mirroring the cross-process half of the teacher's
// internal/daemon.Registry.withFileLock (the in-process half is a plain
// sync.Mutex owned by the caller).
package lockfile

import (
	"context"
	"time"

	"github.com/gofrs/flock"
)

// Lock is an exclusive advisory lock on a path, held until Unlock.
type Lock struct {
	fl *flock.Flock
}

// New returns a Lock guarding path. The lock file is created on first
// acquisition if it does not already exist.
func New(path string) *Lock {
	return &Lock{fl: flock.New(path)}
}

// Acquire blocks until the lock is held or ctx is done.
func (l *Lock) Acquire(ctx context.Context) error {
	locked, err := l.fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return err
	}
	if !locked {
		return ctx.Err()
	}
	return nil
}

// Release gives up the lock. Safe to call when not held.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
