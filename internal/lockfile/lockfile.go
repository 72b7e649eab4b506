// Package lockfile provides advisory exclusive locking for files shared
// between concurrent invocations of the tool, such as the image registry.
package lockfile

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process already holds the lock. Callers
// distinguish it from I/O failures with errors.Is.
var ErrLocked = errors.New("already locked by another process")

// Lock is a held advisory lock. Release it when the guarded sequence is done.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes a non-blocking exclusive lock on path, creating the lock file
// if needed. It never waits: contention surfaces immediately as ErrLocked.
func Acquire(path string) (*Lock, error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock on %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", l.fl.Path(), err)
	}
	return nil
}
