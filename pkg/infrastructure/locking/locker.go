// Package locking provides the exclusive locks that serialize ledger read-modify-write cycles
// across processes and hosts.
package locking

import (
	"context"
	"errors"
)

var (
	// ErrLockNotAcquired is returned when a lock cannot be acquired before the wait timeout
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when releasing a lock that is no longer owned
	ErrLockNotHeld = errors.New("lock not held")
)

// Lock is a held exclusive lock
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out exclusive locks by name. A name covers a whole ledger, not a single part.
type Locker interface {
	Acquire(ctx context.Context, name string) (Lock, error)
}

// ReleaseError reports a lock that could not be released after fn had already succeeded.
// Whatever fn committed stands.
type ReleaseError struct {
	Name string
	Err  error
}

func (e *ReleaseError) Error() string {
	return "release lock " + e.Name + ": " + e.Err.Error()
}

func (e *ReleaseError) Unwrap() error {
	return e.Err
}

// WithLock runs fn while holding the named lock. A release failure after fn
// succeeded is returned as a *ReleaseError.
func WithLock(ctx context.Context, l Locker, name string, fn func() error) (err error) {
	lock, err := l.Acquire(ctx, name)
	if err != nil {
		return err
	}
	defer func() {
		// release with a fresh context so a cancelled caller still frees the lock
		if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()
	return fn()
}
