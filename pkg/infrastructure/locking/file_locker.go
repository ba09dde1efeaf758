package locking

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const fileLockRetryDelay = 10 * time.Millisecond

// FileLocker takes advisory flock(2) locks on "<dir>/<name>.lock".
// It serializes every process on the host that shares the directory.
type FileLocker struct {
	dir         string
	waitTimeout time.Duration
	logger      *zap.Logger
}

// NewFileLocker creates a FileLocker rooted at dir
func NewFileLocker(dir string, waitTimeout time.Duration, logger *zap.Logger) *FileLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileLocker{dir: dir, waitTimeout: waitTimeout, logger: logger}
}

type fileLock struct {
	fl     *flock.Flock
	logger *zap.Logger
}

// Acquire blocks until the lock file is locked, the wait timeout expires or ctx is done
func (l *FileLocker) Acquire(ctx context.Context, name string) (Lock, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create lock directory %s", l.dir)
	}
	path := filepath.Join(l.dir, name+".lock")
	fl := flock.New(path)

	waitCtx := ctx
	if l.waitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	ok, err := fl.TryLockContext(waitCtx, fileLockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockNotAcquired
		}
		return nil, errors.Wrapf(err, "lock %s", path)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	l.logger.Debug("acquired file lock", zap.String("path", path))
	return &fileLock{fl: fl, logger: l.logger}, nil
}

func (lock *fileLock) Release(_ context.Context) error {
	if !lock.fl.Locked() {
		return ErrLockNotHeld
	}
	if err := lock.fl.Unlock(); err != nil {
		return errors.Wrapf(err, "unlock %s", lock.fl.Path())
	}
	lock.logger.Debug("released file lock", zap.String("path", lock.fl.Path()))
	return nil
}

// Verify interface compliance
var _ Locker = (*FileLocker)(nil)
