package document

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"

	"azkartool/internal/logging"
)

// ErrLocked means another azkarctl process holds the Document lock.
var ErrLocked = errors.New("document is locked by another process")

// PathLock is an advisory lock on <path>.lock. Patching is only logically
// atomic; concurrent writers are kept apart by this lock.
type PathLock struct {
	fl *flock.Flock
}

// LockPath returns the lock file used for path.
func LockPath(path string) string { return path + ".lock" }

// Acquire takes the lock without blocking. The lock file is left in place
// on release so two processes never lock different inodes.
func Acquire(path string) (*PathLock, error) {
	fl := flock.New(LockPath(path))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	logging.DocumentDebug("locked %s", fl.Path())
	return &PathLock{fl: fl}, nil
}

// Release drops the lock. It is safe to call more than once.
func (l *PathLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	err := l.fl.Unlock()
	logging.DocumentDebug("unlocked %s", l.fl.Path())
	l.fl = nil
	return err
}
