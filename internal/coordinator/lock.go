//go:build !windows

package coordinator

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"sca/internal/errors"
	"sca/internal/paths"
)

// Lock is an exclusive per-project audit lock. Only one audit may mutate a
// project's state directory at a time.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock attempts to take the project's audit lock.
// Fails with ErrLockHeld if another process holds it.
func AcquireLock(projectRoot string) (*Lock, error) {
	if _, err := paths.EnsureStateDir(projectRoot); err != nil {
		return nil, errors.New(errors.ProjectUnreadable, "creating state directory", err)
	}

	path := paths.LockPath(projectRoot)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.New(errors.ProjectUnreadable, "opening lock file", err)
	}

	// Non-blocking exclusive lock
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()

		if content, readErr := os.ReadFile(path); readErr == nil && len(content) > 0 {
			pid := strings.TrimSpace(string(content))
			return nil, errors.New(errors.LockHeld,
				fmt.Sprintf("audit already running (PID %s)", pid), err)
		}
		return nil, errors.New(errors.LockHeld, "audit already running", err)
	}

	if err := file.Truncate(0); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, errors.New(errors.InternalError, "truncating lock file", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, errors.New(errors.InternalError, "seeking lock file", err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, errors.New(errors.InternalError, "writing PID to lock file", err)
	}

	return &Lock{path: path, file: file}, nil
}

// Release releases the lock and removes the lock file. Nil-safe.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	_ = os.Remove(l.path)
}
