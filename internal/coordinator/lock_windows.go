//go:build windows

package coordinator

import (
	"os"
	"strconv"

	"sca/internal/errors"
	"sca/internal/paths"
)

// Lock is an exclusive per-project audit lock.
// Windows has no flock; this is a best-effort PID file.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the project's audit lock.
func AcquireLock(projectRoot string) (*Lock, error) {
	if _, err := paths.EnsureStateDir(projectRoot); err != nil {
		return nil, errors.New(errors.ProjectUnreadable, "creating state directory", err)
	}

	path := paths.LockPath(projectRoot)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.New(errors.ProjectUnreadable, "opening lock file", err)
	}

	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
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
	_ = l.file.Close()
	_ = os.Remove(l.path)
}
