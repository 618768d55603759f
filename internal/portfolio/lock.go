package portfolio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrLocked reports that another process holds the run lock.
var ErrLocked = errors.New("portfolio is locked by another run")

// RunLock is an exclusive file lock guarding the read-modify-persist
// critical section of a live run. Dry runs never take it.
type RunLock struct {
	path string
}

// LockPath returns the lock file path guarding a portfolio file.
func LockPath(portfolioPath string) string {
	return portfolioPath + ".lock"
}

// AcquireRunLock creates the lock file exclusively, writing the owner
// PID into it. A second acquisition fails with an error wrapping
// ErrLocked that names the lock path and the holder.
func AcquireRunLock(portfolioPath string) (*RunLock, error) {
	path := LockPath(portfolioPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s (held by pid %s)", ErrLocked, path, lockOwner(path))
		}
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write run lock: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close run lock: %w", err)
	}
	return &RunLock{path: path}, nil
}

// Release removes the lock file. Safe to call on a nil lock.
func (l *RunLock) Release() error {
	if l == nil {
		return nil
	}
	return os.Remove(l.path)
}

func lockOwner(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	owner := strings.TrimSpace(string(data))
	if owner == "" {
		return "unknown"
	}
	return owner
}
