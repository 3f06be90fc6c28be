package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// IndexLock guards a persistent index against concurrent writers using
// cross-process file locking, so two `repoctx index` (or `watch`) runs
// against the same repository can't interleave writes to symbol_graph.db.
type IndexLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewIndexLock returns a lock for the index at dbPath, held at
// "<dbPath>.lock" alongside it.
func NewIndexLock(dbPath string) *IndexLock {
	lockPath := dbPath + ".lock"
	return &IndexLock{path: lockPath, flock: flock.New(lockPath)}
}

// TryLock attempts to acquire the lock without blocking, creating the
// lock file's parent directory if needed. Returns false if another
// process already holds it.
func (l *IndexLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.path, err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call on an unlocked IndexLock.
func (l *IndexLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	l.locked = false
	return nil
}
