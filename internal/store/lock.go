// Advisory file locking for read-modify-write cycles. Two invocations
// racing on the same project store queue behind an exclusive flock
// instead of operating on stale data.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// FileLock holds an exclusive advisory lock on a project store.
type FileLock struct {
	file *os.File
	path string
}

// Lock acquires the store's advisory lock, blocking until a competing
// holder releases it. The caller must call Unlock when the
// read-modify-write cycle is complete.
func (s *Store) Lock() (*FileLock, error) {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	path := filepath.Join(s.dataDir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquiring lock on %s: %w", path, err)
	}
	return &FileLock{file: f, path: path}, nil
}

// Unlock releases the lock. Safe to call once; the lock file itself is
// left in place for the next invocation.
func (l *FileLock) Unlock() {
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
}
