// Rotating operational backups and pre-operation safety backups.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// rotateBackup shifts the existing backup copies of name up by one
// (name.1 -> name.2, ...) and copies the current document to name.1.
// Copies beyond the rotation bound fall off the end. A document that
// does not exist yet produces no backup.
func (s *Store) rotateBackup(name string) error {
	src := filepath.Join(s.dataDir, name)
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}

	dir := filepath.Join(s.dataDir, backupsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating backups dir: %w", err)
	}

	// Shift from the oldest slot down so nothing is overwritten early.
	for i := s.rotation - 1; i >= 1; i-- {
		from := filepath.Join(dir, fmt.Sprintf("%s.%d", name, i))
		to := filepath.Join(dir, fmt.Sprintf("%s.%d", name, i+1))
		if _, err := os.Stat(from); err == nil {
			if err := os.Rename(from, to); err != nil {
				return fmt.Errorf("rotating backup %s: %w", from, err)
			}
		}
	}
	return copyFile(src, filepath.Join(dir, name+".1"))
}

// safetyBackup copies the current task and archive documents into a
// dedicated per-operation directory under safety/. Safety backups are
// never pruned; they are the manual recovery path for destructive
// operations.
func (s *Store) safetyBackup(operation string) (string, error) {
	stamp := s.clock.Now().UTC().Format("20060102-150405")
	dir := filepath.Join(s.dataDir, safetyDirName,
		fmt.Sprintf("%s-%s-%s", stamp, operation, s.ids.NewID()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating safety dir: %w", err)
	}
	if err := copyFile(s.tasksPath(), filepath.Join(dir, TasksFileName)); err != nil {
		return "", err
	}
	if err := copyFile(s.archivePath(), filepath.Join(dir, ArchiveFileName)); err != nil {
		return "", err
	}
	return dir, nil
}
