// Package store provides durable, checksum-verified access to one
// project's task and archive documents. Every save is an atomic
// replace; destructive saves are preceded by rotating operational
// backups, and archive-class commits by an indefinitely-kept safety
// backup. An advisory file lock serializes read-modify-write cycles
// across concurrent invocations.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/lattice/pkg/types"
)

// Document and directory names inside a project data dir.
const (
	TasksFileName   = "tasks.json"
	ArchiveFileName = "archive.json"
	lockFileName    = ".lock"
	backupsDirName  = "backups"
	safetyDirName   = "safety"
)

// DefaultBackupRotation bounds the operational backup history.
const DefaultBackupRotation = 5

// Clock supplies the current time. Injected so tests control timestamps.
type Clock interface {
	Now() time.Time
}

// IDSource generates opaque operation/snapshot identifiers.
type IDSource interface {
	NewID() string
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

type uuidSource struct{}

func (uuidSource) NewID() string { return generateUUID() }

// UUIDSource returns an IDSource producing UUID v7 strings.
func UUIDSource() IDSource { return uuidSource{} }

// generateUUID generates a new UUID v7, falling back to v4 if v7
// generation fails.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Config holds optional store parameters. Zero values select defaults.
type Config struct {
	BackupRotation int // operational backup history bound
	Clock          Clock
	IDs            IDSource
}

// Store accesses one project's documents under a single data directory.
type Store struct {
	dataDir  string
	rotation int
	clock    Clock
	ids      IDSource
}

// New creates a Store for the given data directory.
func New(dataDir string, cfg Config) *Store {
	if cfg.BackupRotation <= 0 {
		cfg.BackupRotation = DefaultBackupRotation
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.IDs == nil {
		cfg.IDs = UUIDSource()
	}
	return &Store{
		dataDir:  dataDir,
		rotation: cfg.BackupRotation,
		clock:    cfg.Clock,
		ids:      cfg.IDs,
	}
}

// DataDir returns the store's data directory.
func (s *Store) DataDir() string { return s.dataDir }

func (s *Store) tasksPath() string   { return filepath.Join(s.dataDir, TasksFileName) }
func (s *Store) archivePath() string { return filepath.Join(s.dataDir, ArchiveFileName) }

// Init creates the data directory and empty task and archive documents.
// Existing documents are left untouched.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	if _, err := os.Stat(s.tasksPath()); os.IsNotExist(err) {
		if err := s.SaveTasks(types.NewTaskSet()); err != nil {
			return err
		}
	}
	if _, err := os.Stat(s.archivePath()); os.IsNotExist(err) {
		if err := s.saveArchive(types.NewArchiveSet()); err != nil {
			return err
		}
	}
	return nil
}

// LoadTasks reads and verifies the active task document.
// Returns ErrDocumentNotFound when the document does not exist,
// ErrCorruptDocument when it cannot be parsed, and ErrChecksumMismatch
// when the recomputed checksum disagrees with the stored one. The three
// are distinct so callers can offer the right recovery.
func (s *Store) LoadTasks() (*types.TaskSet, error) {
	data, err := os.ReadFile(s.tasksPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrDocumentNotFound, s.tasksPath())
		}
		return nil, fmt.Errorf("reading %s: %w", s.tasksPath(), err)
	}

	var set types.TaskSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrCorruptDocument, s.tasksPath(), err)
	}

	sum, err := checksum(set.Tasks)
	if err != nil {
		return nil, err
	}
	if sum != set.Meta.Checksum {
		return nil, fmt.Errorf("%w: %s: stored %q, computed %q",
			types.ErrChecksumMismatch, s.tasksPath(), set.Meta.Checksum, sum)
	}
	return &set, nil
}

// LoadArchive reads and verifies the archive document. A missing
// archive document is treated as empty; nothing has been archived yet.
func (s *Store) LoadArchive() (*types.ArchiveSet, error) {
	data, err := os.ReadFile(s.archivePath())
	if err != nil {
		if os.IsNotExist(err) {
			return types.NewArchiveSet(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.archivePath(), err)
	}

	var set types.ArchiveSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrCorruptDocument, s.archivePath(), err)
	}

	sum, err := checksum(set.Archived)
	if err != nil {
		return nil, err
	}
	if sum != set.Meta.Checksum {
		return nil, fmt.Errorf("%w: %s: stored %q, computed %q",
			types.ErrChecksumMismatch, s.archivePath(), set.Meta.Checksum, sum)
	}
	return &set, nil
}

// SaveTasks recomputes the checksum and atomically replaces the active
// task document, rotating the operational backup first.
func (s *Store) SaveTasks(set *types.TaskSet) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	if err := s.rotateBackup(TasksFileName); err != nil {
		return err
	}
	sum, err := checksum(set.Tasks)
	if err != nil {
		return err
	}
	set.Meta.SchemaVersion = types.SchemaVersion
	set.Meta.Checksum = sum
	return writeDocument(s.tasksPath(), set)
}

// saveArchive recomputes the checksum and atomically replaces the
// archive document.
func (s *Store) saveArchive(set *types.ArchiveSet) error {
	sum, err := checksum(set.Archived)
	if err != nil {
		return err
	}
	set.Meta.SchemaVersion = types.SchemaVersion
	set.Meta.Checksum = sum
	return writeDocument(s.archivePath(), set)
}

// FixChecksum recomputes and rewrites the checksum of both documents
// without altering task content. Parse failures still abort; fix mode
// repairs checksums, not structure.
func (s *Store) FixChecksum() error {
	data, err := os.ReadFile(s.tasksPath())
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", types.ErrDocumentNotFound, s.tasksPath())
		}
		return fmt.Errorf("reading %s: %w", s.tasksPath(), err)
	}
	var set types.TaskSet
	if err := json.Unmarshal(data, &set); err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrCorruptDocument, s.tasksPath(), err)
	}
	if err := s.SaveTasks(&set); err != nil {
		return err
	}

	adata, err := os.ReadFile(s.archivePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", s.archivePath(), err)
	}
	var aset types.ArchiveSet
	if err := json.Unmarshal(adata, &aset); err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrCorruptDocument, s.archivePath(), err)
	}
	return s.saveArchive(&aset)
}

// CommitArchive persists an archive-class mutation: the shrunken active
// document and the grown archive document as one commit. Both documents
// are staged to temp files before either rename happens, a safety
// backup of the pre-operation state is kept indefinitely, and the
// operational backup of the active document is rotated. Returns the
// safety backup directory.
func (s *Store) CommitArchive(active *types.TaskSet, archive *types.ArchiveSet, operation string) (string, error) {
	safetyDir, err := s.safetyBackup(operation)
	if err != nil {
		return "", err
	}
	if err := s.rotateBackup(TasksFileName); err != nil {
		return "", err
	}

	tsum, err := checksum(active.Tasks)
	if err != nil {
		return "", err
	}
	active.Meta.SchemaVersion = types.SchemaVersion
	active.Meta.Checksum = tsum

	asum, err := checksum(archive.Archived)
	if err != nil {
		return "", err
	}
	archive.Meta.SchemaVersion = types.SchemaVersion
	archive.Meta.Checksum = asum

	// Stage both documents first so a write failure aborts the commit
	// before either document changed on disk.
	tasksTmp, err := stageDocument(s.tasksPath(), active)
	if err != nil {
		return "", err
	}
	archiveTmp, err := stageDocument(s.archivePath(), archive)
	if err != nil {
		os.Remove(tasksTmp)
		return "", err
	}

	// Archive first: a crash between the two renames leaves extra
	// archive copies but loses no tasks. The safety backup is the
	// manual recovery path.
	if err := os.Rename(archiveTmp, s.archivePath()); err != nil {
		os.Remove(tasksTmp)
		os.Remove(archiveTmp)
		return "", fmt.Errorf("renaming archive document: %w", err)
	}
	if err := os.Rename(tasksTmp, s.tasksPath()); err != nil {
		os.Remove(tasksTmp)
		return "", fmt.Errorf("renaming task document: %w", err)
	}
	return safetyDir, nil
}

// NextID returns the next unused task id, scanning both the active and
// archive documents so archived ids are never reused.
func (s *Store) NextID(active *types.TaskSet, archive *types.ArchiveSet) string {
	max := 0
	scan := func(id string) {
		if !strings.HasPrefix(id, "T") {
			return
		}
		n, err := strconv.Atoi(id[1:])
		if err == nil && n > max {
			max = n
		}
	}
	for _, t := range active.Tasks {
		scan(t.ID)
	}
	if archive != nil {
		for _, r := range archive.Archived {
			scan(r.Task.ID)
		}
	}
	return fmt.Sprintf("T%03d", max+1)
}

// NewOperationID returns a fresh operation identifier.
func (s *Store) NewOperationID() string { return s.ids.NewID() }

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, types.ErrDocumentNotFound)
}
