// Tests for the checksummed document store.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mesh-intelligence/lattice/pkg/types"
)

// fixedClock returns a constant time for deterministic backup naming.
type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// seqIDs returns predictable ids.
type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return "op-" + string(rune('a'+s.n-1))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir(), Config{
		Clock: fixedClock{t: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)},
		IDs:   &seqIDs{},
	})
}

func TestStore_InitAndLoad(t *testing.T) {
	s := newTestStore(t)
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	set, err := s.LoadTasks()
	if err != nil {
		t.Fatalf("LoadTasks failed: %v", err)
	}
	if len(set.Tasks) != 0 {
		t.Errorf("expected empty set, got %d tasks", len(set.Tasks))
	}
	if set.Meta.SchemaVersion != types.SchemaVersion {
		t.Errorf("schema version = %d, want %d", set.Meta.SchemaVersion, types.SchemaVersion)
	}
	if set.Meta.Checksum == "" {
		t.Error("checksum not written")
	}

	arch, err := s.LoadArchive()
	if err != nil {
		t.Fatalf("LoadArchive failed: %v", err)
	}
	if len(arch.Archived) != 0 {
		t.Errorf("expected empty archive, got %d records", len(arch.Archived))
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadTasks()
	if !errors.Is(err, types.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}

	// A missing archive document is an empty archive, not an error.
	arch, err := s.LoadArchive()
	if err != nil {
		t.Fatalf("LoadArchive failed: %v", err)
	}
	if len(arch.Archived) != 0 {
		t.Errorf("expected empty archive, got %d records", len(arch.Archived))
	}
}

func TestStore_SaveLoadRoundtrip(t *testing.T) {
	s := newTestStore(t)
	set := types.NewTaskSet()
	set.Add(types.Task{ID: "T1", Title: "first", Status: types.StatusPending, Type: types.TypeTask})
	set.Add(types.Task{ID: "T2", Title: "second", Status: types.StatusDone, Type: types.TypeTask, Depends: []string{"T1"}})

	if err := s.SaveTasks(set); err != nil {
		t.Fatalf("SaveTasks failed: %v", err)
	}

	got, err := s.LoadTasks()
	if err != nil {
		t.Fatalf("LoadTasks failed: %v", err)
	}
	if len(got.Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(got.Tasks))
	}
	if got.Tasks[1].Depends[0] != "T1" {
		t.Errorf("depends not preserved: %v", got.Tasks[1].Depends)
	}
}

func TestStore_ChecksumMismatch(t *testing.T) {
	s := newTestStore(t)
	set := types.NewTaskSet()
	set.Add(types.Task{ID: "T1", Title: "x", Status: types.StatusPending, Type: types.TypeTask})
	if err := s.SaveTasks(set); err != nil {
		t.Fatalf("SaveTasks failed: %v", err)
	}

	// Tamper with a task title without updating the checksum.
	path := filepath.Join(s.DataDir(), TasksFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), `"x"`, `"y"`, 1)
	if err := os.WriteFile(path, []byte(tampered), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = s.LoadTasks()
	if !errors.Is(err, types.ErrChecksumMismatch) {
		t.Errorf("expected ErrChecksumMismatch, got %v", err)
	}

	// Fix mode repairs the checksum without touching content.
	if err := s.FixChecksum(); err != nil {
		t.Fatalf("FixChecksum failed: %v", err)
	}
	got, err := s.LoadTasks()
	if err != nil {
		t.Fatalf("LoadTasks after fix failed: %v", err)
	}
	if got.Tasks[0].Title != "y" {
		t.Errorf("fix mode altered content: title = %q", got.Tasks[0].Title)
	}
}

func TestStore_CorruptDistinctFromChecksum(t *testing.T) {
	s := newTestStore(t)
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(s.DataDir(), TasksFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := s.LoadTasks()
	if !errors.Is(err, types.ErrCorruptDocument) {
		t.Errorf("expected ErrCorruptDocument, got %v", err)
	}
	if errors.Is(err, types.ErrChecksumMismatch) {
		t.Error("parse failure must not be reported as checksum mismatch")
	}
}

func TestStore_BackupRotationBounded(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, Config{BackupRotation: 3})

	set := types.NewTaskSet()
	for i := 0; i < 6; i++ {
		set.Tasks = append(set.Tasks, types.Task{
			ID: s.NextID(set, nil), Title: "t", Status: types.StatusPending, Type: types.TypeTask,
		})
		if err := s.SaveTasks(set); err != nil {
			t.Fatalf("SaveTasks %d failed: %v", i, err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(dir, backupsDirName))
	if err != nil {
		t.Fatalf("reading backups dir: %v", err)
	}
	if len(entries) > 3 {
		t.Errorf("backup history not bounded: %d entries", len(entries))
	}

	// Newest backup holds the previous generation (5 tasks).
	data, err := os.ReadFile(filepath.Join(dir, backupsDirName, TasksFileName+".1"))
	if err != nil {
		t.Fatal(err)
	}
	var prev types.TaskSet
	if err := json.Unmarshal(data, &prev); err != nil {
		t.Fatal(err)
	}
	if len(prev.Tasks) != 5 {
		t.Errorf("newest backup has %d tasks, want 5", len(prev.Tasks))
	}
}

func TestStore_CommitArchive(t *testing.T) {
	s := newTestStore(t)
	set := types.NewTaskSet()
	set.Add(types.Task{ID: "T1", Title: "done", Status: types.StatusDone, Type: types.TypeTask})
	set.Add(types.Task{ID: "T2", Title: "open", Status: types.StatusPending, Type: types.TypeTask, Depends: []string{"T1"}})
	if err := s.SaveTasks(set); err != nil {
		t.Fatal(err)
	}

	arch, err := s.LoadArchive()
	if err != nil {
		t.Fatal(err)
	}

	removed := set.Remove(map[string]bool{"T1": true})
	set.StripDepends(map[string]bool{"T1": true})
	arch.Archived = append(arch.Archived, types.ArchiveRecord{
		Task:    removed[0],
		Archive: types.ArchiveInfo{Source: types.SourceRetention, ArchivedAt: time.Now()},
	})

	safety, err := s.CommitArchive(set, arch, "archive")
	if err != nil {
		t.Fatalf("CommitArchive failed: %v", err)
	}

	// Safety backup preserves the pre-operation active document.
	data, err := os.ReadFile(filepath.Join(safety, TasksFileName))
	if err != nil {
		t.Fatalf("safety backup missing: %v", err)
	}
	var before types.TaskSet
	if err := json.Unmarshal(data, &before); err != nil {
		t.Fatal(err)
	}
	if len(before.Tasks) != 2 {
		t.Errorf("safety backup has %d tasks, want 2", len(before.Tasks))
	}

	// Both documents verify after commit.
	gotActive, err := s.LoadTasks()
	if err != nil {
		t.Fatalf("active document invalid after commit: %v", err)
	}
	if len(gotActive.Tasks) != 1 || gotActive.Tasks[0].ID != "T2" {
		t.Errorf("unexpected active tasks: %+v", gotActive.Tasks)
	}
	if len(gotActive.Tasks[0].Depends) != 0 {
		t.Errorf("archived id not stripped from depends: %v", gotActive.Tasks[0].Depends)
	}

	gotArch, err := s.LoadArchive()
	if err != nil {
		t.Fatalf("archive document invalid after commit: %v", err)
	}
	if len(gotArch.Archived) != 1 || gotArch.Archived[0].Task.ID != "T1" {
		t.Errorf("unexpected archive records: %+v", gotArch.Archived)
	}
}

func TestStore_NextID(t *testing.T) {
	s := newTestStore(t)
	set := types.NewTaskSet()
	if got := s.NextID(set, nil); got != "T001" {
		t.Errorf("NextID on empty set = %q, want T001", got)
	}

	set.Add(types.Task{ID: "T007", Status: types.StatusPending, Type: types.TypeTask})
	arch := types.NewArchiveSet()
	arch.Archived = append(arch.Archived, types.ArchiveRecord{
		Task: types.Task{ID: "T012", Status: types.StatusDone, Type: types.TypeTask},
	})

	if got := s.NextID(set, arch); got != "T013" {
		t.Errorf("NextID = %q, want T013 (archived ids are never reused)", got)
	}
}

// TestStore_ConcurrentCreates runs five concurrent create cycles against
// an empty store. The advisory lock serializes the read-modify-write
// cycles, so the final store holds exactly five uniquely-id'd tasks and
// a valid checksum.
func TestStore_ConcurrentCreates(t *testing.T) {
	s := newTestStore(t)
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock, err := s.Lock()
			if err != nil {
				errs <- err
				return
			}
			defer lock.Unlock()

			set, err := s.LoadTasks()
			if err != nil {
				errs <- err
				return
			}
			task := types.Task{
				ID:        s.NextID(set, nil),
				Title:     "concurrent",
				Status:    types.StatusPending,
				Type:      types.TypeTask,
				CreatedAt: time.Now(),
			}
			if err := set.Add(task); err != nil {
				errs <- err
				return
			}
			errs <- s.SaveTasks(set)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent create failed: %v", err)
		}
	}

	set, err := s.LoadTasks()
	if err != nil {
		t.Fatalf("final load failed: %v", err)
	}
	if len(set.Tasks) != 5 {
		t.Fatalf("got %d tasks, want 5", len(set.Tasks))
	}
	seen := make(map[string]bool)
	for _, task := range set.Tasks {
		if seen[task.ID] {
			t.Errorf("duplicate id %s", task.ID)
		}
		seen[task.ID] = true
	}
}
