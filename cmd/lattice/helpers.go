// Shared helpers for lattice CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mesh-intelligence/lattice/internal/nexus"
	"github.com/mesh-intelligence/lattice/internal/registry"
	"github.com/mesh-intelligence/lattice/internal/store"
	"github.com/mesh-intelligence/lattice/pkg/types"
)

// openStore resolves the data directory and creates a Store with the
// configured backup rotation.
func openStore() (*store.Store, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	return store.New(dataDir, store.Config{BackupRotation: configBackupRotation}), nil
}

// withLockedStore runs fn while holding the store's advisory write
// lock. Read-only commands skip the lock.
func withLockedStore(s *store.Store, fn func() error) error {
	lock, err := s.Lock()
	if err != nil {
		return fmt.Errorf("acquire store lock: %w", err)
	}
	defer lock.Unlock()
	return fn()
}

// loadRegistry loads the per-user registry document.
func loadRegistry() (*registry.Registry, error) {
	path, err := resolveRegistryPath()
	if err != nil {
		return nil, fmt.Errorf("resolve registry path: %w", err)
	}
	return registry.Load(path)
}

// currentProjectName finds the registry entry whose path hash matches
// the working directory. Empty when the working directory is not a
// registered project.
func currentProjectName(reg *registry.Registry) string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	hash := registry.HashPath(cwd)
	for _, entry := range reg.List() {
		if entry.Hash == hash {
			return entry.Name
		}
	}
	return ""
}

// newCoordinator builds a cross-project coordinator bound to the
// working directory's project, when registered.
func newCoordinator() (*nexus.Coordinator, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	return nexus.New(reg, nexus.StoreLoader(), currentProjectName(reg)), nil
}

// retentionEligible builds the archive eligibility predicate from the
// configured retention window. days <= 0 makes every done task eligible.
func retentionEligible(days int, now time.Time) func(types.Task) bool {
	return func(t types.Task) bool {
		if days <= 0 {
			return true
		}
		if t.CompletedAt == nil {
			return false
		}
		return now.Sub(*t.CompletedAt) >= time.Duration(days)*24*time.Hour
	}
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// sysExit reports a system error and exits with the system error code.
func sysExit(context string, err error) {
	logger.Error(context, "err", err)
	os.Exit(exitSysError)
}
