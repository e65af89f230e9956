// Package registry manages the nexus registry: the catalog of projects
// a user may query across, with per-project permission levels. The
// registry is one YAML document mapping project name to entry; cached
// task counts are refreshed only by an explicit sync.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/lattice/pkg/types"
)

// SchemaVersion is the registry document schema version.
const SchemaVersion = 1

// hashLen is the number of hex characters in a project hash.
const hashLen = 12

// document is the on-disk registry layout.
type document struct {
	SchemaVersion int                            `yaml:"schemaVersion"`
	Projects      map[string]types.RegistryEntry `yaml:"projects"`
}

// Registry is the loaded registry document plus its location.
type Registry struct {
	path string
	doc  document
}

// Load reads the registry document at path. A missing document is an
// empty registry; the first register creates it.
func Load(path string) (*Registry, error) {
	r := &Registry{
		path: path,
		doc: document{
			SchemaVersion: SchemaVersion,
			Projects:      make(map[string]types.RegistryEntry),
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &r.doc); err != nil {
		return nil, fmt.Errorf("%w: registry %s: %v", types.ErrCorruptDocument, path, err)
	}
	if r.doc.Projects == nil {
		r.doc.Projects = make(map[string]types.RegistryEntry)
	}
	return r, nil
}

// Save atomically writes the registry document.
func (r *Registry) Save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("creating registry dir: %w", err)
	}
	r.doc.SchemaVersion = SchemaVersion
	data, err := yaml.Marshal(r.doc)
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".registry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing registry: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming registry: %w", err)
	}
	return nil
}

// HashPath derives the stable project hash from a path: SHA-256 of the
// cleaned absolute path, truncated to 12 hex characters.
func HashPath(path string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(path)))
	return hex.EncodeToString(sum[:])[:hashLen]
}

// Register adds a project. The path is made absolute and cleaned before
// hashing, so the same directory registered twice is caught regardless
// of spelling. Returns ErrNameTaken when the name is in use and
// ErrPathRegistered when the path hash collides with an existing entry
// under any name.
func (r *Registry) Register(path, name string, perm types.Permission, now time.Time) (types.RegistryEntry, error) {
	if name == "" || strings.ContainsAny(name, ":*") || name == "." {
		return types.RegistryEntry{}, fmt.Errorf("%w: %q", types.ErrInvalidName, name)
	}
	if _, err := types.ParsePermission(string(perm)); err != nil {
		return types.RegistryEntry{}, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return types.RegistryEntry{}, fmt.Errorf("resolving path %s: %w", path, err)
	}
	hash := HashPath(abs)

	if _, ok := r.doc.Projects[name]; ok {
		return types.RegistryEntry{}, fmt.Errorf("%w: %s", types.ErrNameTaken, name)
	}
	for existing, entry := range r.doc.Projects {
		if entry.Hash == hash {
			return types.RegistryEntry{}, fmt.Errorf("%w: %s (as %q)", types.ErrPathRegistered, abs, existing)
		}
	}

	entry := types.RegistryEntry{
		Name:       name,
		Path:       abs,
		Hash:       hash,
		Permission: perm,
		LastSynced: now,
	}
	r.doc.Projects[name] = entry
	return entry, nil
}

// Unregister removes a project by name.
func (r *Registry) Unregister(name string) error {
	if _, ok := r.doc.Projects[name]; !ok {
		return fmt.Errorf("%w: %s", types.ErrProjectNotFound, name)
	}
	delete(r.doc.Projects, name)
	return nil
}

// Get returns the entry for name.
func (r *Registry) Get(name string) (types.RegistryEntry, bool) {
	entry, ok := r.doc.Projects[name]
	return entry, ok
}

// List returns all entries sorted by name.
func (r *Registry) List() []types.RegistryEntry {
	entries := make([]types.RegistryEntry, 0, len(r.doc.Projects))
	for _, e := range r.doc.Projects {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Sync refreshes the cached task count and sync time of one entry.
// The count comes from the target project's current store; callers load
// it and pass the result, keeping the registry free of store coupling.
func (r *Registry) Sync(name string, taskCount int, now time.Time) error {
	entry, ok := r.doc.Projects[name]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrProjectNotFound, name)
	}
	entry.TaskCount = taskCount
	entry.LastSynced = now
	r.doc.Projects[name] = entry
	return nil
}
