// Package nexus federates the task stores of registered projects into
// one queryable, permission-gated dependency graph. Every query reads
// an eventually-consistent snapshot per project; nothing here locks or
// mutates a remote store.
package nexus

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/lattice/internal/paths"
	"github.com/mesh-intelligence/lattice/internal/permission"
	"github.com/mesh-intelligence/lattice/internal/registry"
	"github.com/mesh-intelligence/lattice/internal/store"
	"github.com/mesh-intelligence/lattice/pkg/types"
)

// Loader reads one project's active task document given the project's
// registered path. Injected so tests run against fixture directories.
type Loader interface {
	LoadTasks(projectPath string) (*types.TaskSet, error)
}

// storeLoader is the production Loader: the task document lives in the
// standard data directory under the registered project path.
type storeLoader struct{}

func (storeLoader) LoadTasks(projectPath string) (*types.TaskSet, error) {
	dataDir := filepath.Join(projectPath, paths.DefaultDataDirName)
	return store.New(dataDir, store.Config{}).LoadTasks()
}

// StoreLoader returns the Loader backed by the document store.
func StoreLoader() Loader { return storeLoader{} }

// TaskView is a resolved task tagged with its source project.
type TaskView struct {
	Project string     `json:"project"`
	Task    types.Task `json:"task"`
}

// DepResolution classifies one dependency reference's outcome.
type DepResolution string

// Dependency resolution outcomes.
const (
	DepResolved         DepResolution = "resolved"
	DepPermissionDenied DepResolution = "permission_denied"
	DepNotFound         DepResolution = "not_found"
)

// DepStatus is the per-reference outcome of ResolveCrossDeps.
type DepStatus struct {
	Ref    string        `json:"ref"`
	Status DepResolution `json:"status"`
}

// Coordinator resolves cross-project queries against the registry.
// The global graph is cached behind an explicit validity flag; writers
// are separate invocations, so only Invalidate forces a rebuild.
type Coordinator struct {
	reg     *registry.Registry
	loader  Loader
	current string // caller-supplied current-project name, may be empty

	graph *GlobalGraph
	valid bool
}

// New creates a Coordinator. current names the caller's own project for
// "." and bare-id queries; it may be empty when no project context exists.
func New(reg *registry.Registry, loader Loader, current string) *Coordinator {
	if loader == nil {
		loader = StoreLoader()
	}
	return &Coordinator{reg: reg, loader: loader, current: current}
}

// ResolveTask resolves a query string against the registry. Named and
// current-project queries yield exactly one view or a typed error;
// wildcard queries yield every match across readable projects, possibly
// empty, possibly one per project when ids coincide.
func (c *Coordinator) ResolveTask(raw string) ([]TaskView, error) {
	q, err := registry.ParseQuery(raw)
	if err != nil {
		return nil, err
	}

	switch q.Kind {
	case registry.QueryLocal, registry.QueryCurrent:
		if c.current == "" {
			return nil, fmt.Errorf("%w: %q needs a current project", types.ErrInvalidQuery, raw)
		}
		return c.resolveIn(c.current, q.TaskID)
	case registry.QueryNamed:
		return c.resolveIn(q.Project, q.TaskID)
	case registry.QueryWildcard:
		var views []TaskView
		for _, entry := range c.reg.List() {
			if !permission.Check(entry, types.PermissionRead) {
				continue
			}
			set, err := c.loader.LoadTasks(entry.Path)
			if err != nil {
				continue // unreadable stores are skipped in fan-out
			}
			if t := set.Find(q.TaskID); t != nil {
				views = append(views, TaskView{Project: entry.Name, Task: *t})
			}
		}
		return views, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidQuery, raw)
	}
}

// resolveIn resolves one task in one named project, distinguishing
// ProjectNotFound, PermissionDenied, and TaskNotFound.
func (c *Coordinator) resolveIn(project, taskID string) ([]TaskView, error) {
	if err := permission.Require(c.reg, project, types.PermissionRead); err != nil {
		return nil, err
	}
	entry, _ := c.reg.Get(project)
	set, err := c.loader.LoadTasks(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", project, err)
	}
	t := set.Find(taskID)
	if t == nil {
		return nil, fmt.Errorf("%w: %s in project %s", types.ErrTaskNotFound, taskID, project)
	}
	return []TaskView{{Project: project, Task: *t}}, nil
}

// ResolveCrossDeps classifies every dependency reference of a task.
// Unqualified references bind to the owning project. The batch never
// aborts; each item's outcome is recorded individually.
func (c *Coordinator) ResolveCrossDeps(depends []string, owningProject string) []DepStatus {
	results := make([]DepStatus, 0, len(depends))
	for _, raw := range depends {
		results = append(results, DepStatus{
			Ref:    raw,
			Status: c.resolveDep(raw, owningProject),
		})
	}
	return results
}

func (c *Coordinator) resolveDep(raw, owningProject string) DepResolution {
	ref, err := types.ParseDepRef(raw)
	if err != nil {
		return DepNotFound
	}
	project := ref.Project
	if ref.IsLocal() {
		project = owningProject
	}

	if err := permission.Require(c.reg, project, types.PermissionRead); err != nil {
		if errors.Is(err, types.ErrPermissionDenied) {
			return DepPermissionDenied
		}
		return DepNotFound
	}
	entry, _ := c.reg.Get(project)
	set, err := c.loader.LoadTasks(entry.Path)
	if err != nil {
		return DepNotFound
	}
	if set.Find(ref.ID) == nil {
		return DepNotFound
	}
	return DepResolved
}

// Invalidate marks the cached global graph stale, forcing the next
// graph query to rebuild. Called after a sync or any time the caller
// knows a remote store changed.
func (c *Coordinator) Invalidate() {
	c.valid = false
	c.graph = nil
}

// loadReadable loads the current task set of every project the caller
// may read, keyed by project name. Projects whose stores cannot be
// loaded are reported in warnings and skipped.
func (c *Coordinator) loadReadable() (map[string]*types.TaskSet, []string, []string) {
	sets := make(map[string]*types.TaskSet)
	var names []string
	var warnings []string
	for _, entry := range c.reg.List() {
		if !permission.Check(entry, types.PermissionRead) {
			continue
		}
		set, err := c.loader.LoadTasks(entry.Path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("project %s: %v", entry.Name, err))
			continue
		}
		sets[entry.Name] = set
		names = append(names, entry.Name)
	}
	return sets, names, warnings
}
