// Package relgraph builds the in-memory relationship graph of one
// project's task set: parent/child edges from parentId and dependency
// edges from depends. The graph is side-effect-free, derived purely
// from the snapshot passed to Build.
package relgraph

import (
	"fmt"
	"sort"

	"github.com/mesh-intelligence/lattice/pkg/types"
)

// Graph holds the relationship adjacency of one task set. Only local
// dependency references participate; qualified (project:id) references
// belong to the cross-project layer.
type Graph struct {
	tasks        map[string]*types.Task
	children     map[string][]string
	parent       map[string]string
	dependents   map[string][]string // id -> tasks whose depends includes id
	dependencies map[string][]string // id -> local ids the task depends on
	ids          []string            // sorted task ids
}

// Build constructs a Graph from a task set snapshot.
// Returns ErrDuplicateID if two tasks share an id and ErrCycleDetected
// if the parentId chain of any task loops.
func Build(set *types.TaskSet) (*Graph, error) {
	g := &Graph{
		tasks:        make(map[string]*types.Task, len(set.Tasks)),
		children:     make(map[string][]string),
		parent:       make(map[string]string),
		dependents:   make(map[string][]string),
		dependencies: make(map[string][]string),
	}

	for i := range set.Tasks {
		t := &set.Tasks[i]
		if _, ok := g.tasks[t.ID]; ok {
			return nil, fmt.Errorf("%w: %s", types.ErrDuplicateID, t.ID)
		}
		g.tasks[t.ID] = t
		g.ids = append(g.ids, t.ID)
	}
	sort.Strings(g.ids)

	for _, id := range g.ids {
		t := g.tasks[id]
		if t.ParentID != "" {
			if _, ok := g.tasks[t.ParentID]; ok {
				g.parent[id] = t.ParentID
				g.children[t.ParentID] = append(g.children[t.ParentID], id)
			}
		}
		for _, raw := range t.Depends {
			ref, err := types.ParseDepRef(raw)
			if err != nil || !ref.IsLocal() {
				continue
			}
			if _, ok := g.tasks[ref.ID]; ok {
				g.dependencies[id] = append(g.dependencies[id], ref.ID)
				g.dependents[ref.ID] = append(g.dependents[ref.ID], id)
			}
		}
	}

	for k := range g.children {
		sort.Strings(g.children[k])
	}
	for k := range g.dependents {
		sort.Strings(g.dependents[k])
	}

	if cycle := g.parentCycle(); cycle != nil {
		return nil, fmt.Errorf("%w: parent chain %v", types.ErrCycleDetected, cycle)
	}
	return g, nil
}

// parentCycle returns a looping parent chain if one exists, or nil.
// Uses DFS with coloring over the child adjacency: white (unvisited),
// gray (in progress), black (done).
func (g *Graph) parentCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, next := range g.children[node] {
			if color[next] == gray {
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for _, id := range g.ids {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// Task returns the task with the given id.
func (g *Graph) Task(id string) (*types.Task, bool) {
	t, ok := g.tasks[id]
	return t, ok
}

// TaskIDs returns all task ids in sorted order.
func (g *Graph) TaskIDs() []string { return g.ids }

// Children returns the ids of tasks whose parentId is id.
func (g *Graph) Children(id string) []string { return g.children[id] }

// Parent returns the parent id of id, if any.
func (g *Graph) Parent(id string) (string, bool) {
	p, ok := g.parent[id]
	return p, ok
}

// Dependents returns the ids of tasks whose depends includes id.
func (g *Graph) Dependents(id string) []string { return g.dependents[id] }

// Dependencies returns the local ids that id depends on.
func (g *Graph) Dependencies(id string) []string { return g.dependencies[id] }

// RootOf walks the parent chain from id and returns the family root.
func (g *Graph) RootOf(id string) string {
	cur := id
	for {
		p, ok := g.parent[cur]
		if !ok {
			return cur
		}
		cur = p
	}
}

// FamilyOf returns the transitive descendants of root via parentId,
// breadth-first, in sorted order per level. The root itself is not
// included.
func (g *Graph) FamilyOf(root string) []string {
	var family []string
	queue := append([]string(nil), g.children[root]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		family = append(family, id)
		queue = append(queue, g.children[id]...)
	}
	return family
}

// IsFamilyDone reports whether root and every transitive descendant
// have status done.
func (g *Graph) IsFamilyDone(root string) bool {
	t, ok := g.tasks[root]
	if !ok || !t.IsDone() {
		return false
	}
	for _, id := range g.FamilyOf(root) {
		if !g.tasks[id].IsDone() {
			return false
		}
	}
	return true
}
