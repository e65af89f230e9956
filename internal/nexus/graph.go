package nexus

import (
	"fmt"
	"sort"

	"github.com/mesh-intelligence/lattice/internal/relgraph"
	"github.com/mesh-intelligence/lattice/pkg/types"
)

// NodeKey identifies one task within the global graph.
type NodeKey struct {
	Project string `json:"project"`
	ID      string `json:"id"`
}

func (k NodeKey) String() string { return k.Project + ":" + k.ID }

// GlobalGraph is the merged dependency graph over every readable
// project. Edges run dependency -> dependent under Dependents and the
// reverse under Dependencies. Edges whose target cannot be resolved
// (unregistered project, missing task, unreadable store) are omitted;
// OrphanDetection reports them instead.
type GlobalGraph struct {
	Nodes        map[NodeKey]*types.Task
	Dependents   map[NodeKey][]NodeKey
	Dependencies map[NodeKey][]NodeKey
	Children     map[NodeKey][]NodeKey
	Warnings     []string
}

// CriticalPath is the longest dependency chain in the global graph,
// measured in edges.
type CriticalPath struct {
	Path   []NodeKey `json:"path"`
	Length int       `json:"length"`
}

// BlockingReport lists every task transitively waiting on one node.
type BlockingReport struct {
	Node     NodeKey   `json:"node"`
	Blocking []NodeKey `json:"blocking"`
}

// OrphanReason classifies a dangling dependency edge.
type OrphanReason string

// Orphan classifications.
const (
	OrphanProjectNotRegistered OrphanReason = "project_not_registered"
	OrphanTaskNotFound         OrphanReason = "task_not_found"
)

// Orphan is a dependency edge whose target does not exist.
type Orphan struct {
	Project string       `json:"project"`
	TaskID  string       `json:"taskId"`
	Ref     string       `json:"ref"`
	Reason  OrphanReason `json:"reason"`
}

// BuildGlobalGraph assembles (or returns the cached) merged graph over
// every readable project. A structural error inside a single project,
// such as a parent cycle, fails the build.
func (c *Coordinator) BuildGlobalGraph() (*GlobalGraph, error) {
	if c.valid && c.graph != nil {
		return c.graph, nil
	}

	sets, names, warnings := c.loadReadable()
	g := &GlobalGraph{
		Nodes:        make(map[NodeKey]*types.Task),
		Dependents:   make(map[NodeKey][]NodeKey),
		Dependencies: make(map[NodeKey][]NodeKey),
		Children:     make(map[NodeKey][]NodeKey),
		Warnings:     warnings,
	}

	// Each project must pass the local builder's consistency checks
	// (duplicate ids, parent cycles) before its nodes join the union.
	// Nodes first so cross-project edges can resolve regardless of
	// project iteration order.
	for _, name := range names {
		if _, err := relgraph.Build(sets[name]); err != nil {
			return nil, fmt.Errorf("project %s: %w", name, err)
		}
		for i := range sets[name].Tasks {
			t := &sets[name].Tasks[i]
			g.Nodes[NodeKey{Project: name, ID: t.ID}] = t
		}
	}

	for _, name := range names {
		for i := range sets[name].Tasks {
			t := &sets[name].Tasks[i]
			key := NodeKey{Project: name, ID: t.ID}

			if t.ParentID != "" {
				parent := NodeKey{Project: name, ID: t.ParentID}
				if _, ok := g.Nodes[parent]; ok {
					g.Children[parent] = append(g.Children[parent], key)
				}
			}
			for _, raw := range t.Depends {
				ref, err := types.ParseDepRef(raw)
				if err != nil {
					continue
				}
				project := ref.Project
				if ref.IsLocal() {
					project = name
				}
				dep := NodeKey{Project: project, ID: ref.ID}
				if _, ok := g.Nodes[dep]; !ok {
					continue
				}
				g.Dependents[dep] = append(g.Dependents[dep], key)
				g.Dependencies[key] = append(g.Dependencies[key], dep)
			}
		}
	}

	for _, adj := range []map[NodeKey][]NodeKey{g.Dependents, g.Dependencies, g.Children} {
		for k := range adj {
			sortKeys(adj[k])
		}
	}

	c.graph = g
	c.valid = true
	return g, nil
}

// CriticalPath finds the longest chain of depends edges across the
// global graph. Length counts edges; among equally long chains the one
// whose starting task was created earliest wins, then key order.
func (c *Coordinator) CriticalPath() (*CriticalPath, error) {
	g, err := c.BuildGlobalGraph()
	if err != nil {
		return nil, err
	}
	if len(g.Nodes) == 0 {
		return &CriticalPath{Path: nil, Length: 0}, nil
	}

	order, err := topoSort(g)
	if err != nil {
		return nil, err
	}

	// Longest-path DP over the topological order. root tracks the
	// origin of each node's chosen chain so ties resolve by the
	// earliest-created root.
	dist := make(map[NodeKey]int, len(g.Nodes))
	pred := make(map[NodeKey]NodeKey, len(g.Nodes))
	root := make(map[NodeKey]NodeKey, len(g.Nodes))
	hasPred := make(map[NodeKey]bool, len(g.Nodes))
	for k := range g.Nodes {
		root[k] = k
	}
	for _, n := range order {
		for _, succ := range g.Dependents[n] {
			d := dist[n] + 1
			if d > dist[succ] || (d == dist[succ] && betterRoot(g, root[n], root[succ])) {
				dist[succ] = d
				pred[succ] = n
				hasPred[succ] = true
				root[succ] = root[n]
			}
		}
	}

	var best NodeKey
	bestSet := false
	for k := range g.Nodes {
		if !bestSet || dist[k] > dist[best] ||
			(dist[k] == dist[best] && betterRoot(g, root[k], root[best])) {
			best = k
			bestSet = true
		}
	}

	var path []NodeKey
	for n := best; ; n = pred[n] {
		path = append(path, n)
		if !hasPred[n] {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return &CriticalPath{Path: path, Length: len(path) - 1}, nil
}

// betterRoot reports whether chain root a beats chain root b: earlier
// CreatedAt first, key order as the final tie-break.
func betterRoot(g *GlobalGraph, a, b NodeKey) bool {
	ta, tb := g.Nodes[a], g.Nodes[b]
	if !ta.CreatedAt.Equal(tb.CreatedAt) {
		return ta.CreatedAt.Before(tb.CreatedAt)
	}
	return a.String() < b.String()
}

// topoSort orders nodes by Kahn's algorithm over depends edges. A
// leftover node means the cross-project graph closed a cycle.
func topoSort(g *GlobalGraph) ([]NodeKey, error) {
	indeg := make(map[NodeKey]int, len(g.Nodes))
	var queue []NodeKey
	for k := range g.Nodes {
		indeg[k] = len(g.Dependencies[k])
		if indeg[k] == 0 {
			queue = append(queue, k)
		}
	}
	sortKeys(queue)

	order := make([]NodeKey, 0, len(g.Nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, succ := range g.Dependents[n] {
			indeg[succ]--
			if indeg[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}
	if len(order) != len(g.Nodes) {
		return nil, fmt.Errorf("%w: cross-project dependency cycle", types.ErrCycleDetected)
	}
	return order, nil
}

// BlockingAnalysis returns every task transitively waiting on node,
// breadth-first over depends edges, sorted by key.
func (c *Coordinator) BlockingAnalysis(node NodeKey) (*BlockingReport, error) {
	g, err := c.BuildGlobalGraph()
	if err != nil {
		return nil, err
	}
	if _, ok := g.Nodes[node]; !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrTaskNotFound, node)
	}

	seen := map[NodeKey]bool{node: true}
	var blocking []NodeKey
	queue := []NodeKey{node}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, succ := range g.Dependents[n] {
			if seen[succ] {
				continue
			}
			seen[succ] = true
			blocking = append(blocking, succ)
			queue = append(queue, succ)
		}
	}
	sortKeys(blocking)
	return &BlockingReport{Node: node, Blocking: blocking}, nil
}

// OrphanDetection scans every readable project for dependency edges
// whose target no longer exists, classified by whether the target
// project is registered at all. Unparseable references are skipped.
func (c *Coordinator) OrphanDetection() ([]Orphan, error) {
	sets, names, _ := c.loadReadable()

	// Target projects load on demand and only once; permission does
	// not gate existence checks, only content access.
	targets := make(map[string]*types.TaskSet)
	loadTarget := func(project string) *types.TaskSet {
		if set, ok := sets[project]; ok {
			return set
		}
		if set, ok := targets[project]; ok {
			return set
		}
		entry, ok := c.reg.Get(project)
		if !ok {
			return nil
		}
		set, err := c.loader.LoadTasks(entry.Path)
		if err != nil {
			set = types.NewTaskSet()
		}
		targets[project] = set
		return set
	}

	var orphans []Orphan
	for _, name := range names {
		for i := range sets[name].Tasks {
			t := &sets[name].Tasks[i]
			for _, raw := range t.Depends {
				ref, err := types.ParseDepRef(raw)
				if err != nil {
					continue
				}
				project := ref.Project
				if ref.IsLocal() {
					project = name
				}
				if _, ok := c.reg.Get(project); !ok && !ref.IsLocal() {
					orphans = append(orphans, Orphan{
						Project: name, TaskID: t.ID, Ref: raw,
						Reason: OrphanProjectNotRegistered,
					})
					continue
				}
				if set := loadTarget(project); set == nil || set.Find(ref.ID) == nil {
					orphans = append(orphans, Orphan{
						Project: name, TaskID: t.ID, Ref: raw,
						Reason: OrphanTaskNotFound,
					})
				}
			}
		}
	}
	sort.Slice(orphans, func(i, j int) bool {
		if orphans[i].Project != orphans[j].Project {
			return orphans[i].Project < orphans[j].Project
		}
		if orphans[i].TaskID != orphans[j].TaskID {
			return orphans[i].TaskID < orphans[j].TaskID
		}
		return orphans[i].Ref < orphans[j].Ref
	})
	return orphans, nil
}

func sortKeys(keys []NodeKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
}
