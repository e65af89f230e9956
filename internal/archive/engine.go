// Package archive implements the cascade engine that moves completed
// work out of one project's active document. The engine is pure: it
// plans an archive run over a task set snapshot and its relationship
// graph, and the caller persists the plan through the store's
// two-document commit. A dry run is the same plan, never persisted.
package archive

import (
	"fmt"
	"sort"
	"time"

	"github.com/mesh-intelligence/lattice/internal/relgraph"
	"github.com/mesh-intelligence/lattice/pkg/types"
)

// Clock supplies archive timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Engine plans archive runs.
type Engine struct {
	clock Clock
}

// NewEngine creates an Engine. A nil clock selects the system clock.
func NewEngine(clock Clock) *Engine {
	if clock == nil {
		clock = systemClock{}
	}
	return &Engine{clock: clock}
}

// Options selects what one archive run does.
type Options struct {
	// Eligible reports whether a done task satisfies the retention
	// policy (or a bypass). Nil means every done task is eligible.
	// Retention itself is external configuration; the engine only
	// consumes the resulting boolean.
	Eligible func(types.Task) bool

	// Cascade archives complete families as atomic units, in addition
	// to individually eligible candidates.
	Cascade bool

	// CascadeFrom archives the named root and its done descendants,
	// bypassing retention entirely. Mutually distinct from Cascade.
	CascadeFrom string

	// SafeMode blocks candidates with non-done children or active
	// dependents. Override disables enforcement without changing
	// candidate selection.
	SafeMode bool
	Override bool

	// DryRun plans without persisting; the report is identical.
	DryRun bool

	// OperationID tags the report and every archive record.
	OperationID string
}

// Plan is a fully planned archive run: the report, the shrunken active
// set, and the records to append to the archive document. Active and
// Archive are copies; the input snapshot is never mutated.
type Plan struct {
	Report  *Report
	Active  *types.TaskSet
	Records []types.ArchiveRecord
}

// Plan computes an archive run over the given snapshot.
// Returns ErrTaskNotFound if a cascade-from root is missing and
// ErrNotDone if it exists but is not done.
func (e *Engine) Plan(set *types.TaskSet, g *relgraph.Graph, opts Options) (*Plan, error) {
	report := &Report{
		OperationID:      opts.OperationID,
		DryRun:           opts.DryRun,
		Archived:         ArchivedSummary{TaskIDs: []string{}},
		CascadedFamilies: []Family{},
		Blocked: BlockedByRelationships{
			ByChildren:   []string{},
			ByDependents: []string{},
		},
	}

	if opts.CascadeFrom != "" {
		return e.planCascadeFrom(set, g, opts, report)
	}

	eligible := opts.Eligible
	if eligible == nil {
		eligible = func(types.Task) bool { return true }
	}

	// Base candidates: done and retention-eligible.
	candidates := make(map[string]bool)
	for i := range set.Tasks {
		t := set.Tasks[i]
		if t.IsDone() && eligible(t) {
			candidates[t.ID] = true
		}
	}

	// Selection with provenance. Cascade is strictly additive: a
	// complete family touched by any candidate is archived whole; an
	// incomplete family contributes nothing beyond its individually
	// eligible members.
	selected := make(map[string]types.ArchiveSource)
	for id := range candidates {
		selected[id] = types.SourceRetention
	}

	families := make(map[string][]string) // root -> root followed by descendants
	if opts.Cascade {
		seenRoots := make(map[string]bool)
		for _, id := range sortedKeys(candidates) {
			root := g.RootOf(id)
			if seenRoots[root] {
				continue
			}
			seenRoots[root] = true
			descendants := g.FamilyOf(root)
			if len(descendants) == 0 {
				continue // singleton family: plain candidate path
			}
			if g.IsFamilyDone(root) {
				members := append([]string{root}, descendants...)
				families[root] = members
				for _, m := range members {
					selected[m] = types.SourceCascade
				}
			} else {
				report.SkippedFamilies = append(report.SkippedFamilies, SkippedFamily{
					Root:   root,
					Reason: "family incomplete",
				})
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("family %s has non-done members and was not cascade-archived", root))
			}
		}
	}

	report.SafeMode = opts.SafeMode && !opts.Override
	if report.SafeMode {
		e.applySafeMode(g, candidates, selected, families, report)
	}

	for _, root := range sortedFamilyRoots(families) {
		report.CascadedFamilies = append(report.CascadedFamilies, Family{
			Parent:   root,
			Children: families[root][1:],
		})
	}
	report.CascadeApplied = len(families) > 0

	return e.finish(set, selected, opts, report), nil
}

// applySafeMode removes blocked tasks from the selection until stable.
// Removing a task can re-block one of its dependencies, and breaking a
// cascade family demotes its members, so the filter iterates to a
// fixpoint.
func (e *Engine) applySafeMode(
	g *relgraph.Graph,
	candidates map[string]bool,
	selected map[string]types.ArchiveSource,
	families map[string][]string,
	report *Report,
) {
	blockedChildren := make(map[string]bool)
	blockedDependents := make(map[string]bool)

	for stable := false; !stable; {
		stable = true

		for _, id := range sortedSources(selected) {
			if byChild := e.blockedByChildren(g, id); byChild {
				blockedChildren[id] = true
				delete(selected, id)
				stable = false
				continue
			}
			if e.blockedByDependents(g, id, selected) {
				blockedDependents[id] = true
				delete(selected, id)
				stable = false
			}
		}

		// A family with a blocked member is no longer an atomic cascade
		// unit. Its surviving members fall back to the candidate path;
		// members that were only swept in by the family leave the run.
		for _, root := range sortedFamilyRoots(families) {
			members := families[root]
			broken := false
			for _, m := range members {
				if _, in := selected[m]; !in {
					broken = true
					break
				}
			}
			if !broken {
				continue
			}
			delete(families, root)
			for _, m := range members {
				if _, in := selected[m]; !in {
					continue
				}
				if candidates[m] {
					selected[m] = types.SourceRetention
				} else {
					delete(selected, m)
					stable = false
				}
			}
			report.SkippedFamilies = append(report.SkippedFamilies, SkippedFamily{
				Root:   root,
				Reason: "member blocked by safe mode",
			})
		}
	}

	report.Blocked.ByChildren = sortedKeys(blockedChildren)
	report.Blocked.ByDependents = sortedKeys(blockedDependents)
}

// blockedByChildren reports whether id has a child that is neither done
// nor archived. Archived children are already out of the active set.
func (e *Engine) blockedByChildren(g *relgraph.Graph, id string) bool {
	for _, c := range g.Children(id) {
		if child, ok := g.Task(c); ok && !child.IsDone() {
			return true
		}
	}
	return false
}

// blockedByDependents reports whether a task outside this run's
// selection still depends on id. A dependent that is itself being
// archived does not pin its dependency.
func (e *Engine) blockedByDependents(g *relgraph.Graph, id string, selected map[string]types.ArchiveSource) bool {
	for _, d := range g.Dependents(id) {
		if _, in := selected[d]; !in {
			return true
		}
	}
	return false
}

// planCascadeFrom handles the root-rooted variant: validate the root,
// collect the full descendant set, archive the root plus its done
// descendants. Retention and safe mode do not apply on this path.
func (e *Engine) planCascadeFrom(set *types.TaskSet, g *relgraph.Graph, opts Options, report *Report) (*Plan, error) {
	root, ok := g.Task(opts.CascadeFrom)
	if !ok {
		return nil, fmt.Errorf("%w: cascade-from root %s", types.ErrTaskNotFound, opts.CascadeFrom)
	}
	if !root.IsDone() {
		return nil, fmt.Errorf("%w: cascade-from root %s has status %s",
			types.ErrNotDone, root.ID, root.Status)
	}

	descendants := g.FamilyOf(root.ID)
	incomplete := 0
	selected := map[string]types.ArchiveSource{
		root.ID: types.SourceCascadeFrom,
	}
	for _, id := range descendants {
		t, _ := g.Task(id)
		if t.IsDone() {
			selected[id] = types.SourceCascadeFrom
		} else {
			incomplete++
		}
	}

	report.CascadeFrom = &CascadeFromReport{
		RootTask:              root.ID,
		TotalDescendants:      len(descendants),
		IncompleteDescendants: incomplete,
	}
	if incomplete > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d descendant(s) of %s are not done and were left active", incomplete, root.ID))
	}

	return e.finish(set, selected, opts, report), nil
}

// finish materializes the plan: clone the set, remove and strip the
// selection, and build the archive records in document order.
func (e *Engine) finish(set *types.TaskSet, selected map[string]types.ArchiveSource, opts Options, report *Report) *Plan {
	ids := make(map[string]bool, len(selected))
	for id := range selected {
		ids[id] = true
	}

	clone := cloneSet(set)
	removed := clone.Remove(ids)
	clone.StripDepends(ids)

	now := e.clock.Now()
	records := make([]types.ArchiveRecord, 0, len(removed))
	taskIDs := make([]string, 0, len(removed))
	for _, t := range removed {
		records = append(records, types.ArchiveRecord{
			Task: t,
			Archive: types.ArchiveInfo{
				Source:      selected[t.ID],
				ArchivedAt:  now,
				OperationID: opts.OperationID,
			},
		})
		taskIDs = append(taskIDs, t.ID)
	}
	sort.Strings(taskIDs)

	report.Archived = ArchivedSummary{Count: len(taskIDs), TaskIDs: taskIDs}
	return &Plan{Report: report, Active: clone, Records: records}
}

// cloneSet deep-copies a task set so planning never mutates the snapshot.
func cloneSet(set *types.TaskSet) *types.TaskSet {
	clone := &types.TaskSet{
		Meta:  set.Meta,
		Tasks: make([]types.Task, len(set.Tasks)),
	}
	copy(clone.Tasks, set.Tasks)
	for i := range clone.Tasks {
		if len(clone.Tasks[i].Depends) > 0 {
			deps := make([]string, len(clone.Tasks[i].Depends))
			copy(deps, clone.Tasks[i].Depends)
			clone.Tasks[i].Depends = deps
		}
	}
	return clone
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSources(m map[string]types.ArchiveSource) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFamilyRoots(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
