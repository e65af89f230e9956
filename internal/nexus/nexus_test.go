package nexus

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/lattice/internal/registry"
	"github.com/mesh-intelligence/lattice/pkg/types"
)

// fakeLoader serves task sets keyed by registered project path.
type fakeLoader struct {
	sets map[string]*types.TaskSet
}

func (f *fakeLoader) LoadTasks(projectPath string) (*types.TaskSet, error) {
	set, ok := f.sets[projectPath]
	if !ok {
		return nil, os.ErrNotExist
	}
	return set, nil
}

func task(id string, status types.Status, created time.Time, depends ...string) types.Task {
	return types.Task{
		ID:        id,
		Title:     "task " + id,
		Status:    status,
		Type:      types.TypeTask,
		Depends:   depends,
		CreatedAt: created,
	}
}

func taskSet(tasks ...types.Task) *types.TaskSet {
	set := types.NewTaskSet()
	set.Tasks = tasks
	return set
}

// testRegistry registers alpha and beta with read permission, plus a
// hidden project whose stored permission grants nothing.
func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Load(filepath.Join(t.TempDir(), "registry.yaml"))
	require.NoError(t, err)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err = reg.Register("/alpha", "alpha", types.PermissionRead, now)
	require.NoError(t, err)
	_, err = reg.Register("/beta", "beta", types.PermissionWrite, now)
	require.NoError(t, err)
	return reg
}

// hiddenRegistry loads a registry document containing an entry whose
// permission level is unrecognized, which satisfies no requirement.
func hiddenRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.yaml")
	doc := `schemaVersion: 1
projects:
  alpha:
    name: alpha
    path: /alpha
    hash: aaaaaaaaaaaa
    permission: read
  hidden:
    name: hidden
    path: /hidden
    hash: bbbbbbbbbbbb
    permission: none
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	reg, err := registry.Load(path)
	require.NoError(t, err)
	return reg
}

func fixtureLoader() *fakeLoader {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return &fakeLoader{sets: map[string]*types.TaskSet{
		"/alpha": taskSet(
			task("T1", types.StatusDone, t0),
			task("T2", types.StatusActive, t0.Add(time.Hour), "T1", "beta:T1"),
			task("T3", types.StatusPending, t0.Add(2*time.Hour), "gamma:T9"),
			task("T4", types.StatusPending, t0.Add(3*time.Hour), "T9"),
		),
		"/beta": taskSet(
			task("T1", types.StatusDone, t0.Add(time.Minute)),
			task("T3", types.StatusPending, t0.Add(4*time.Hour), "alpha:T2"),
		),
	}}
}

func TestResolveTaskNamed(t *testing.T) {
	c := New(testRegistry(t), fixtureLoader(), "")

	views, err := c.ResolveTask("alpha:T2")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "alpha", views[0].Project)
	assert.Equal(t, "T2", views[0].Task.ID)

	_, err = c.ResolveTask("alpha:T99")
	assert.ErrorIs(t, err, types.ErrTaskNotFound)

	_, err = c.ResolveTask("gamma:T1")
	assert.ErrorIs(t, err, types.ErrProjectNotFound)
}

func TestResolveTaskCurrentProject(t *testing.T) {
	c := New(testRegistry(t), fixtureLoader(), "beta")

	for _, q := range []string{"T1", ".:T1"} {
		views, err := c.ResolveTask(q)
		require.NoError(t, err, q)
		require.Len(t, views, 1)
		assert.Equal(t, "beta", views[0].Project)
	}

	bare := New(testRegistry(t), fixtureLoader(), "")
	_, err := bare.ResolveTask("T1")
	assert.ErrorIs(t, err, types.ErrInvalidQuery)
}

func TestResolveTaskWildcard(t *testing.T) {
	c := New(testRegistry(t), fixtureLoader(), "")

	views, err := c.ResolveTask("*:T1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "alpha", views[0].Project)
	assert.Equal(t, "beta", views[1].Project)

	views, err = c.ResolveTask("*:T99")
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestResolveTaskWildcardSkipsUnreadable(t *testing.T) {
	loader := fixtureLoader()
	loader.sets["/hidden"] = taskSet(task("T1", types.StatusDone, time.Now()))
	c := New(hiddenRegistry(t), loader, "")

	views, err := c.ResolveTask("*:T1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "alpha", views[0].Project)
}

func TestResolveCrossDeps(t *testing.T) {
	loader := fixtureLoader()
	loader.sets["/hidden"] = taskSet(task("T1", types.StatusDone, time.Now()))
	c := New(hiddenRegistry(t), loader, "")

	got := c.ResolveCrossDeps([]string{
		"T1",        // local to alpha, exists
		"T9",        // local to alpha, missing
		"beta:T1",   // project unregistered in this registry
		"hidden:T1", // registered but no readable permission
		"bad:ref:x", // malformed
	}, "alpha")

	want := []DepStatus{
		{Ref: "T1", Status: DepResolved},
		{Ref: "T9", Status: DepNotFound},
		{Ref: "beta:T1", Status: DepNotFound},
		{Ref: "hidden:T1", Status: DepPermissionDenied},
		{Ref: "bad:ref:x", Status: DepNotFound},
	}
	assert.Equal(t, want, got)
}

func TestBuildGlobalGraph(t *testing.T) {
	c := New(testRegistry(t), fixtureLoader(), "")

	g, err := c.BuildGlobalGraph()
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 6)

	alphaT1 := NodeKey{Project: "alpha", ID: "T1"}
	alphaT2 := NodeKey{Project: "alpha", ID: "T2"}
	betaT1 := NodeKey{Project: "beta", ID: "T1"}
	betaT3 := NodeKey{Project: "beta", ID: "T3"}

	assert.Equal(t, []NodeKey{alphaT2}, g.Dependents[alphaT1])
	assert.Equal(t, []NodeKey{alphaT2}, g.Dependents[betaT1])
	assert.Equal(t, []NodeKey{betaT3}, g.Dependents[alphaT2])
	assert.Equal(t, []NodeKey{alphaT1, betaT1}, g.Dependencies[alphaT2])

	// Edges with unresolvable targets are omitted, not errors.
	alphaT3 := NodeKey{Project: "alpha", ID: "T3"}
	alphaT4 := NodeKey{Project: "alpha", ID: "T4"}
	assert.Empty(t, g.Dependencies[alphaT3])
	assert.Empty(t, g.Dependencies[alphaT4])
}

func TestBuildGlobalGraphRejectsDuplicateID(t *testing.T) {
	t0 := time.Now()
	loader := &fakeLoader{sets: map[string]*types.TaskSet{
		"/alpha": taskSet(
			task("T1", types.StatusPending, t0),
			task("T1", types.StatusDone, t0),
		),
		"/beta": taskSet(task("T1", types.StatusDone, t0)),
	}}
	c := New(testRegistry(t), loader, "")

	_, err := c.BuildGlobalGraph()
	assert.ErrorIs(t, err, types.ErrDuplicateID)
	assert.ErrorContains(t, err, "alpha")
}

func TestBuildGlobalGraphRejectsParentCycle(t *testing.T) {
	t0 := time.Now()
	t1 := task("T1", types.StatusPending, t0)
	t1.ParentID = "T2"
	t2 := task("T2", types.StatusPending, t0)
	t2.ParentID = "T1"
	loader := &fakeLoader{sets: map[string]*types.TaskSet{
		"/alpha": taskSet(t1, t2),
		"/beta":  taskSet(),
	}}
	c := New(testRegistry(t), loader, "")

	_, err := c.BuildGlobalGraph()
	assert.ErrorIs(t, err, types.ErrCycleDetected)

	_, err = c.CriticalPath()
	assert.ErrorIs(t, err, types.ErrCycleDetected)
}

func TestGlobalGraphCaching(t *testing.T) {
	loader := fixtureLoader()
	c := New(testRegistry(t), loader, "")

	g1, err := c.BuildGlobalGraph()
	require.NoError(t, err)

	// Remote writes do not invalidate the cache on their own.
	loader.sets["/beta"] = taskSet(task("T1", types.StatusDone, time.Now()))
	g2, err := c.BuildGlobalGraph()
	require.NoError(t, err)
	assert.Same(t, g1, g2)

	c.Invalidate()
	g3, err := c.BuildGlobalGraph()
	require.NoError(t, err)
	assert.NotSame(t, g1, g3)
	assert.Len(t, g3.Nodes, 5)
}

func TestCriticalPath(t *testing.T) {
	c := New(testRegistry(t), fixtureLoader(), "")

	cp, err := c.CriticalPath()
	require.NoError(t, err)
	assert.Equal(t, 2, cp.Length)
	want := []NodeKey{
		{Project: "alpha", ID: "T1"},
		{Project: "alpha", ID: "T2"},
		{Project: "beta", ID: "T3"},
	}
	assert.Equal(t, want, cp.Path)
}

func TestCriticalPathTieBreaksByEarliestRoot(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	loader := &fakeLoader{sets: map[string]*types.TaskSet{
		"/alpha": taskSet(
			task("T1", types.StatusDone, t0.Add(time.Hour)),
			task("T2", types.StatusPending, t0.Add(2*time.Hour), "T1"),
		),
		"/beta": taskSet(
			task("T1", types.StatusDone, t0),
			task("T2", types.StatusPending, t0.Add(2*time.Hour), "T1"),
		),
	}}
	c := New(testRegistry(t), loader, "")

	cp, err := c.CriticalPath()
	require.NoError(t, err)
	assert.Equal(t, 1, cp.Length)
	assert.Equal(t, NodeKey{Project: "beta", ID: "T1"}, cp.Path[0])
}

func TestCriticalPathCycle(t *testing.T) {
	t0 := time.Now()
	loader := &fakeLoader{sets: map[string]*types.TaskSet{
		"/alpha": taskSet(task("T1", types.StatusPending, t0, "beta:T1")),
		"/beta":  taskSet(task("T1", types.StatusPending, t0, "alpha:T1")),
	}}
	c := New(testRegistry(t), loader, "")

	_, err := c.CriticalPath()
	assert.ErrorIs(t, err, types.ErrCycleDetected)
}

func TestCriticalPathEmpty(t *testing.T) {
	loader := &fakeLoader{sets: map[string]*types.TaskSet{
		"/alpha": taskSet(),
		"/beta":  taskSet(),
	}}
	c := New(testRegistry(t), loader, "")

	cp, err := c.CriticalPath()
	require.NoError(t, err)
	assert.Equal(t, 0, cp.Length)
	assert.Empty(t, cp.Path)
}

func TestBlockingAnalysis(t *testing.T) {
	c := New(testRegistry(t), fixtureLoader(), "")

	report, err := c.BlockingAnalysis(NodeKey{Project: "alpha", ID: "T1"})
	require.NoError(t, err)
	want := []NodeKey{
		{Project: "alpha", ID: "T2"},
		{Project: "beta", ID: "T3"},
	}
	assert.Equal(t, want, report.Blocking)

	report, err = c.BlockingAnalysis(NodeKey{Project: "beta", ID: "T3"})
	require.NoError(t, err)
	assert.Empty(t, report.Blocking)

	_, err = c.BlockingAnalysis(NodeKey{Project: "alpha", ID: "T99"})
	assert.ErrorIs(t, err, types.ErrTaskNotFound)
}

func TestOrphanDetection(t *testing.T) {
	c := New(testRegistry(t), fixtureLoader(), "")

	orphans, err := c.OrphanDetection()
	require.NoError(t, err)
	want := []Orphan{
		{Project: "alpha", TaskID: "T3", Ref: "gamma:T9", Reason: OrphanProjectNotRegistered},
		{Project: "alpha", TaskID: "T4", Ref: "T9", Reason: OrphanTaskNotFound},
	}
	assert.Equal(t, want, orphans)
}
