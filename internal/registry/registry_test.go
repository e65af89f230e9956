package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/lattice/pkg/types"
)

var syncTime = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func TestRegisterAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")

	r, err := Load(path)
	require.NoError(t, err)

	entry, err := r.Register(filepath.Join(dir, "proj-a"), "alpha", types.PermissionRead, syncTime)
	require.NoError(t, err)
	assert.Equal(t, "alpha", entry.Name)
	assert.Len(t, entry.Hash, 12)
	assert.True(t, filepath.IsAbs(entry.Path))

	require.NoError(t, r.Save())

	// Reload and verify persistence.
	r2, err := Load(path)
	require.NoError(t, err)
	got, ok := r2.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, entry.Hash, got.Hash)
	assert.Equal(t, types.PermissionRead, got.Permission)
}

func TestRegisterDuplicates(t *testing.T) {
	dir := t.TempDir()
	r, err := Load(filepath.Join(dir, "registry.yaml"))
	require.NoError(t, err)

	projPath := filepath.Join(dir, "proj-a")
	_, err = r.Register(projPath, "alpha", types.PermissionWrite, syncTime)
	require.NoError(t, err)

	t.Run("same name rejected", func(t *testing.T) {
		_, err := r.Register(filepath.Join(dir, "proj-b"), "alpha", types.PermissionRead, syncTime)
		assert.ErrorIs(t, err, types.ErrNameTaken)
	})

	t.Run("same path under different name rejected", func(t *testing.T) {
		_, err := r.Register(projPath, "beta", types.PermissionRead, syncTime)
		assert.ErrorIs(t, err, types.ErrPathRegistered)
	})

	t.Run("unclean spelling of same path rejected", func(t *testing.T) {
		_, err := r.Register(projPath+string(filepath.Separator)+".", "gamma", types.PermissionRead, syncTime)
		assert.ErrorIs(t, err, types.ErrPathRegistered)
	})

	t.Run("invalid permission rejected", func(t *testing.T) {
		_, err := r.Register(filepath.Join(dir, "proj-c"), "delta", types.Permission("admin"), syncTime)
		assert.ErrorIs(t, err, types.ErrInvalidPermission)
	})
}

func TestUnregisterAndList(t *testing.T) {
	dir := t.TempDir()
	r, err := Load(filepath.Join(dir, "registry.yaml"))
	require.NoError(t, err)

	_, err = r.Register(filepath.Join(dir, "b"), "bravo", types.PermissionRead, syncTime)
	require.NoError(t, err)
	_, err = r.Register(filepath.Join(dir, "a"), "alpha", types.PermissionRead, syncTime)
	require.NoError(t, err)

	names := []string{}
	for _, e := range r.List() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"alpha", "bravo"}, names, "list is sorted by name")

	require.NoError(t, r.Unregister("alpha"))
	assert.ErrorIs(t, r.Unregister("alpha"), types.ErrProjectNotFound)
	assert.Len(t, r.List(), 1)
}

func TestSyncRefreshesCache(t *testing.T) {
	dir := t.TempDir()
	r, err := Load(filepath.Join(dir, "registry.yaml"))
	require.NoError(t, err)

	_, err = r.Register(filepath.Join(dir, "a"), "alpha", types.PermissionRead, syncTime)
	require.NoError(t, err)

	later := syncTime.Add(2 * time.Hour)
	require.NoError(t, r.Sync("alpha", 42, later))

	got, ok := r.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, 42, got.TaskCount)
	assert.Equal(t, later, got.LastSynced)

	assert.ErrorIs(t, r.Sync("ghost", 1, later), types.ErrProjectNotFound)
}

func TestHashPathStable(t *testing.T) {
	h1 := HashPath("/home/user/project")
	h2 := HashPath("/home/user/project/")
	h3 := HashPath("/home/user/other")

	assert.Equal(t, h1, h2, "cleaning normalizes trailing separators")
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 12)
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Query
		wantErr bool
	}{
		{name: "implicit local", raw: "T12", want: Query{Kind: QueryLocal, TaskID: "T12"}},
		{name: "current placeholder", raw: ".:T12", want: Query{Kind: QueryCurrent, TaskID: "T12"}},
		{name: "wildcard", raw: "*:T12", want: Query{Kind: QueryWildcard, TaskID: "T12"}},
		{name: "named", raw: "backend:T12", want: Query{Kind: QueryNamed, Project: "backend", TaskID: "T12"}},
		{name: "bad task id", raw: "backend:12", wantErr: true},
		{name: "bare bad id", raw: "nope", wantErr: true},
		{name: "empty project", raw: ":T12", wantErr: true},
		{name: "extra colon", raw: "a:b:T12", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "wildcard bad id", raw: "*:x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuery(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidQuery,
					"syntax violations are ErrInvalidQuery, never a resolution error")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
