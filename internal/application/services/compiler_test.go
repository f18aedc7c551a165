package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/infrastructure/persistence/memory"
)

// fixedClock pins time-window evaluation in tests.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func mustUpsert(t *testing.T, repo *memory.CapabilityRepository, pluginID string, row capability.ConcreteRow, meta capability.AssignmentMeta) capability.UpsertResult {
	t.Helper()
	key, err := capability.RowNaturalKey(row)
	require.NoError(t, err)
	res, err := repo.UpsertForPlugin(context.Background(), pluginID, capability.UpsertDTO{
		Type:       row.RowType(),
		NaturalKey: key,
		Row:        row,
	}, meta)
	require.NoError(t, err)
	return res
}

func mustUpsertTag(t *testing.T, repo *memory.CapabilityRepository, tagID int64, row capability.ConcreteRow, meta capability.AssignmentMeta) capability.UpsertResult {
	t.Helper()
	key, err := capability.RowNaturalKey(row)
	require.NoError(t, err)
	res, err := repo.UpsertForTag(tagID, capability.UpsertDTO{
		Type:       row.RowType(),
		NaturalKey: key,
		Row:        row,
	}, meta)
	require.NoError(t, err)
	return res
}

func TestCompiler_MergesDirectAndTag(t *testing.T) {
	repo := memory.NewCapabilityRepository()
	ctx := context.Background()

	mustUpsert(t, repo, "plugin-a", &capability.FileRow{BaseDir: "/var/a", Read: true}, capability.AssignmentMeta{})

	tag := repo.CreateTag("trusted")
	repo.AddPluginToTag("plugin-a", tag.ID)
	mustUpsertTag(t, repo, tag.ID, &capability.NetworkRow{Access: true, Hosts: []string{"api.example.com"}}, capability.AssignmentMeta{})

	compiler := NewCompiler(repo, fixedClock{now: time.Now()})
	snap, err := compiler.Compile(ctx, "plugin-a")
	require.NoError(t, err)

	assert.Len(t, snap.ForType(capability.TypeFile), 1)
	assert.Len(t, snap.ForType(capability.TypeNetwork), 1)
	assert.Equal(t, capability.SourceDirect, snap.ForType(capability.TypeFile)[0].Source)
	assert.Equal(t, capability.SourceTag, snap.ForType(capability.TypeNetwork)[0].Source)
	assert.NotEmpty(t, snap.Revision)
}

func TestCompiler_DirectWinsOverTag(t *testing.T) {
	repo := memory.NewCapabilityRepository()
	ctx := context.Background()
	row := &capability.NetworkRow{Access: true, Hosts: []string{"api.example.com"}}

	res := mustUpsert(t, repo, "plugin-a", row, capability.AssignmentMeta{})

	tag := repo.CreateTag("trusted")
	repo.AddPluginToTag("plugin-a", tag.ID)
	mustUpsertTag(t, repo, tag.ID, row, capability.AssignmentMeta{})

	compiler := NewCompiler(repo, fixedClock{now: time.Now()})
	snap, err := compiler.Compile(ctx, "plugin-a")
	require.NoError(t, err)

	entries := snap.ForType(capability.TypeNetwork)
	require.Len(t, entries, 1, "same concrete row appears once")
	assert.Equal(t, res.ConcreteID, entries[0].ID)
	assert.Equal(t, capability.SourceDirect, entries[0].Source)
}

func TestCompiler_InactiveDirectShadowsActiveTag(t *testing.T) {
	// The direct grant wins the merge before active filtering, so
	// deactivating it removes the capability even though the tag grant for
	// the same row is still active.
	repo := memory.NewCapabilityRepository()
	ctx := context.Background()
	row := &capability.NetworkRow{Access: true, Hosts: []string{"api.example.com"}}

	res := mustUpsert(t, repo, "plugin-a", row, capability.AssignmentMeta{})
	require.NoError(t, repo.SetDirectActive("plugin-a", capability.TypeNetwork, res.ConcreteID, false))

	tag := repo.CreateTag("trusted")
	repo.AddPluginToTag("plugin-a", tag.ID)
	mustUpsertTag(t, repo, tag.ID, row, capability.AssignmentMeta{})

	compiler := NewCompiler(repo, fixedClock{now: time.Now()})
	snap, err := compiler.Compile(ctx, "plugin-a")
	require.NoError(t, err)

	assert.Empty(t, snap.ForType(capability.TypeNetwork))
}

func TestCompiler_WindowExpiredFiltered(t *testing.T) {
	repo := memory.NewCapabilityRepository()
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time { return created })

	res := mustUpsert(t, repo, "plugin-a", &capability.FileRow{BaseDir: "/var/a", Read: true}, capability.AssignmentMeta{
		Window: &capability.TimeWindow{Limited: true, Type: capability.WindowDuration, Value: "72h"},
	})

	compiler := NewCompiler(repo, fixedClock{now: created.Add(71 * time.Hour)})
	snap, err := compiler.Compile(ctx, "plugin-a")
	require.NoError(t, err)
	require.Len(t, snap.ForType(capability.TypeFile), 1)
	assert.Equal(t, res.ConcreteID, snap.ForType(capability.TypeFile)[0].ID)

	expired := NewCompiler(repo, fixedClock{now: created.Add(73 * time.Hour)})
	snap, err = expired.Compile(ctx, "plugin-a")
	require.NoError(t, err)
	assert.Empty(t, snap.ForType(capability.TypeFile))
}

func TestCompiler_DanglingRowDropped(t *testing.T) {
	repo := memory.NewCapabilityRepository()
	ctx := context.Background()

	res := mustUpsert(t, repo, "plugin-a", &capability.FileRow{BaseDir: "/var/a", Read: true}, capability.AssignmentMeta{})
	repo.DeleteRow(capability.TypeFile, res.ConcreteID)

	compiler := NewCompiler(repo, fixedClock{now: time.Now()})
	snap, err := compiler.Compile(ctx, "plugin-a")
	require.NoError(t, err)

	assert.Empty(t, snap.ForType(capability.TypeFile))
}

func TestCompiler_EntriesSortedByID(t *testing.T) {
	repo := memory.NewCapabilityRepository()
	ctx := context.Background()

	mustUpsert(t, repo, "plugin-a", &capability.NetworkRow{Access: true, Hosts: []string{"b.example.com"}}, capability.AssignmentMeta{})
	mustUpsert(t, repo, "plugin-a", &capability.NetworkRow{Access: true, Hosts: []string{"a.example.com"}}, capability.AssignmentMeta{})
	mustUpsert(t, repo, "plugin-a", &capability.NetworkRow{Access: true, Hosts: []string{"c.example.com"}}, capability.AssignmentMeta{})

	compiler := NewCompiler(repo, fixedClock{now: time.Now()})
	snap, err := compiler.Compile(ctx, "plugin-a")
	require.NoError(t, err)

	entries := snap.ForType(capability.TypeNetwork)
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].ID, entries[i].ID)
	}
}

func TestCompiler_RevisionTracksContent(t *testing.T) {
	repo := memory.NewCapabilityRepository()
	ctx := context.Background()
	compiler := NewCompiler(repo, fixedClock{now: time.Now()})

	mustUpsert(t, repo, "plugin-a", &capability.FileRow{BaseDir: "/var/a", Read: true}, capability.AssignmentMeta{})

	first, err := compiler.Compile(ctx, "plugin-a")
	require.NoError(t, err)
	second, err := compiler.Compile(ctx, "plugin-a")
	require.NoError(t, err)
	assert.Equal(t, first.Revision, second.Revision, "unchanged grants keep the revision")

	mustUpsert(t, repo, "plugin-a", &capability.NetworkRow{Access: true, Hosts: []string{"api.example.com"}}, capability.AssignmentMeta{})
	third, err := compiler.Compile(ctx, "plugin-a")
	require.NoError(t, err)
	assert.NotEqual(t, first.Revision, third.Revision, "new grant changes the revision")
}
