package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
)

func openTestRepo(t *testing.T) *CapabilityRepository {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "plugwarden.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewCapabilityRepository(store)
}

func fileDTO(t *testing.T, row *capability.FileRow) capability.UpsertDTO {
	t.Helper()
	key, err := capability.RowNaturalKey(row)
	require.NoError(t, err)
	return capability.UpsertDTO{Type: capability.TypeFile, NaturalKey: key, Row: row}
}

func TestOpen_IdempotentSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugwarden.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening an existing database applies the schema without error.
	store, err = Open(path)
	require.NoError(t, err)
	assert.NotNil(t, store.DB())
	require.NoError(t, store.Close())
}

func TestUpsertForPlugin_CreatesThenReuses(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	dto := fileDTO(t, &capability.FileRow{BaseDir: "/var/logs", Read: true, List: true})

	first, err := repo.UpsertForPlugin(ctx, "plugin-a", dto, capability.AssignmentMeta{})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.True(t, first.Assigned)
	assert.NotZero(t, first.ConcreteID)

	second, err := repo.UpsertForPlugin(ctx, "plugin-a", dto, capability.AssignmentMeta{})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.False(t, second.Assigned)
	assert.Equal(t, first.ConcreteID, second.ConcreteID)
	assert.Equal(t, first.PermissionID, second.PermissionID)

	// A second plugin links to the same row.
	third, err := repo.UpsertForPlugin(ctx, "plugin-b", dto, capability.AssignmentMeta{})
	require.NoError(t, err)
	assert.False(t, third.Created)
	assert.True(t, third.Assigned)
	assert.Equal(t, first.ConcreteID, third.ConcreteID)
}

func TestDirectAssignments_MetadataRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	meta := capability.AssignmentMeta{
		Constraints:   map[string]any{"guard": "admin", "required": true},
		Window:        &capability.TimeWindow{Limited: true, Type: capability.WindowDuration, Value: "72h"},
		Audit:         &capability.AuditMeta{RedactFields: []string{"Path"}, Tags: []string{"sensitive"}},
		Justification: "log shipping",
	}
	_, err := repo.UpsertForPlugin(ctx, "plugin-a",
		fileDTO(t, &capability.FileRow{BaseDir: "/var/logs", Read: true}), meta)
	require.NoError(t, err)

	direct, err := repo.DirectAssignments(ctx, "plugin-a")
	require.NoError(t, err)
	require.Len(t, direct, 1)

	a := direct[0]
	assert.Equal(t, capability.TypeFile, a.Type)
	assert.Equal(t, capability.SourceDirect, a.Source)
	assert.True(t, a.Active)
	assert.False(t, a.CreatedAt.IsZero())

	require.NotNil(t, a.Window)
	assert.Equal(t, capability.WindowDuration, a.Window.Type)
	assert.Equal(t, "72h", a.Window.Value)

	assert.Equal(t, "admin", a.Constraints["guard"])
	assert.Equal(t, true, a.Constraints["required"])

	require.NotNil(t, a.Audit)
	assert.Equal(t, []string{"Path"}, a.Audit.RedactFields)
	assert.Equal(t, []string{"sensitive"}, a.Audit.Tags)
}

func TestDirectAssignments_NullMetadataColumns(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	_, err := repo.UpsertForPlugin(ctx, "plugin-a",
		fileDTO(t, &capability.FileRow{BaseDir: "/var/logs", Read: true}),
		capability.AssignmentMeta{})
	require.NoError(t, err)

	direct, err := repo.DirectAssignments(ctx, "plugin-a")
	require.NoError(t, err)
	require.Len(t, direct, 1)
	assert.Nil(t, direct[0].Window)
	assert.Nil(t, direct[0].Constraints)
	assert.Nil(t, direct[0].Audit)
}

func TestConcreteByType_HydratesStoredAttributes(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	row := &capability.NetworkRow{
		Access:  true,
		Hosts:   []string{"*.stripe.com"},
		Methods: []string{"GET", "POST"},
		Ports:   []int{443},
	}
	key, err := capability.RowNaturalKey(row)
	require.NoError(t, err)
	res, err := repo.UpsertForPlugin(ctx, "plugin-a",
		capability.UpsertDTO{Type: capability.TypeNetwork, NaturalKey: key, Row: row},
		capability.AssignmentMeta{})
	require.NoError(t, err)

	hydrated, err := repo.ConcreteByType(ctx, capability.TypeNetwork, []int64{res.ConcreteID, 9999})
	require.NoError(t, err)
	require.Len(t, hydrated, 1)

	stored, ok := hydrated[res.ConcreteID].(*capability.NetworkRow)
	require.True(t, ok)
	assert.Equal(t, res.ConcreteID, stored.ID)
	assert.Equal(t, []string{"*.stripe.com"}, stored.Hosts)
	assert.Equal(t, []int{443}, stored.Ports)

	empty, err := repo.ConcreteByType(ctx, capability.TypeNetwork, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTagAssignments(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	db := repo.store.DB()

	res, err := repo.UpsertForPlugin(ctx, "seed-plugin",
		fileDTO(t, &capability.FileRow{BaseDir: "/var/shared", Read: true}),
		capability.AssignmentMeta{})
	require.NoError(t, err)

	sqlRes, err := db.Exec(`INSERT INTO permission_tags (name) VALUES ('trusted')`)
	require.NoError(t, err)
	tagID, err := sqlRes.LastInsertId()
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tag_members (tag_id, plugin_id) VALUES (?, 'plugin-a')`, tagID)
	require.NoError(t, err)
	_, err = db.Exec(`
		INSERT INTO tag_permissions (tag_id, row_id, type, active, constraints, created_at)
		VALUES (?, ?, 'file', 1, '{"required":true}', ?)`,
		tagID, res.ConcreteID, formatTime(repo.now()))
	require.NoError(t, err)

	grants, err := repo.TagAssignments(ctx, "plugin-a")
	require.NoError(t, err)
	require.Len(t, grants, 1)

	a := grants[0]
	assert.Equal(t, capability.SourceTag, a.Source)
	assert.Equal(t, capability.TypeFile, a.Type)
	assert.Equal(t, res.ConcreteID, a.ConcreteID)
	assert.Equal(t, true, a.Constraints["required"])
	require.NotNil(t, a.Tag)
	assert.Equal(t, tagID, a.Tag.ID)
	assert.Equal(t, "trusted", a.Tag.Name)

	grants, err = repo.TagAssignments(ctx, "plugin-b")
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestDeclareRoute_ConflictFree(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	approval, created, err := repo.DeclareRoute(ctx, "plugin-a", "orders.export", capability.AssignmentMeta{})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, approval)
	assert.Equal(t, capability.RoutePending, approval.Status)
	assert.Equal(t, "orders.export", approval.RouteID)

	again, created, err := repo.DeclareRoute(ctx, "plugin-a", "orders.export", capability.AssignmentMeta{})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, approval.ID, again.ID)
}

func TestSetRouteStatus(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	err := repo.SetRouteStatus(ctx, "plugin-a", "orders.export", capability.RouteApproved, "admin")
	assert.ErrorContains(t, err, "not declared")

	_, _, err = repo.DeclareRoute(ctx, "plugin-a", "orders.export", capability.AssignmentMeta{})
	require.NoError(t, err)
	require.NoError(t, repo.SetRouteStatus(ctx, "plugin-a", "orders.export", capability.RouteApproved, "admin"))

	approval, err := repo.RoutePermission(ctx, "plugin-a", "orders.export")
	require.NoError(t, err)
	require.NotNil(t, approval)
	assert.Equal(t, capability.RouteApproved, approval.Status)
	assert.Equal(t, "admin", approval.Guard)
}

func TestRoutePermission_NilForUndeclared(t *testing.T) {
	repo := openTestRepo(t)

	approval, err := repo.RoutePermission(context.Background(), "plugin-a", "orders.export")
	require.NoError(t, err)
	assert.Nil(t, approval)
}
