package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowAttributes_ExcludesID(t *testing.T) {
	row := &NetworkRow{ID: 42, Access: true, Hosts: []string{"api.example.com"}}

	attrs, err := RowAttributes(row)
	require.NoError(t, err)

	assert.NotContains(t, attrs, "id")
	assert.Contains(t, attrs, "hosts")
}

func TestRowNaturalKey_IgnoresID(t *testing.T) {
	a, err := RowNaturalKey(&FileRow{ID: 1, BaseDir: "/var/data", Read: true})
	require.NoError(t, err)
	b, err := RowNaturalKey(&FileRow{ID: 99, BaseDir: "/var/data", Read: true})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestRowFromAttributes_Roundtrip(t *testing.T) {
	original := &DBRow{
		Table:           "orders",
		Permissions:     map[string]bool{"select": true, "insert": false},
		ReadableColumns: []string{"id", "total"},
	}
	attrs, err := RowAttributes(original)
	require.NoError(t, err)

	hydrated, err := RowFromAttributes(TypeDB, 7, attrs)
	require.NoError(t, err)

	dbRow, ok := hydrated.(*DBRow)
	require.True(t, ok)
	assert.Equal(t, int64(7), dbRow.ID)
	assert.Equal(t, "orders", dbRow.Table)
	assert.True(t, dbRow.ActionEnabled("select"))
	assert.False(t, dbRow.ActionEnabled("insert"))
	assert.Equal(t, []string{"id", "total"}, dbRow.ReadableColumns)
}

func TestNewRowForType_RouteHasNoRow(t *testing.T) {
	_, err := NewRowForType(TypeRoute)
	assert.Error(t, err)
}

func TestDBRow_ActionEnabled_LegacyFlags(t *testing.T) {
	// Rows persisted before the permissions map existed carry flat flags.
	legacy := &DBRow{Select: true, Truncate: false}
	assert.True(t, legacy.ActionEnabled("select"))
	assert.False(t, legacy.ActionEnabled("truncate"))
	assert.False(t, legacy.ActionEnabled("unknown"))

	// The map wins when it names the action.
	mapped := &DBRow{Select: true, Permissions: map[string]bool{"select": false}}
	assert.False(t, mapped.ActionEnabled("select"))
}

func TestEnabledActions(t *testing.T) {
	db := &DBRow{Permissions: map[string]bool{"select": true, "delete": true}}
	assert.Equal(t, []string{"delete", "select"}, EnabledActions(db))

	file := &FileRow{Read: true, List: true}
	assert.Equal(t, []string{"list", "read"}, EnabledActions(file))

	assert.Empty(t, EnabledActions(&NetworkRow{}))
	assert.Equal(t, []string{"access"}, EnabledActions(&NetworkRow{Access: true}))
}
