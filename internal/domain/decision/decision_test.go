package decision

import (
	"context"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/conditions"
)

// stubProvider serves one fixed snapshot to every checker under test.
type stubProvider struct {
	snap *capability.Snapshot
}

func (s stubProvider) Snapshot(context.Context, string) (*capability.Snapshot, error) {
	return s.snap, nil
}

func snapshotOf(t capability.Type, entries ...capability.Entry) stubProvider {
	return stubProvider{snap: &capability.Snapshot{
		PluginID: "test-plugin",
		Entries:  map[capability.Type][]capability.Entry{t: entries},
	}}
}

func emptySnapshot() stubProvider {
	return stubProvider{snap: &capability.Snapshot{PluginID: "test-plugin"}}
}

func entryOf(id int64, row capability.ConcreteRow) capability.Entry {
	return capability.Entry{ID: id, Row: row, Active: true, Source: capability.SourceDirect}
}

var always = conditions.Always{}
