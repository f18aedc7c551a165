package capability

import (
	"encoding/json"
	"fmt"
	"sort"
)

// NewRowForType returns an empty concrete row of the given type. Route has
// no row shape; asking for one is an error.
func NewRowForType(t Type) (ConcreteRow, error) {
	switch t {
	case TypeDB:
		return &DBRow{}, nil
	case TypeFile:
		return &FileRow{}, nil
	case TypeNotification:
		return &NotificationRow{}, nil
	case TypeModule:
		return &ModuleRow{}, nil
	case TypeNetwork:
		return &NetworkRow{}, nil
	case TypeCodec:
		return &CodecRow{}, nil
	}
	return nil, fmt.Errorf("no concrete row shape for capability type %q", t)
}

// RowAttributes projects a concrete row onto the attribute map that feeds
// NaturalKey and persistence. The row id is positional, not content, and is
// excluded.
func RowAttributes(r ConcreteRow) (map[string]any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s row: %w", r.RowType(), err)
	}
	var attrs map[string]any
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("decode %s row attributes: %w", r.RowType(), err)
	}
	delete(attrs, "id")
	return attrs, nil
}

// RowFromAttributes hydrates a typed concrete row from its persisted
// attribute map.
func RowFromAttributes(t Type, id int64, attrs map[string]any) (ConcreteRow, error) {
	row, err := NewRowForType(t)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("encode %s attributes: %w", t, err)
	}
	if err := json.Unmarshal(raw, row); err != nil {
		return nil, fmt.Errorf("hydrate %s row: %w", t, err)
	}
	setRowID(row, id)
	return row, nil
}

// RowNaturalKey computes the natural key for a fully-built row. Ingestors
// and ad-hoc upserts share this single normalization path.
func RowNaturalKey(r ConcreteRow) (string, error) {
	attrs, err := RowAttributes(r)
	if err != nil {
		return "", err
	}
	return NaturalKey(r.RowType(), attrs)
}

// EnabledActions derives the action names a row currently grants, used by
// the listing projection.
func EnabledActions(r ConcreteRow) []string {
	var actions []string
	switch row := r.(type) {
	case *DBRow:
		for _, a := range []string{"select", "insert", "update", "delete", "truncate", "grouped_queries"} {
			if row.ActionEnabled(a) {
				actions = append(actions, a)
			}
		}
	case *FileRow:
		for _, a := range []string{"read", "write", "delete", "list"} {
			if row.ActionEnabled(a) {
				actions = append(actions, a)
			}
		}
	case *NotificationRow:
		if row.Send {
			actions = append(actions, "send")
		}
	case *ModuleRow:
		if row.Call {
			actions = append(actions, "call")
		}
	case *NetworkRow:
		if row.Access {
			actions = append(actions, "access")
		}
	case *CodecRow:
		if row.Invoke {
			actions = append(actions, "invoke")
		}
	}
	sort.Strings(actions)
	return actions
}

func setRowID(r ConcreteRow, id int64) {
	switch row := r.(type) {
	case *DBRow:
		row.ID = id
	case *FileRow:
		row.ID = id
	case *NotificationRow:
		row.ID = id
	case *ModuleRow:
		row.ID = id
	case *NetworkRow:
		row.ID = id
	case *CodecRow:
		row.ID = id
	}
}
