package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/repositories"
)

// Ensure interface compliance
var _ repositories.CapabilityRepository = (*CapabilityRepository)(nil)

// CapabilityRepository implements the repository port on the SQLite store.
type CapabilityRepository struct {
	store *Store
	now   func() time.Time
}

// NewCapabilityRepository creates a repository over an opened store.
func NewCapabilityRepository(store *Store) *CapabilityRepository {
	return &CapabilityRepository{store: store, now: time.Now}
}

// DirectAssignments returns the plugin's direct grants.
func (r *CapabilityRepository) DirectAssignments(ctx context.Context, pluginID string) ([]capability.Assignment, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, row_id, type, active, window_json, constraints, audit_json, created_at
		FROM plugin_permissions
		WHERE plugin_id = ?
		ORDER BY id`, pluginID)
	if err != nil {
		return nil, fmt.Errorf("query direct assignments: %w", err)
	}
	defer rows.Close()

	var out []capability.Assignment
	for rows.Next() {
		var (
			a           capability.Assignment
			t           string
			active      int
			window      sql.NullString
			constraints sql.NullString
			auditMeta   sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&a.ID, &a.ConcreteID, &t, &active, &window, &constraints, &auditMeta, &createdAt); err != nil {
			return nil, fmt.Errorf("scan direct assignment: %w", err)
		}
		a.Type = capability.Type(t)
		a.Source = capability.SourceDirect
		a.Active = active != 0
		a.CreatedAt = parseTime(createdAt)
		if err := decodeJSON(window, &a.Window); err != nil {
			return nil, err
		}
		if err := decodeJSON(constraints, &a.Constraints); err != nil {
			return nil, err
		}
		if err := decodeJSON(auditMeta, &a.Audit); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// TagAssignments returns grants the plugin inherits through tag
// membership.
func (r *CapabilityRepository) TagAssignments(ctx context.Context, pluginID string) ([]capability.Assignment, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT tp.id, tp.row_id, tp.type, tp.active, tp.constraints, tp.audit_json, tp.created_at,
		       t.id, t.name
		FROM tag_permissions tp
		JOIN permission_tags t ON t.id = tp.tag_id
		JOIN tag_members m ON m.tag_id = tp.tag_id
		WHERE m.plugin_id = ?
		ORDER BY tp.id`, pluginID)
	if err != nil {
		return nil, fmt.Errorf("query tag assignments: %w", err)
	}
	defer rows.Close()

	var out []capability.Assignment
	for rows.Next() {
		var (
			a           capability.Assignment
			t           string
			active      int
			constraints sql.NullString
			auditMeta   sql.NullString
			createdAt   string
			tag         capability.TagRef
		)
		if err := rows.Scan(&a.ID, &a.ConcreteID, &t, &active, &constraints, &auditMeta, &createdAt, &tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("scan tag assignment: %w", err)
		}
		a.Type = capability.Type(t)
		a.Source = capability.SourceTag
		a.Active = active != 0
		a.CreatedAt = parseTime(createdAt)
		a.Tag = &tag
		if err := decodeJSON(constraints, &a.Constraints); err != nil {
			return nil, err
		}
		if err := decodeJSON(auditMeta, &a.Audit); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ConcreteByType batch-hydrates rows of one type by id.
func (r *CapabilityRepository) ConcreteByType(ctx context.Context, t capability.Type, ids []int64) (map[int64]capability.ConcreteRow, error) {
	out := make(map[int64]capability.ConcreteRow, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, string(t))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := r.store.db.QueryContext(ctx,
		`SELECT id, attributes FROM permission_rows WHERE type = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s rows: %w", t, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    int64
			attrs string
		)
		if err := rows.Scan(&id, &attrs); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", t, err)
		}
		var attrMap map[string]any
		if err := json.Unmarshal([]byte(attrs), &attrMap); err != nil {
			return nil, fmt.Errorf("decode %s row %d attributes: %w", t, id, err)
		}
		row, err := capability.RowFromAttributes(t, id, attrMap)
		if err != nil {
			return nil, err
		}
		out[id] = row
	}
	return out, rows.Err()
}

// UpsertForPlugin finds or creates the concrete row by natural key, then
// ensures the direct assignment, all in one transaction.
func (r *CapabilityRepository) UpsertForPlugin(ctx context.Context, pluginID string, dto capability.UpsertDTO, meta capability.AssignmentMeta) (capability.UpsertResult, error) {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return capability.UpsertResult{}, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	result := capability.UpsertResult{
		PermissionType: dto.Type,
		ConcreteType:   dto.Type,
	}

	var rowID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM permission_rows WHERE type = ? AND natural_key = ?`,
		string(dto.Type), dto.NaturalKey).Scan(&rowID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		attrs, attrErr := capability.RowAttributes(dto.Row)
		if attrErr != nil {
			return capability.UpsertResult{}, attrErr
		}
		encoded, attrErr := json.Marshal(attrs)
		if attrErr != nil {
			return capability.UpsertResult{}, fmt.Errorf("encode %s attributes: %w", dto.Type, attrErr)
		}
		res, insErr := tx.ExecContext(ctx,
			`INSERT INTO permission_rows (type, natural_key, attributes, created_at) VALUES (?, ?, ?, ?)`,
			string(dto.Type), dto.NaturalKey, string(encoded), formatTime(r.now()))
		if insErr != nil {
			return capability.UpsertResult{}, fmt.Errorf("insert %s row: %w", dto.Type, insErr)
		}
		rowID, insErr = res.LastInsertId()
		if insErr != nil {
			return capability.UpsertResult{}, insErr
		}
		result.Created = true
	case err != nil:
		return capability.UpsertResult{}, fmt.Errorf("find row by natural key: %w", err)
	}
	result.ConcreteID = rowID

	var assignmentID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM plugin_permissions WHERE plugin_id = ? AND type = ? AND row_id = ?`,
		pluginID, string(dto.Type), rowID).Scan(&assignmentID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		window, encErr := encodeJSON(meta.Window)
		if encErr != nil {
			return capability.UpsertResult{}, encErr
		}
		constraints, encErr := encodeJSON(meta.EffectiveConstraints())
		if encErr != nil {
			return capability.UpsertResult{}, encErr
		}
		auditMeta, encErr := encodeJSON(meta.Audit)
		if encErr != nil {
			return capability.UpsertResult{}, encErr
		}
		res, insErr := tx.ExecContext(ctx, `
			INSERT INTO plugin_permissions (plugin_id, row_id, type, active, window_json, constraints, audit_json, justification, created_at)
			VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?)`,
			pluginID, rowID, string(dto.Type), window, constraints, auditMeta, meta.Justification, formatTime(r.now()))
		if insErr != nil {
			return capability.UpsertResult{}, fmt.Errorf("insert assignment: %w", insErr)
		}
		assignmentID, insErr = res.LastInsertId()
		if insErr != nil {
			return capability.UpsertResult{}, insErr
		}
		result.Assigned = true
	case err != nil:
		return capability.UpsertResult{}, fmt.Errorf("find assignment: %w", err)
	}
	result.PermissionID = assignmentID

	if err := tx.Commit(); err != nil {
		return capability.UpsertResult{}, fmt.Errorf("commit upsert: %w", err)
	}
	return result, nil
}

// RoutePermission returns the approval state for one declared route.
func (r *CapabilityRepository) RoutePermission(ctx context.Context, pluginID, routeID string) (*capability.RouteApproval, error) {
	var approval capability.RouteApproval
	err := r.store.db.QueryRowContext(ctx,
		`SELECT id, route_id, status, guard FROM route_permissions WHERE plugin_id = ? AND route_id = ?`,
		pluginID, routeID).Scan(&approval.ID, &approval.RouteID, &approval.Status, &approval.Guard)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query route permission: %w", err)
	}
	return &approval, nil
}

// DeclareRoute records a pending approval for the route if none exists.
func (r *CapabilityRepository) DeclareRoute(ctx context.Context, pluginID, routeID string, _ capability.AssignmentMeta) (*capability.RouteApproval, bool, error) {
	res, err := r.store.db.ExecContext(ctx, `
		INSERT INTO route_permissions (plugin_id, route_id, status, guard, created_at)
		VALUES (?, ?, 'pending', '', ?)
		ON CONFLICT(plugin_id, route_id) DO NOTHING`,
		pluginID, routeID, formatTime(r.now()))
	if err != nil {
		return nil, false, fmt.Errorf("declare route: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	approval, err := r.RoutePermission(ctx, pluginID, routeID)
	if err != nil {
		return nil, false, err
	}
	return approval, inserted > 0, nil
}

// SetRouteStatus resolves a declared route's approval, optionally locking
// a guard. Host-side administration; the engine only reads approvals.
func (r *CapabilityRepository) SetRouteStatus(ctx context.Context, pluginID, routeID, status, guard string) error {
	res, err := r.store.db.ExecContext(ctx,
		`UPDATE route_permissions SET status = ?, guard = ? WHERE plugin_id = ? AND route_id = ?`,
		status, guard, pluginID, routeID)
	if err != nil {
		return fmt.Errorf("update route status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("route %s is not declared by plugin %s", routeID, pluginID)
	}
	return nil
}

func encodeJSON(v any) (sql.NullString, error) {
	switch val := v.(type) {
	case *capability.TimeWindow:
		if val == nil {
			return sql.NullString{}, nil
		}
	case *capability.AuditMeta:
		if val == nil {
			return sql.NullString{}, nil
		}
	case map[string]any:
		if val == nil {
			return sql.NullString{}, nil
		}
	case nil:
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode metadata: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func decodeJSON(src sql.NullString, dst any) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(src.String), dst); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
