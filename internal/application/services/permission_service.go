package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/plugwarden/plugwarden/internal/application/dto"
	"github.com/plugwarden/plugwarden/internal/application/ports"
	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/decision"
	"github.com/plugwarden/plugwarden/internal/domain/manifest"
	"github.com/plugwarden/plugwarden/internal/domain/repositories"
)

// Ensure the service satisfies the provider contract checkers consume.
var _ decision.SnapshotProvider = (*PermissionService)(nil)

// PermissionService is the engine facade: manifest ingestion, cache
// lifecycle, typed and generic capability checks, ad-hoc grants, and the
// aggregated permission listing. All collaborators are injected; the
// service holds no ambient state.
type PermissionService struct {
	repo     repositories.CapabilityRepository
	cache    ports.SnapshotCache
	compiler *Compiler
	audit    ports.AuditEmitter
	clock    ports.Clock
	logger   *slog.Logger
	ttl      time.Duration

	registry *Registry
	ingestor *ManifestIngestor
}

// NewPermissionService creates the facade. The registry is attached
// afterwards with SetRegistry because the checkers it holds consume this
// service as their snapshot provider.
func NewPermissionService(
	repo repositories.CapabilityRepository,
	cache ports.SnapshotCache,
	audit ports.AuditEmitter,
	clock ports.Clock,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *PermissionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionService{
		repo:     repo,
		cache:    cache,
		compiler: NewCompiler(repo, clock),
		audit:    audit,
		clock:    clock,
		logger:   logger,
		ttl:      cacheTTL,
	}
}

// SetRegistry attaches the checker/ingestor registry. Must be called once
// before the service is used.
func (s *PermissionService) SetRegistry(r *Registry) {
	s.registry = r
	s.ingestor = NewManifestIngestor(r)
}

// Snapshot returns the plugin's compiled capability snapshot, compiling
// and warming the cache on a miss. Callers never see a partial view.
func (s *PermissionService) Snapshot(ctx context.Context, pluginID string) (*capability.Snapshot, error) {
	if snap, ok := s.cache.Get(pluginID); ok {
		return snap, nil
	}
	return s.warm(ctx, pluginID)
}

func (s *PermissionService) warm(ctx context.Context, pluginID string) (*capability.Snapshot, error) {
	snap, err := s.compiler.Compile(ctx, pluginID)
	if err != nil {
		return nil, err
	}
	// A cache that cannot store the snapshot only costs a recompile on
	// the next call; the current decision still gets a correct snapshot.
	s.cache.Put(pluginID, snap, s.ttl)
	return snap, nil
}

// WarmCache compiles and stores the plugin's snapshot.
func (s *PermissionService) WarmCache(ctx context.Context, pluginID string) error {
	_, err := s.warm(ctx, pluginID)
	return err
}

// WarmAll warms the cache for a set of plugins in parallel. Useful after
// batch ingests or on host startup.
func (s *PermissionService) WarmAll(ctx context.Context, pluginIDs []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, pluginID := range pluginIDs {
		g.Go(func() error {
			return s.WarmCache(ctx, pluginID)
		})
	}
	return g.Wait()
}

// InvalidateCache drops the plugin's cached snapshot.
func (s *PermissionService) InvalidateCache(pluginID string) {
	s.cache.Invalidate(pluginID)
}

// IngestManifest persists the manifest's rules, then invalidates and
// eagerly re-warms the cache so the very next check sees the new grants.
func (s *PermissionService) IngestManifest(ctx context.Context, pluginID string, man manifest.Manifest) (dto.IngestSummary, error) {
	summary := s.ingestor.Ingest(ctx, pluginID, man)

	s.cache.Invalidate(pluginID)
	if _, err := s.warm(ctx, pluginID); err != nil {
		return summary, fmt.Errorf("re-warm after ingest: %w", err)
	}

	s.audit.Record(ctx, ports.AuditEntry{
		Action:   "ingest",
		PluginID: pluginID,
		Request: map[string]any{
			"required_rules": len(man.RequiredPermissions),
			"optional_rules": len(man.OptionalPermissions),
		},
		Decision: map[string]any{
			"created":  summary.Created,
			"linked":   summary.Linked,
			"warnings": len(summary.Warnings),
		},
	})
	return summary, nil
}

// Can is the generic check entry point: it dispatches on the request's
// type tag and audits the decision. Unknown or missing request types deny.
func (s *PermissionService) Can(ctx context.Context, pluginID string, req capability.Request, evalCtx map[string]any) capability.Result {
	if req == nil {
		return capability.Deny(capability.ReasonUnknownRequestType)
	}
	t := req.RequestType()
	if !t.Valid() {
		return capability.Deny(capability.ReasonUnknownRequestType)
	}
	checker, ok := s.registry.Checker(t)
	if !ok {
		return capability.Deny(capability.ReasonCheckerUnavailable)
	}

	res := checker.Check(ctx, pluginID, req, evalCtx)
	s.auditCheck(ctx, pluginID, t, req, res)
	return res
}

// CanDB checks a database capability request.
func (s *PermissionService) CanDB(ctx context.Context, pluginID string, req capability.DBRequest, evalCtx map[string]any) capability.Result {
	return s.Can(ctx, pluginID, req, evalCtx)
}

// CanFile checks a filesystem capability request.
func (s *PermissionService) CanFile(ctx context.Context, pluginID string, req capability.FileRequest, evalCtx map[string]any) capability.Result {
	return s.Can(ctx, pluginID, req, evalCtx)
}

// CanNotification checks a notification capability request.
func (s *PermissionService) CanNotification(ctx context.Context, pluginID string, req capability.NotificationRequest, evalCtx map[string]any) capability.Result {
	return s.Can(ctx, pluginID, req, evalCtx)
}

// CanModule checks an inter-module call request.
func (s *PermissionService) CanModule(ctx context.Context, pluginID string, req capability.ModuleRequest, evalCtx map[string]any) capability.Result {
	return s.Can(ctx, pluginID, req, evalCtx)
}

// CanNetwork checks an outbound network call request.
func (s *PermissionService) CanNetwork(ctx context.Context, pluginID string, req capability.NetworkRequest, evalCtx map[string]any) capability.Result {
	return s.Can(ctx, pluginID, req, evalCtx)
}

// CanCodec checks a codec method invocation request.
func (s *PermissionService) CanCodec(ctx context.Context, pluginID string, req capability.CodecRequest, evalCtx map[string]any) capability.Result {
	return s.Can(ctx, pluginID, req, evalCtx)
}

// CanRouteWrite checks whether the plugin may register the given route,
// optionally asserting the guard it intends to register under.
func (s *PermissionService) CanRouteWrite(ctx context.Context, pluginID, routeID, guard string) capability.Result {
	return s.Can(ctx, pluginID, capability.RouteRequest{RouteID: routeID, Guard: guard}, nil)
}

// Upsert grants a capability outside manifest ingestion, through the same
// natural-key path an ingestor uses, and re-warms the cache so the grant
// is immediately checkable.
func (s *PermissionService) Upsert(ctx context.Context, pluginID string, row capability.ConcreteRow, meta capability.AssignmentMeta) (capability.UpsertResult, error) {
	key, err := capability.RowNaturalKey(row)
	if err != nil {
		return capability.UpsertResult{}, err
	}

	res, err := s.repo.UpsertForPlugin(ctx, pluginID, capability.UpsertDTO{
		Type:       row.RowType(),
		NaturalKey: key,
		Row:        row,
	}, meta)
	if err != nil {
		return res, err
	}

	s.cache.Invalidate(pluginID)
	if _, warmErr := s.warm(ctx, pluginID); warmErr != nil {
		s.logger.Warn("cache re-warm after upsert failed", "plugin_id", pluginID, "error", warmErr)
	}

	s.audit.Record(ctx, ports.AuditEntry{
		Action:         "upsert",
		CapabilityType: row.RowType(),
		PluginID:       pluginID,
		Request:        map[string]any{"natural_key": key},
		Decision: map[string]any{
			"concrete_id": res.ConcreteID,
			"created":     res.Created,
			"assigned":    res.Assigned,
		},
		RedactFields: auditRedactFields(meta.Audit),
		Tags:         auditTags(meta.Audit),
	})
	return res, nil
}

// auditCheck records the decision, taking redaction fields and tags from
// the matched capability entry's audit metadata rather than the request.
func (s *PermissionService) auditCheck(ctx context.Context, pluginID string, t capability.Type, req capability.Request, res capability.Result) {
	var meta *capability.AuditMeta
	if res.Matched != nil {
		if snap, ok := s.cache.Get(pluginID); ok {
			for _, e := range snap.ForType(res.Matched.Type) {
				if e.ID == res.Matched.ID {
					meta = e.Audit
					break
				}
			}
		}
	}

	s.audit.Record(ctx, ports.AuditEntry{
		Action:         "check",
		CapabilityType: t,
		PluginID:       pluginID,
		Request:        requestPayload(req),
		Decision:       decisionPayload(res),
		RedactFields:   auditRedactFields(meta),
		Tags:           auditTags(meta),
	})
}

// requestPayload flattens a typed request into a loggable map.
func requestPayload(req capability.Request) map[string]any {
	raw, err := json.Marshal(req)
	if err != nil {
		return map[string]any{"type": string(req.RequestType())}
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return map[string]any{"type": string(req.RequestType())}
	}
	payload["type"] = string(req.RequestType())
	return payload
}

func decisionPayload(res capability.Result) map[string]any {
	payload := map[string]any{"allowed": res.Allowed}
	if res.Reason != "" {
		payload["reason"] = string(res.Reason)
	}
	if res.Matched != nil {
		payload["matched"] = map[string]any{"type": string(res.Matched.Type), "id": res.Matched.ID}
	}
	if len(res.Context) > 0 {
		payload["context"] = res.Context
	}
	return payload
}

func auditRedactFields(meta *capability.AuditMeta) []string {
	if meta == nil {
		return nil
	}
	return meta.RedactFields
}

func auditTags(meta *capability.AuditMeta) []string {
	if meta == nil {
		return nil
	}
	return meta.Tags
}
