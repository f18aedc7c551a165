package ingest

import (
	"context"

	"github.com/plugwarden/plugwarden/internal/application/dto"
	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/manifest"
	"github.com/plugwarden/plugwarden/internal/domain/repositories"
)

// NetworkIngestor persists outbound network rules: host, method, scheme,
// port, path, header, and ip allow-lists plus the auth-via-host flag.
type NetworkIngestor struct {
	rowIngestor
}

// NewNetworkIngestor creates a network ingestor.
func NewNetworkIngestor(repo repositories.CapabilityRepository) *NetworkIngestor {
	return &NetworkIngestor{rowIngestor{repo: repo}}
}

// Type returns the capability type this ingestor serves.
func (i *NetworkIngestor) Type() capability.Type { return capability.TypeNetwork }

// Ingest builds the network row from the rule. As with module rules, an
// empty action list grants the access flag implicitly.
func (i *NetworkIngestor) Ingest(ctx context.Context, pluginID string, rule manifest.Rule) (dto.RuleIngestResult, error) {
	row := &capability.NetworkRow{
		Access:            len(rule.Actions) == 0 || hasAction(rule.Actions, "access"),
		Hosts:             targetStrings(rule.Target, "hosts"),
		Methods:           targetStrings(rule.Target, "methods"),
		Schemes:           targetStrings(rule.Target, "schemes"),
		Ports:             targetInts(rule.Target, "ports"),
		Paths:             targetStrings(rule.Target, "paths"),
		HeadersAllowed:    targetStrings(rule.Target, "headers_allowed"),
		IPsAllowed:        targetStrings(rule.Target, "ips_allowed"),
		AuthViaHostSecret: targetBool(rule.Target, "auth_via_host_secret"),
	}
	return i.upsertRow(ctx, pluginID, row, rule)
}
