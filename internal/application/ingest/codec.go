package ingest

import (
	"context"

	"github.com/plugwarden/plugwarden/internal/application/dto"
	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/manifest"
	"github.com/plugwarden/plugwarden/internal/domain/repositories"
)

// CodecIngestor persists codec rules: the invoke flag, the resolved method
// list, and the unserialize class allow-list.
type CodecIngestor struct {
	rowIngestor
}

// NewCodecIngestor creates a codec ingestor.
func NewCodecIngestor(repo repositories.CapabilityRepository) *CodecIngestor {
	return &CodecIngestor{rowIngestor{repo: repo}}
}

// Type returns the capability type this ingestor serves.
func (i *CodecIngestor) Type() capability.Type { return capability.TypeCodec }

// Ingest builds the codec row. The method list comes from the target;
// rules that declare methods as actions instead ("serialize", "json_encode")
// resolve those, minus the invoke flag itself.
func (i *CodecIngestor) Ingest(ctx context.Context, pluginID string, rule manifest.Rule) (dto.RuleIngestResult, error) {
	methods := targetStrings(rule.Target, "methods")
	if len(methods) == 0 {
		for _, a := range rule.Actions {
			if a != "invoke" {
				methods = append(methods, a)
			}
		}
	}

	classes := targetStrings(rule.Target, "allow_unserialize_classes")
	if opts, ok := rule.Target["options"].(map[string]any); ok && len(classes) == 0 {
		classes = targetStrings(opts, "allow_unserialize_classes")
	}

	row := &capability.CodecRow{
		Invoke:  len(rule.Actions) == 0 || hasAction(rule.Actions, "invoke") || len(methods) > 0,
		Methods: methods,
		Options: capability.CodecOptions{
			AllowUnserializeClasses: classes,
		},
	}
	return i.upsertRow(ctx, pluginID, row, rule)
}
