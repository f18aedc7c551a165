// Package dto defines application-layer data transfer objects: ingestion
// summaries and the aggregated permission listing consumed by UIs and
// approval workflows.
package dto

import "github.com/plugwarden/plugwarden/internal/domain/capability"

// RuleIngestResult reports what happened to one manifest rule.
type RuleIngestResult struct {
	Type         capability.Type `json:"type"`
	NaturalKey   string          `json:"natural_key"`
	ConcreteID   int64           `json:"concrete_id"`
	ConcreteType capability.Type `json:"concrete_type"`
	Created      bool            `json:"created"`
	Assigned     bool            `json:"assigned"`
	Warning      string          `json:"warning,omitempty"`
}

// IngestSummary aggregates one manifest ingestion. A failed rule becomes a
// path-qualified warning; it never aborts the rest of the manifest.
type IngestSummary struct {
	Created  int                `json:"created"`
	Linked   int                `json:"linked"`
	Items    []RuleIngestResult `json:"items,omitempty"`
	Warnings []string           `json:"warnings,omitempty"`
}
