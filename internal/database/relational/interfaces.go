package relational

import (
	"context"

	"sitewatch/internal/output"
)

// =============================================================================
// CORE INTERFACES
// =============================================================================

// IncidentIndex holds exactly one evaluation pass for querying.
type IncidentIndex interface {
	// Migrate creates the schema.
	Migrate(ctx context.Context) error
	// ReplacePass discards the indexed pass and stores p.
	ReplacePass(ctx context.Context, p *output.PipelinePayload) error
	// CurrentPass describes the indexed pass.
	CurrentPass(ctx context.Context) (PassInfo, error)
	// QueryIncidents filters indexed incidents.
	QueryIncidents(ctx context.Context, f output.IncidentFilter, limit int) ([]IncidentRow, error)
	// QuerySiteRisk lists sites at or above minRisk.
	QuerySiteRisk(ctx context.Context, minRisk int) ([]SiteRiskRow, error)
	// RunReadOnly executes an ad-hoc SELECT.
	RunReadOnly(ctx context.Context, query string) ([]map[string]any, error)
	// Close releases database resources.
	Close() error
}

// DataWorkerService orchestrates the evaluation loop.
type DataWorkerService interface {
	// Start begins periodic evaluation passes.
	Start(ctx context.Context) error
	// Stop gracefully stops the worker.
	Stop()
	// PullOnce executes a single pass.
	PullOnce(ctx context.Context) error
	// Latest returns the most recent payload, or nil before the first pass.
	Latest() *output.PipelinePayload
}

var _ IncidentIndex = (*Repo)(nil)
