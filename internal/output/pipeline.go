package output

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sitewatch/internal/collector"
	"sitewatch/internal/engine"
	"sitewatch/internal/flagger"
)

// PipelinePayload is the complete result of one evaluation pass.
// The DataWorker pulls this from the Output layer to refresh the indexes.
type PipelinePayload struct {
	RunID       string                     `json:"runId"`
	EvaluatedAt time.Time                  `json:"evaluatedAt"`
	Node        collector.NodeInfo         `json:"node"`
	Devices     []collector.DeviceSnapshot `json:"devices"`
	Incidents   []engine.Incident          `json:"incidents"`
	RiskBySite  map[string]int             `json:"riskBySite"`
	Sites       []flagger.SiteReport       `json:"sites"`
}

// DataCollector supplies the device snapshots of one pass.
type DataCollector interface {
	GetSnapshots(ctx context.Context) ([]collector.DeviceSnapshot, error)
}

// DataFlagger builds per-site reports from an evaluation result.
type DataFlagger interface {
	FlagAll(devices []collector.DeviceSnapshot, res engine.Result) []flagger.SiteReport
}

// RunPipeline executes one pass: Collect -> Evaluate -> Flag -> Bundle.
func RunPipeline(
	ctx context.Context,
	col DataCollector,
	flg DataFlagger,
	node collector.NodeInfo,
) (*PipelinePayload, error) {
	// 1. Collect snapshots
	devices, err := col.GetSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect snapshots: %w", err)
	}

	// 2. Derive incidents and risk
	res := engine.Evaluate(devices)

	// 3. Flag sites
	sites := flg.FlagAll(devices, res)

	// 4. Bundle into Output Payload
	return &PipelinePayload{
		RunID:       uuid.NewString(),
		EvaluatedAt: time.Now(),
		Node:        node,
		Devices:     devices,
		Incidents:   res.Incidents,
		RiskBySite:  res.RiskBySite,
		Sites:       sites,
	}, nil
}

// SiteReport returns the report of one site, or nil.
func (p *PipelinePayload) SiteReport(siteID string) *flagger.SiteReport {
	for i := range p.Sites {
		if p.Sites[i].Site.ID == siteID {
			return &p.Sites[i]
		}
	}
	return nil
}

// DevicesOf returns the devices of one site; an empty id returns all of them.
func (p *PipelinePayload) DevicesOf(siteID string) []collector.DeviceSnapshot {
	if siteID == "" {
		return p.Devices
	}
	var out []collector.DeviceSnapshot
	for _, d := range p.Devices {
		if d.Site.ID == siteID {
			out = append(out, d)
		}
	}
	return out
}
