// Package graph mirrors the latest evaluation pass into Neo4j as a
// site/gateway/device dependency graph so root causes can be traversed.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"sitewatch/internal/engine"
	"sitewatch/internal/output"
)

// GraphClient defines the interface for graph database operations.
type GraphClient interface {
	Close(ctx context.Context) error
	Reset(ctx context.Context) error
	IngestPass(ctx context.Context, payload *output.PipelinePayload) error
	ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error)
}

// Neo4jClient implements GraphClient for Neo4j.
type Neo4jClient struct {
	driver neo4j.DriverWithContext
	dbName string
}

// NewNeo4jClient creates a new Neo4j client.
func NewNeo4jClient(uri, username, password, dbName string) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	return &Neo4jClient{
		driver: driver,
		dbName: dbName,
	}, nil
}

func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Reset deletes every node written by IngestPass.
func (c *Neo4jClient) Reset(ctx context.Context) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.dbName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, resetQuery, nil)
	})
	return err
}

// IngestPass replaces the graph with the pass in payload, in one transaction.
func (c *Neo4jClient) IngestPass(ctx context.Context, payload *output.PipelinePayload) error {
	if payload == nil {
		return fmt.Errorf("payload required")
	}
	statements := BuildPassStatements(payload)

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.dbName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, resetQuery, nil); err != nil {
			return nil, fmt.Errorf("reset graph: %w", err)
		}
		for _, st := range statements {
			if _, err := tx.Run(ctx, st.Query, st.Params); err != nil {
				return nil, fmt.Errorf("%s: %w", st.Label, err)
			}
		}
		return nil, nil
	})
	return err
}

const resetQuery = `MATCH (n) WHERE n:Site OR n:Device OR n:Incident OR n:Pass DETACH DELETE n`

// Statement is one parameterised Cypher write.
type Statement struct {
	Label  string
	Query  string
	Params map[string]any
}

const (
	createPassQuery = `
		CREATE (:Pass {
			run_id: $run_id,
			evaluated_at: $evaluated_at,
			hostname: $hostname,
			device_count: $device_count,
			incident_count: $incident_count
		})
	`
	mergeSiteQuery = `
		MERGE (s:Site {site_id: $site_id})
		SET s.name = $name,
			s.address = $address,
			s.risk = $risk,
			s.level = $level,
			s.offline_count = $offline_count,
			s.out_of_range_count = $out_of_range_count,
			s.explanation = $explanation
	`
	mergeDeviceQuery = `
		MATCH (s:Site {site_id: $site_id})
		MERGE (d:Device {device_id: $device_id})
		SET d.domain = $domain,
			d.online = $online,
			d.updated_at = $updated_at,
			d.site_id = $site_id
		MERGE (s)-[:HAS_DEVICE]->(d)
	`
	linkUplinkQuery = `
		MATCH (d:Device {device_id: $device_id})
		MATCH (g:Device {site_id: $site_id, domain: $uplink})
		MERGE (d)-[:UPLINKS_VIA]->(g)
	`
	createIncidentQuery = `
		MATCH (d:Device {device_id: $device_id})
		CREATE (i:Incident {
			code: $code,
			kind: $kind,
			domain: $domain,
			site_id: $site_id,
			detail: $detail,
			severity: $severity,
			at: $at,
			is_cascade: $is_cascade
		})
		CREATE (i)-[:RAISED_ON]->(d)
	`
	linkCauseQuery = `
		MATCH (i:Incident {code: $code})
		MATCH (d:Device {device_id: $device_id})-[:UPLINKS_VIA]->(g:Device)
		WHERE g.online = false
		MERGE (i)-[:CAUSED_BY]->(g)
	`
)

// BuildPassStatements returns the writes that recreate payload as a graph:
// sites first, then devices, uplinks, and incidents in evaluation order.
func BuildPassStatements(p *output.PipelinePayload) []Statement {
	var out []Statement

	out = append(out, Statement{
		Label: "create pass",
		Query: createPassQuery,
		Params: map[string]any{
			"run_id":         p.RunID,
			"evaluated_at":   p.EvaluatedAt.Format(time.RFC3339),
			"hostname":       p.Node.Hostname,
			"device_count":   len(p.Devices),
			"incident_count": len(p.Incidents),
		},
	})

	for _, s := range p.Sites {
		out = append(out, Statement{
			Label: "merge site " + s.Site.ID,
			Query: mergeSiteQuery,
			Params: map[string]any{
				"site_id":            s.Site.ID,
				"name":               s.Site.Name,
				"address":            s.Site.Address,
				"risk":               s.Risk,
				"level":              string(s.Level),
				"offline_count":      s.OfflineCount,
				"out_of_range_count": s.OutOfRangeCount,
				"explanation":        s.Explanation,
			},
		})
	}

	for _, d := range p.Devices {
		out = append(out, Statement{
			Label: "merge device " + d.ID,
			Query: mergeDeviceQuery,
			Params: map[string]any{
				"site_id":    d.Site.ID,
				"device_id":  d.ID,
				"domain":     string(d.Domain),
				"online":     d.Online,
				"updated_at": d.UpdatedAt,
			},
		})
	}

	for _, d := range p.Devices {
		if d.Uplink == "" || d.Domain.IsGateway() {
			continue
		}
		out = append(out, Statement{
			Label: "link uplink " + d.ID,
			Query: linkUplinkQuery,
			Params: map[string]any{
				"device_id": d.ID,
				"site_id":   d.Site.ID,
				"uplink":    string(d.Uplink),
			},
		})
	}

	for _, inc := range p.Incidents {
		out = append(out, Statement{
			Label:  "create incident " + inc.Code,
			Query:  createIncidentQuery,
			Params: incidentParams(inc),
		})
		if inc.IsCascade() {
			out = append(out, Statement{
				Label: "link cause " + inc.Code,
				Query: linkCauseQuery,
				Params: map[string]any{
					"code":      inc.Code,
					"device_id": inc.DeviceID,
				},
			})
		}
	}

	return out
}

func incidentParams(inc engine.Incident) map[string]any {
	return map[string]any{
		"device_id":  inc.DeviceID,
		"code":       inc.Code,
		"kind":       string(inc.Kind),
		"domain":     string(inc.Domain),
		"site_id":    inc.Site.ID,
		"detail":     inc.Detail,
		"severity":   string(inc.Severity),
		"at":         inc.At,
		"is_cascade": inc.IsCascade(),
	}
}
