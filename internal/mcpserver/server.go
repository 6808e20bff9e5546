// Package mcpserver exposes the live evaluation pass and the incident engine
// as MCP tools over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"sitewatch/internal/collector"
	"sitewatch/internal/database/graph"
	"sitewatch/internal/database/rag"
	"sitewatch/internal/database/relational"
	"sitewatch/internal/engine"
	"sitewatch/internal/flagger"
	"sitewatch/internal/output"
)

// PassSource supplies the latest evaluation pass.
type PassSource interface {
	Latest() *output.PipelinePayload
	PullOnce(ctx context.Context) error
}

// Asker answers natural-language questions about the current pass.
type Asker interface {
	Query(ctx context.Context, question string) (string, error)
}

// Server wraps the MCP server with sitewatch capabilities.
type Server struct {
	mcpServer    *mcp.Server
	passes       PassSource
	index        relational.IncidentIndex
	neo4jClient  graph.GraphClient
	asker        Asker
	geminiClient *genai.Client
	flaggerSvc   *flagger.FlaggerService
	logger       *zap.Logger
}

// Config holds configuration for the MCP server.
type Config struct {
	ServerName    string
	ServerVersion string
	GeminiAPIKey  string
	GeminiModel   string // key of rag.AvailableModels or a raw model name
	Risk          flagger.Config
}

// NewServer creates a new MCP server instance. index and graphClient may be
// nil; the tools that need them then report that they are not configured.
func NewServer(
	cfg Config,
	passes PassSource,
	index relational.IncidentIndex,
	graphClient graph.GraphClient,
	logger *zap.Logger,
) (*Server, error) {
	if passes == nil {
		return nil, errors.New("pass source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Risk == (flagger.Config{}) {
		cfg.Risk = flagger.DefaultConfig()
	}

	s := &Server{
		passes:      passes,
		index:       index,
		neo4jClient: graphClient,
		flaggerSvc:  flagger.NewFlaggerService(cfg.Risk),
		logger:      logger.Named("mcp"),
	}

	if cfg.GeminiAPIKey != "" && graphClient != nil {
		geminiClient, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		model := rag.ResolveModel(cfg.GeminiModel)
		s.logger.Info("gemini enabled", zap.String("model", model.Name))
		s.geminiClient = geminiClient
		s.asker = rag.NewGraphRAGEngine(graphClient, geminiClient, cfg.GeminiModel)
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)
	s.registerTools()
	return s, nil
}

// registerTools registers all available MCP tools.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_site_overview",
		Description: "Risk score (0-100), level and flags of every site in the latest pass. Filters: query (site name/address), gw_a/gw_m (any|up|down), need_door_open, need_generator_off, root_cause_only, min_risk.",
	}, s.handleGetSiteOverview)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_incidents",
		Description: "Incidents of the latest pass in evaluation order. Filter by site_id, domain (GW-A, GW-M, FACP, UPS, Fan, Pump, Door, Generator, Camera), kind, or query (code or device id substring).",
	}, s.handleListIncidents)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_device_snapshots",
		Description: "Raw device snapshots of the latest pass, optionally for one site or one device.",
	}, s.handleGetDeviceSnapshots)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "evaluate_devices",
		Description: "Run the incident engine on caller-supplied device snapshots without touching the live pass. Metric values are numbers or status strings.",
	}, s.handleEvaluateDevices)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "query_incident_index",
		Description: "Run one read-only SQL SELECT against the DuckDB index of the latest pass. Tables: pass, devices, incidents(seq, code, kind, domain, site_id, site_name, device_id, detail, severity, at, is_cascade), site_risk.",
	}, s.handleQueryIncidentIndex)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "query_graph",
		Description: "Execute a read-only Cypher query on the Neo4j graph of the latest pass. " + strings.ReplaceAll(rag.GraphSchema, "\n", " "),
	}, s.handleQueryGraph)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "ask_sitewatch",
		Description: "Ask why a site is at risk, which gateway explains which incidents, or what to check first. Answers come from AI analysis of the dependency graph.",
	}, s.handleAskSitewatch)
}

// latest returns the current pass, pulling one if none has run yet.
func (s *Server) latest(ctx context.Context) (*output.PipelinePayload, error) {
	if p := s.passes.Latest(); p != nil {
		return p, nil
	}
	if err := s.passes.PullOnce(ctx); err != nil {
		return nil, fmt.Errorf("evaluate pass: %w", err)
	}
	if p := s.passes.Latest(); p != nil {
		return p, nil
	}
	return nil, errors.New("no pass available")
}

// SiteOverviewArgs defines the input for get_site_overview.
type SiteOverviewArgs struct {
	Query            string `json:"query,omitempty" jsonschema:"substring of site name or address"`
	GatewayA         string `json:"gw_a,omitempty" jsonschema:"alarm gateway state: any, up or down"`
	GatewayM         string `json:"gw_m,omitempty" jsonschema:"metrics gateway state: any, up or down"`
	NeedDoorOpen     bool   `json:"need_door_open,omitempty" jsonschema:"only sites with an open door"`
	NeedGeneratorOff bool   `json:"need_generator_off,omitempty" jsonschema:"only sites with the generator off"`
	RootCauseOnly    bool   `json:"root_cause_only,omitempty" jsonschema:"only sites with at least one non-cascaded incident"`
	MinRisk          int    `json:"min_risk,omitempty" jsonschema:"minimum risk score"`
}

// SiteOverviewResult lists site reports.
type SiteOverviewResult struct {
	RunID       string               `json:"run_id"`
	EvaluatedAt string               `json:"evaluated_at"`
	Sites       []flagger.SiteReport `json:"sites"`
}

func (a SiteOverviewArgs) filter() (output.SmartFilter, error) {
	gwA, err := output.ParseGatewayFilter(a.GatewayA)
	if err != nil {
		return output.SmartFilter{}, fmt.Errorf("gw_a: %w", err)
	}
	gwM, err := output.ParseGatewayFilter(a.GatewayM)
	if err != nil {
		return output.SmartFilter{}, fmt.Errorf("gw_m: %w", err)
	}
	return output.SmartFilter{
		Query:            a.Query,
		GatewayA:         gwA,
		GatewayM:         gwM,
		NeedDoorOpen:     a.NeedDoorOpen,
		NeedGeneratorOff: a.NeedGeneratorOff,
		RootCauseOnly:    a.RootCauseOnly,
		MinRisk:          a.MinRisk,
	}, nil
}

func (s *Server) handleGetSiteOverview(ctx context.Context, _ *mcp.CallToolRequest, args SiteOverviewArgs) (*mcp.CallToolResult, SiteOverviewResult, error) {
	f, err := args.filter()
	if err != nil {
		return nil, SiteOverviewResult{}, err
	}
	p, err := s.latest(ctx)
	if err != nil {
		return nil, SiteOverviewResult{}, err
	}
	return nil, SiteOverviewResult{
		RunID:       p.RunID,
		EvaluatedAt: p.EvaluatedAt.Format(time.RFC3339),
		Sites:       f.Apply(p.Sites),
	}, nil
}

// ListIncidentsArgs defines the input for list_incidents.
type ListIncidentsArgs struct {
	SiteID string `json:"site_id,omitempty" jsonschema:"site id such as SITE-A"`
	Domain string `json:"domain,omitempty" jsonschema:"device domain"`
	Kind   string `json:"kind,omitempty" jsonschema:"incident kind, e.g. Mất kết nối, Open Circuit, Short Circuit, Cửa mở, Vượt ngưỡng"`
	Query  string `json:"query,omitempty" jsonschema:"substring of incident code or device id"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum incidents to return (default 100)"`
}

// ListIncidentsResult lists incidents.
type ListIncidentsResult struct {
	Total     int               `json:"total"`
	Incidents []engine.Incident `json:"incidents"`
}

func (a ListIncidentsArgs) filter() (output.IncidentFilter, error) {
	f := output.IncidentFilter{SiteID: a.SiteID, Query: a.Query}
	if a.Domain != "" {
		d := collector.Domain(a.Domain)
		if !d.Valid() {
			return f, fmt.Errorf("unknown domain %q", a.Domain)
		}
		f.Domain = d
	}
	if a.Kind != "" {
		k := engine.Kind(a.Kind)
		known := false
		for _, kk := range engine.Kinds {
			if kk == k {
				known = true
				break
			}
		}
		if !known {
			return f, fmt.Errorf("unknown kind %q", a.Kind)
		}
		f.Kind = k
	}
	return f, nil
}

func (s *Server) handleListIncidents(ctx context.Context, _ *mcp.CallToolRequest, args ListIncidentsArgs) (*mcp.CallToolResult, ListIncidentsResult, error) {
	f, err := args.filter()
	if err != nil {
		return nil, ListIncidentsResult{}, err
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	p, err := s.latest(ctx)
	if err != nil {
		return nil, ListIncidentsResult{}, err
	}
	matched := f.Apply(p.Incidents)
	res := ListIncidentsResult{Total: len(matched), Incidents: matched}
	if len(matched) > limit {
		res.Incidents = matched[:limit]
	}
	return nil, res, nil
}

// DeviceSnapshotsArgs defines the input for get_device_snapshots.
type DeviceSnapshotsArgs struct {
	SiteID   string `json:"site_id,omitempty" jsonschema:"site id"`
	DeviceID string `json:"device_id,omitempty" jsonschema:"device id"`
}

// DeviceView is a device snapshot with plain metric values.
type DeviceView struct {
	ID        string         `json:"id"`
	Domain    string         `json:"domain"`
	SiteID    string         `json:"site_id"`
	SiteName  string         `json:"site_name"`
	Online    bool           `json:"online"`
	Uplink    string         `json:"uplink,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
	Metrics   map[string]any `json:"metrics"`
}

// DeviceSnapshotsResult lists devices.
type DeviceSnapshotsResult struct {
	Devices []DeviceView `json:"devices"`
}

func viewOf(d collector.DeviceSnapshot) DeviceView {
	v := DeviceView{
		ID:        d.ID,
		Domain:    string(d.Domain),
		SiteID:    d.Site.ID,
		SiteName:  d.Site.Name,
		Online:    d.Online,
		Uplink:    string(d.Uplink),
		UpdatedAt: d.UpdatedAt,
		Metrics:   make(map[string]any, len(d.Metrics)),
	}
	for k, m := range d.Metrics {
		if f, ok := m.Float(); ok {
			v.Metrics[k] = f
		} else if t, ok := m.Text(); ok {
			v.Metrics[k] = t
		}
	}
	return v
}

func (s *Server) handleGetDeviceSnapshots(ctx context.Context, _ *mcp.CallToolRequest, args DeviceSnapshotsArgs) (*mcp.CallToolResult, DeviceSnapshotsResult, error) {
	p, err := s.latest(ctx)
	if err != nil {
		return nil, DeviceSnapshotsResult{}, err
	}
	res := DeviceSnapshotsResult{Devices: []DeviceView{}}
	for _, d := range p.DevicesOf(args.SiteID) {
		if args.DeviceID != "" && !strings.EqualFold(d.ID, args.DeviceID) {
			continue
		}
		res.Devices = append(res.Devices, viewOf(d))
	}
	if args.DeviceID != "" && len(res.Devices) == 0 {
		return nil, res, fmt.Errorf("device %q not found", args.DeviceID)
	}
	return nil, res, nil
}

// EvaluateDevicesArgs defines the input for evaluate_devices.
type EvaluateDevicesArgs struct {
	Devices []DeviceView `json:"devices" jsonschema:"device snapshots to evaluate"`
}

// EvaluateDevicesResult is the engine output for the supplied devices.
type EvaluateDevicesResult struct {
	Incidents  []engine.Incident    `json:"incidents"`
	RiskBySite map[string]int       `json:"risk_by_site"`
	Sites      []flagger.SiteReport `json:"sites"`
}

// snapshotOf converts a DeviceView back into an engine input.
func snapshotOf(v DeviceView) (collector.DeviceSnapshot, error) {
	d := collector.DeviceSnapshot{
		ID:        v.ID,
		Domain:    collector.Domain(v.Domain),
		Site:      collector.Site{ID: v.SiteID, Name: v.SiteName},
		Online:    v.Online,
		Uplink:    collector.Domain(v.Uplink),
		UpdatedAt: v.UpdatedAt,
		Metrics:   make(map[string]collector.MetricValue, len(v.Metrics)),
	}
	for k, raw := range v.Metrics {
		switch val := raw.(type) {
		case float64:
			d.Metrics[k] = collector.Numeric(val)
		case int:
			d.Metrics[k] = collector.Numeric(float64(val))
		case string:
			d.Metrics[k] = collector.Status(val)
		default:
			return d, fmt.Errorf("device %s metric %s: want number or string, got %T", v.ID, k, raw)
		}
	}
	return d, nil
}

func (s *Server) handleEvaluateDevices(_ context.Context, _ *mcp.CallToolRequest, args EvaluateDevicesArgs) (*mcp.CallToolResult, EvaluateDevicesResult, error) {
	devices := make([]collector.DeviceSnapshot, 0, len(args.Devices))
	for _, v := range args.Devices {
		d, err := snapshotOf(v)
		if err != nil {
			return nil, EvaluateDevicesResult{}, err
		}
		devices = append(devices, d)
	}

	res := engine.Evaluate(devices)
	return nil, EvaluateDevicesResult{
		Incidents:  res.Incidents,
		RiskBySite: res.RiskBySite,
		Sites:      s.flaggerSvc.FlagAll(devices, res),
	}, nil
}

// QueryIndexArgs defines the input for query_incident_index.
type QueryIndexArgs struct {
	SQL string `json:"sql" jsonschema:"a single SELECT or WITH statement"`
}

// RowsResult wraps tabular query results.
type RowsResult struct {
	Rows []map[string]any `json:"rows"`
}

func (s *Server) handleQueryIncidentIndex(ctx context.Context, _ *mcp.CallToolRequest, args QueryIndexArgs) (*mcp.CallToolResult, RowsResult, error) {
	if s.index == nil {
		return nil, RowsResult{}, errors.New("incident index is not configured")
	}
	rows, err := s.index.RunReadOnly(ctx, args.SQL)
	if err != nil {
		return nil, RowsResult{}, fmt.Errorf("index query failed: %w", err)
	}
	return nil, RowsResult{Rows: rows}, nil
}

// QueryGraphArgs defines the input for query_graph tool.
type QueryGraphArgs struct {
	Cypher string `json:"cypher" jsonschema:"read-only Cypher query to execute"`
}

// QueryGraphResult wraps graph query results.
type QueryGraphResult struct {
	Data []map[string]any `json:"data" jsonschema:"query results"`
}

func (s *Server) handleQueryGraph(ctx context.Context, _ *mcp.CallToolRequest, args QueryGraphArgs) (*mcp.CallToolResult, QueryGraphResult, error) {
	if s.neo4jClient == nil {
		return nil, QueryGraphResult{}, errors.New("graph is not configured (set NEO4J_URI)")
	}
	if err := graph.CheckReadOnly(args.Cypher); err != nil {
		return nil, QueryGraphResult{}, err
	}
	result, err := s.neo4jClient.ExecuteCypher(ctx, args.Cypher)
	if err != nil {
		return nil, QueryGraphResult{}, fmt.Errorf("cypher query failed: %w", err)
	}
	return nil, QueryGraphResult{Data: result}, nil
}

// AskArgs defines the input for ask_sitewatch tool.
type AskArgs struct {
	Question string `json:"question" jsonschema:"the question to ask about site risk and incidents"`
}

// AskResult defines the output for ask_sitewatch tool.
type AskResult struct {
	Answer string `json:"answer" jsonschema:"AI-generated answer"`
}

func (s *Server) handleAskSitewatch(ctx context.Context, _ *mcp.CallToolRequest, args AskArgs) (*mcp.CallToolResult, AskResult, error) {
	if s.asker == nil {
		return nil, AskResult{}, errors.New("ask_sitewatch needs GEMINI_API_KEY and NEO4J_URI")
	}
	if strings.TrimSpace(args.Question) == "" {
		return nil, AskResult{}, errors.New("question is required")
	}
	answer, err := s.asker.Query(ctx, args.Question)
	if err != nil {
		s.logger.Warn("ask failed", zap.Error(err))
		return nil, AskResult{}, fmt.Errorf("RAG query failed: %w", err)
	}
	return nil, AskResult{Answer: answer}, nil
}

// Start starts the MCP server using stdio transport.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("serving on stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Close releases the Gemini client. The graph and index belong to the caller.
func (s *Server) Close() error {
	if s.geminiClient != nil {
		return s.geminiClient.Close()
	}
	return nil
}
