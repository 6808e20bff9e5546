package mcpserver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewatch/internal/collector"
	"sitewatch/internal/database/graph"
	"sitewatch/internal/flagger"
	"sitewatch/internal/output"
)

type seedCollector struct{}

func (seedCollector) GetSnapshots(ctx context.Context) ([]collector.DeviceSnapshot, error) {
	return collector.DefaultSeed(), nil
}

// MockPassSource evaluates the built-in seed on PullOnce.
type MockPassSource struct {
	payload *output.PipelinePayload
	pulls   int
	PullErr error
}

func (m *MockPassSource) Latest() *output.PipelinePayload { return m.payload }

func (m *MockPassSource) PullOnce(ctx context.Context) error {
	m.pulls++
	if m.PullErr != nil {
		return m.PullErr
	}
	p, err := output.RunPipeline(ctx, seedCollector{}, flagger.NewFlaggerService(flagger.DefaultConfig()), collector.NodeInfo{})
	if err != nil {
		return err
	}
	m.payload = p
	return nil
}

// MockGraphClient implements graph.GraphClient for testing
type MockGraphClient struct {
	CypherResult []map[string]any
	CypherErr    error
	Queries      []string
}

func (m *MockGraphClient) IngestPass(ctx context.Context, payload *output.PipelinePayload) error {
	return nil
}

func (m *MockGraphClient) Reset(ctx context.Context) error { return nil }

func (m *MockGraphClient) ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error) {
	m.Queries = append(m.Queries, query)
	if m.CypherErr != nil {
		return nil, m.CypherErr
	}
	return m.CypherResult, nil
}

func (m *MockGraphClient) Close(ctx context.Context) error { return nil }

type MockAsker struct {
	Answer string
	Err    error
}

func (m MockAsker) Query(ctx context.Context, question string) (string, error) {
	return m.Answer, m.Err
}

func newTestServer(t *testing.T) (*Server, *MockPassSource) {
	t.Helper()
	passes := &MockPassSource{}
	s, err := NewServer(Config{ServerName: "sitewatch-test", ServerVersion: "0.0.0"}, passes, nil, nil, nil)
	require.NoError(t, err)
	return s, passes
}

func TestNewServer_RequiresPassSource(t *testing.T) {
	_, err := NewServer(Config{}, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestNewServer_NoGeminiWithoutGraph(t *testing.T) {
	s, err := NewServer(Config{GeminiAPIKey: "test-key"}, &MockPassSource{}, nil, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, s.asker)
	assert.Nil(t, s.geminiClient)
	assert.NoError(t, s.Close())
}

func TestHandleGetSiteOverview(t *testing.T) {
	s, passes := newTestServer(t)
	ctx := context.Background()

	_, all, err := s.handleGetSiteOverview(ctx, nil, SiteOverviewArgs{})
	require.NoError(t, err)
	assert.Equal(t, 1, passes.pulls, "first call evaluates a pass")
	require.Len(t, all.Sites, 2)
	assert.Equal(t, "SITE-A", all.Sites[0].Site.ID)
	assert.Equal(t, 100, all.Sites[0].Risk)

	_, down, err := s.handleGetSiteOverview(ctx, nil, SiteOverviewArgs{GatewayM: "down"})
	require.NoError(t, err)
	assert.Equal(t, 1, passes.pulls, "later calls reuse the pass")
	require.Len(t, down.Sites, 1)
	assert.Equal(t, "SITE-A", down.Sites[0].Site.ID)

	_, gen, err := s.handleGetSiteOverview(ctx, nil, SiteOverviewArgs{NeedGeneratorOff: true})
	require.NoError(t, err)
	require.Len(t, gen.Sites, 1)
	assert.Equal(t, "SITE-B", gen.Sites[0].Site.ID)

	_, _, err = s.handleGetSiteOverview(ctx, nil, SiteOverviewArgs{GatewayA: "sideways"})
	assert.Error(t, err)
}

func TestHandleGetSiteOverview_PullError(t *testing.T) {
	s, passes := newTestServer(t)
	passes.PullErr = errors.New("seed unreadable")

	_, _, err := s.handleGetSiteOverview(context.Background(), nil, SiteOverviewArgs{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, passes.PullErr))
}

func TestHandleListIncidents(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      ListIncidentsArgs
		wantTotal int
		wantLen   int
	}{
		{"all", ListIncidentsArgs{}, 29, 29},
		{"site", ListIncidentsArgs{SiteID: "SITE-A"}, 13, 13},
		{"domain", ListIncidentsArgs{Domain: "Door"}, 4, 4},
		{"kind", ListIncidentsArgs{Kind: "Short Circuit"}, 1, 1},
		{"query", ListIncidentsArgs{Query: "ups-02"}, 3, 3},
		{"limit", ListIncidentsArgs{Limit: 5}, 29, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res, err := s.handleListIncidents(ctx, nil, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, res.Total)
			assert.Len(t, res.Incidents, tt.wantLen)
		})
	}

	_, _, err := s.handleListIncidents(ctx, nil, ListIncidentsArgs{Domain: "Boiler"})
	assert.Error(t, err)
	_, _, err = s.handleListIncidents(ctx, nil, ListIncidentsArgs{Kind: "Fire"})
	assert.Error(t, err)
}

func TestHandleGetDeviceSnapshots(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, site, err := s.handleGetDeviceSnapshots(ctx, nil, DeviceSnapshotsArgs{SiteID: "SITE-B"})
	require.NoError(t, err)
	assert.Len(t, site.Devices, 9)

	_, one, err := s.handleGetDeviceSnapshots(ctx, nil, DeviceSnapshotsArgs{DeviceID: "ups-02"})
	require.NoError(t, err)
	require.Len(t, one.Devices, 1)
	assert.Equal(t, 198.0, one.Devices[0].Metrics["UPSVoltage"])
	assert.Equal(t, "OFF", one.Devices[0].Metrics["UPSStatus"])

	_, _, err = s.handleGetDeviceSnapshots(ctx, nil, DeviceSnapshotsArgs{DeviceID: "NOPE"})
	assert.Error(t, err)
}

func TestHandleEvaluateDevices(t *testing.T) {
	s, passes := newTestServer(t)

	args := EvaluateDevicesArgs{Devices: []DeviceView{
		{ID: "GW-A-X", Domain: "GW-A", SiteID: "SITE-X", Online: false, UpdatedAt: "09:00"},
		{ID: "FACP-X", Domain: "FACP", SiteID: "SITE-X", Online: true, Uplink: "GW-A",
			Metrics: map[string]any{"ZoneStatus": 3.0}},
	}}

	_, res, err := s.handleEvaluateDevices(context.Background(), nil, args)
	require.NoError(t, err)
	assert.Equal(t, 0, passes.pulls, "evaluation does not touch the live pass")
	assert.Equal(t, 78, res.RiskBySite["SITE-X"])
	assert.Len(t, res.Incidents, 3)
	require.Len(t, res.Sites, 1)
	assert.Equal(t, flagger.LevelHigh, res.Sites[0].Level)
}

func TestHandleEvaluateDevices_Empty(t *testing.T) {
	s, _ := newTestServer(t)
	_, res, err := s.handleEvaluateDevices(context.Background(), nil, EvaluateDevicesArgs{})
	require.NoError(t, err)
	assert.Empty(t, res.Incidents)
	assert.Empty(t, res.RiskBySite)
}

func TestHandleEvaluateDevices_BadMetric(t *testing.T) {
	s, _ := newTestServer(t)
	args := EvaluateDevicesArgs{Devices: []DeviceView{
		{ID: "UPS-X", Domain: "UPS", SiteID: "SITE-X", Online: true, Metrics: map[string]any{"UPSStatus": true}},
	}}
	_, _, err := s.handleEvaluateDevices(context.Background(), nil, args)
	assert.Error(t, err)
}

func TestViewRoundTrip(t *testing.T) {
	for _, d := range collector.DefaultSeed() {
		back, err := snapshotOf(viewOf(d))
		require.NoError(t, err)
		assert.Equal(t, d.ID, back.ID)
		assert.Equal(t, len(d.Metrics), len(back.Metrics))
		for k, m := range d.Metrics {
			assert.Equal(t, m.String(), back.Metrics[k].String(), "%s %s", d.ID, k)
		}
	}
}

func TestHandleQueryIncidentIndex_NotConfigured(t *testing.T) {
	s, _ := newTestServer(t)
	_, _, err := s.handleQueryIncidentIndex(context.Background(), nil, QueryIndexArgs{SQL: "SELECT 1"})
	assert.Error(t, err)
}

func TestHandleQueryGraph(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, _, err := s.handleQueryGraph(ctx, nil, QueryGraphArgs{Cypher: "MATCH (s:Site) RETURN s"})
	assert.Error(t, err, "no graph configured")

	mockGraph := &MockGraphClient{CypherResult: []map[string]any{{"site": "SITE-A", "risk": int64(100)}}}
	s.neo4jClient = mockGraph

	_, res, err := s.handleQueryGraph(ctx, nil, QueryGraphArgs{Cypher: "MATCH (s:Site) RETURN s.site_id AS site, s.risk AS risk"})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "SITE-A", res.Data[0]["site"])

	_, _, err = s.handleQueryGraph(ctx, nil, QueryGraphArgs{Cypher: "MATCH (n) DETACH DELETE n"})
	assert.True(t, errors.Is(err, graph.ErrWriteQuery))
	assert.Len(t, mockGraph.Queries, 1, "write query never reaches the graph")

	mockGraph.CypherErr = errors.New("cypher syntax error")
	_, _, err = s.handleQueryGraph(ctx, nil, QueryGraphArgs{Cypher: "MATCH"})
	assert.Error(t, err)
}

func TestHandleAskSitewatch(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, _, err := s.handleAskSitewatch(ctx, nil, AskArgs{Question: "Why is SITE-A at risk?"})
	assert.Error(t, err, "no asker configured")

	s.asker = MockAsker{Answer: "GW-M-A is offline."}
	_, res, err := s.handleAskSitewatch(ctx, nil, AskArgs{Question: "Why is SITE-A at risk?"})
	require.NoError(t, err)
	assert.Equal(t, "GW-M-A is offline.", res.Answer)

	_, _, err = s.handleAskSitewatch(ctx, nil, AskArgs{Question: "  "})
	assert.Error(t, err)

	s.asker = MockAsker{Err: errors.New("quota exceeded")}
	_, _, err = s.handleAskSitewatch(ctx, nil, AskArgs{Question: "status?"})
	assert.Error(t, err)
}
