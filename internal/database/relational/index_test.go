package relational

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewatch/internal/collector"
	"sitewatch/internal/engine"
	"sitewatch/internal/flagger"
	"sitewatch/internal/output"
)

type seedCollector struct {
	devices []collector.DeviceSnapshot
}

func (s seedCollector) GetSnapshots(ctx context.Context) ([]collector.DeviceSnapshot, error) {
	return collector.CloneAll(s.devices), nil
}

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	client, err := NewInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	repo := NewRepo(client.DB())
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func payloadFor(t *testing.T, devices []collector.DeviceSnapshot) *output.PipelinePayload {
	t.Helper()
	p, err := output.RunPipeline(context.Background(),
		seedCollector{devices: devices},
		flagger.NewFlaggerService(flagger.DefaultConfig()),
		collector.NodeInfo{Hostname: "index-test"},
	)
	require.NoError(t, err)
	return p
}

func TestRepo_CurrentPassBeforeFirstPass(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.CurrentPass(context.Background())
	assert.True(t, errors.Is(err, ErrNoPass))
}

func TestRepo_ReplacePass(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p := payloadFor(t, collector.DefaultSeed())

	require.NoError(t, repo.ReplacePass(ctx, p))

	info, err := repo.CurrentPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.RunID, info.RunID)
	assert.Equal(t, "index-test", info.Hostname)
	assert.Equal(t, 18, info.DeviceCount)
	assert.Equal(t, 29, info.IncidentCount)

	all, err := repo.QueryIncidents(ctx, output.IncidentFilter{}, 500)
	require.NoError(t, err)
	require.Len(t, all, 29)
	assert.Equal(t, p.Incidents[0].Code, all[0].Code, "evaluation order is preserved")

	sites, err := repo.QuerySiteRisk(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "SITE-A", sites[0].SiteID)
	assert.False(t, sites[0].GatewayMUp)
	assert.Equal(t, string(flagger.LevelHigh), sites[0].Level)
}

func TestRepo_ReplacePassDropsPrevious(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.ReplacePass(ctx, payloadFor(t, collector.DefaultSeed())))

	site := collector.Site{ID: "SITE-C", Name: "Chi nhánh C"}
	clean := []collector.DeviceSnapshot{
		{ID: "GW-A-C", Domain: collector.DomainGatewayAlarm, Site: site, Online: true},
		{ID: "CAM-C", Domain: collector.DomainCamera, Site: site, Online: false},
	}
	second := payloadFor(t, clean)
	require.NoError(t, repo.ReplacePass(ctx, second))

	info, err := repo.CurrentPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.RunID, info.RunID)

	incidents, err := repo.QueryIncidents(ctx, output.IncidentFilter{}, 0)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, "TECH.OFFLINE.CAM-C", incidents[0].Code)

	rows, err := repo.RunReadOnly(ctx, "SELECT COUNT(*) AS n FROM devices")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 2, rows[0]["n"])
}

func TestRepo_QueryIncidents_Filters(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.ReplacePass(ctx, payloadFor(t, collector.DefaultSeed())))

	tests := []struct {
		name   string
		filter output.IncidentFilter
		want   int
	}{
		{"site", output.IncidentFilter{SiteID: "SITE-B"}, 16},
		{"domain", output.IncidentFilter{Domain: collector.DomainDoor}, 4},
		{"kind", output.IncidentFilter{Kind: engine.KindShortCircuit}, 1},
		{"query code", output.IncidentFilter{Query: "cascade"}, 6},
		{"query device", output.IncidentFilter{Query: "ups-02"}, 3},
		{"combined", output.IncidentFilter{SiteID: "SITE-A", Kind: engine.KindThreshold}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.QueryIncidents(ctx, tt.filter, 500)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestRepo_RunReadOnly_Rejects(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p := payloadFor(t, collector.DefaultSeed())
	require.NoError(t, repo.ReplacePass(ctx, p))

	secret := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("panel password"), 0o600))

	for _, q := range []string{
		"DELETE FROM incidents",
		"DROP TABLE site_risk",
		"SELECT 1; DELETE FROM incidents",
		"",
		"WITH x AS (SELECT 1) INSERT INTO pass VALUES ('forged', now(), 'x', 0, 0)",
		"WITH x AS (SELECT 1) DELETE FROM pass",
		"with x as (select 1) update site_risk set risk = 0",
		fmt.Sprintf("SELECT content FROM read_text('%s')", secret),
		fmt.Sprintf("SELECT * FROM read_csv('%s')", secret),
	} {
		_, err := repo.RunReadOnly(ctx, q)
		assert.Error(t, err, q)
	}

	// Rejected statements leave the pass untouched.
	info, err := repo.CurrentPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.RunID, info.RunID)
	risks, err := repo.QuerySiteRisk(ctx, 0)
	require.NoError(t, err)
	require.Len(t, risks, 2)
	for _, r := range risks {
		assert.Equal(t, 100, r.Risk, r.SiteID)
	}

	rows, err := repo.RunReadOnly(ctx, "with x as (select 1 as a) select a from x;")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = repo.RunReadOnly(ctx, "SELECT site_id FROM site_risk UNION ALL SELECT 'extra'")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestRepo_ReplacePassNil(t *testing.T) {
	repo := newTestRepo(t)
	assert.Error(t, repo.ReplacePass(context.Background(), nil))
}
