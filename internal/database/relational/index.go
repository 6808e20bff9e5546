package relational

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"sitewatch/internal/output"
)

// SchemaSQL creates the current-pass tables. No primary keys: DuckDB checks
// unique constraints eagerly, which breaks delete-then-insert of the same key
// inside one transaction.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS pass (
  run_id         VARCHAR NOT NULL,
  evaluated_at   TIMESTAMP NOT NULL,
  hostname       VARCHAR,
  device_count   INTEGER NOT NULL,
  incident_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS devices (
  device_id    VARCHAR NOT NULL,
  site_id      VARCHAR NOT NULL,
  domain       VARCHAR NOT NULL,
  online       BOOLEAN NOT NULL,
  uplink       VARCHAR,
  updated_at   VARCHAR,
  metrics_json VARCHAR
);

CREATE TABLE IF NOT EXISTS incidents (
  seq        INTEGER NOT NULL,
  code       VARCHAR NOT NULL,
  kind       VARCHAR NOT NULL,
  domain     VARCHAR NOT NULL,
  site_id    VARCHAR NOT NULL,
  site_name  VARCHAR,
  device_id  VARCHAR NOT NULL,
  detail     VARCHAR,
  severity   VARCHAR NOT NULL,
  at         VARCHAR,
  is_cascade BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS site_risk (
  seq                INTEGER NOT NULL,
  site_id            VARCHAR NOT NULL,
  site_name          VARCHAR,
  address            VARCHAR,
  risk               INTEGER NOT NULL,
  level              VARCHAR NOT NULL,
  incident_count     INTEGER NOT NULL,
  offline_count      INTEGER NOT NULL,
  out_of_range_count INTEGER NOT NULL,
  gw_a_up            BOOLEAN NOT NULL,
  gw_m_up            BOOLEAN NOT NULL,
  has_door_open      BOOLEAN NOT NULL,
  has_generator_off  BOOLEAN NOT NULL,
  has_root_cause     BOOLEAN NOT NULL,
  explanation        VARCHAR
);
`

var passTables = []string{"pass", "devices", "incidents", "site_risk"}

// Repo is the DuckDB-backed incident index.
type Repo struct {
	db *sql.DB
	mu sync.RWMutex
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, SchemaSQL)
	return err
}

// ReplacePass swaps the indexed pass for p in one transaction.
func (r *Repo) ReplacePass(ctx context.Context, p *output.PipelinePayload) error {
	if p == nil {
		return errors.New("payload required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range passTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pass(run_id, evaluated_at, hostname, device_count, incident_count)
		VALUES(?,?,?,?,?)
	`, p.RunID, p.EvaluatedAt, nullStr(p.Node.Hostname), len(p.Devices), len(p.Incidents))
	if err != nil {
		return fmt.Errorf("insert pass: %w", err)
	}

	for _, d := range p.Devices {
		metrics, err := json.Marshal(d.Metrics)
		if err != nil {
			return fmt.Errorf("encode metrics of %s: %w", d.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO devices(device_id, site_id, domain, online, uplink, updated_at, metrics_json)
			VALUES(?,?,?,?,?,?,?)
		`, d.ID, d.Site.ID, string(d.Domain), d.Online, nullStr(string(d.Uplink)), nullStr(d.UpdatedAt), string(metrics))
		if err != nil {
			return fmt.Errorf("insert device %s: %w", d.ID, err)
		}
	}

	for i, inc := range p.Incidents {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO incidents(seq, code, kind, domain, site_id, site_name, device_id, detail, severity, at, is_cascade)
			VALUES(?,?,?,?,?,?,?,?,?,?,?)
		`, i, inc.Code, string(inc.Kind), string(inc.Domain), inc.Site.ID, nullStr(inc.Site.Name),
			inc.DeviceID, nullStr(inc.Detail), string(inc.Severity), nullStr(inc.At), inc.IsCascade())
		if err != nil {
			return fmt.Errorf("insert incident %s: %w", inc.Code, err)
		}
	}

	for i, s := range p.Sites {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO site_risk(
			  seq, site_id, site_name, address, risk, level,
			  incident_count, offline_count, out_of_range_count,
			  gw_a_up, gw_m_up, has_door_open, has_generator_off, has_root_cause, explanation
			) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		`, i, s.Site.ID, nullStr(s.Site.Name), nullStr(s.Site.Address), s.Risk, string(s.Level),
			s.IncidentCount, s.OfflineCount, s.OutOfRangeCount,
			s.GatewayAUp, s.GatewayMUp, s.HasDoorOpen, s.HasGeneratorOff, s.HasRootCause, nullStr(s.Explanation))
		if err != nil {
			return fmt.Errorf("insert site %s: %w", s.Site.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Null helpers
func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
