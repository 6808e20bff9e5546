package relational

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"sitewatch/internal/output"
)

// IncidentRow is one indexed incident.
type IncidentRow struct {
	Code      string `json:"code"`
	Kind      string `json:"kind"`
	Domain    string `json:"domain"`
	SiteID    string `json:"site_id"`
	SiteName  string `json:"site_name"`
	DeviceID  string `json:"device_id"`
	Detail    string `json:"detail"`
	Severity  string `json:"severity"`
	At        string `json:"at"`
	IsCascade bool   `json:"is_cascade"`
}

// SiteRiskRow is one indexed site summary.
type SiteRiskRow struct {
	SiteID          string `json:"site_id"`
	SiteName        string `json:"site_name"`
	Address         string `json:"address"`
	Risk            int    `json:"risk"`
	Level           string `json:"level"`
	IncidentCount   int    `json:"incident_count"`
	OfflineCount    int    `json:"offline_count"`
	OutOfRangeCount int    `json:"out_of_range_count"`
	GatewayAUp      bool   `json:"gw_a_up"`
	GatewayMUp      bool   `json:"gw_m_up"`
	HasDoorOpen     bool   `json:"has_door_open"`
	HasGeneratorOff bool   `json:"has_generator_off"`
	HasRootCause    bool   `json:"has_root_cause"`
	Explanation     string `json:"explanation"`
}

// PassInfo describes the indexed pass.
type PassInfo struct {
	RunID         string    `json:"run_id"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
	Hostname      string    `json:"hostname"`
	DeviceCount   int       `json:"device_count"`
	IncidentCount int       `json:"incident_count"`
}

// ErrNoPass is returned before the first pass has been indexed.
var ErrNoPass = errors.New("no pass indexed yet")

// CurrentPass returns metadata of the indexed pass.
func (r *Repo) CurrentPass(ctx context.Context) (PassInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var p PassInfo
	var hostname sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT run_id, evaluated_at, hostname, device_count, incident_count FROM pass LIMIT 1
	`).Scan(&p.RunID, &p.EvaluatedAt, &hostname, &p.DeviceCount, &p.IncidentCount)
	if errors.Is(err, sql.ErrNoRows) {
		return PassInfo{}, ErrNoPass
	}
	if err != nil {
		return PassInfo{}, fmt.Errorf("query pass failed: %w", err)
	}
	p.Hostname = hostname.String
	return p, nil
}

// QueryIncidents returns indexed incidents matching f, in evaluation order.
func (r *Repo) QueryIncidents(ctx context.Context, f output.IncidentFilter, limit int) ([]IncidentRow, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500 // Safety limit
	}

	query := `
		SELECT code, kind, domain, site_id, COALESCE(site_name, ''), device_id,
		       COALESCE(detail, ''), severity, COALESCE(at, ''), is_cascade
		FROM incidents
		WHERE 1=1
	`
	args := []any{}
	if f.SiteID != "" {
		query += " AND site_id = ?"
		args = append(args, f.SiteID)
	}
	if f.Domain != "" {
		query += " AND domain = ?"
		args = append(args, string(f.Domain))
	}
	if f.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(f.Kind))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		query += " AND (code ILIKE ? OR device_id ILIKE ?)"
		pattern := "%" + q + "%"
		args = append(args, pattern, pattern)
	}
	query += " ORDER BY seq LIMIT ?"
	args = append(args, limit)

	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query incidents failed: %w", err)
	}
	defer rows.Close()

	out := []IncidentRow{} // Initialize as empty slice, not nil
	for rows.Next() {
		var row IncidentRow
		if err := rows.Scan(&row.Code, &row.Kind, &row.Domain, &row.SiteID, &row.SiteName, &row.DeviceID,
			&row.Detail, &row.Severity, &row.At, &row.IsCascade); err != nil {
			return nil, fmt.Errorf("scan incident failed: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// QuerySiteRisk returns indexed sites with risk >= minRisk, highest first.
func (r *Repo) QuerySiteRisk(ctx context.Context, minRisk int) ([]SiteRiskRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT site_id, COALESCE(site_name, ''), COALESCE(address, ''), risk, level,
		       incident_count, offline_count, out_of_range_count,
		       gw_a_up, gw_m_up, has_door_open, has_generator_off, has_root_cause,
		       COALESCE(explanation, '')
		FROM site_risk
		WHERE risk >= ?
		ORDER BY risk DESC, seq
	`, minRisk)
	if err != nil {
		return nil, fmt.Errorf("query site risk failed: %w", err)
	}
	defer rows.Close()

	out := []SiteRiskRow{}
	for rows.Next() {
		var s SiteRiskRow
		if err := rows.Scan(&s.SiteID, &s.SiteName, &s.Address, &s.Risk, &s.Level,
			&s.IncidentCount, &s.OfflineCount, &s.OutOfRangeCount,
			&s.GatewayAUp, &s.GatewayMUp, &s.HasDoorOpen, &s.HasGeneratorOff, &s.HasRootCause,
			&s.Explanation); err != nil {
			return nil, fmt.Errorf("scan site risk failed: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

var readOnlyPrefix = regexp.MustCompile(`(?i)^\s*(SELECT|WITH)\b`)

const maxReadOnlyRows = 200

// serializedStatements is the shape of json_serialize_sql output.
type serializedStatements struct {
	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message"`
	Statements   []struct {
		Node struct {
			Type string `json:"type"`
		} `json:"node"`
	} `json:"statements"`
}

// checkSelectOnly asks DuckDB's own parser what query is. Only a single
// statement whose root is a SELECT node passes; INSERT, UPDATE or DELETE
// behind a CTE fail to serialize.
func (r *Repo) checkSelectOnly(ctx context.Context, query string) error {
	var raw string
	if err := r.db.QueryRowContext(ctx, "SELECT json_serialize_sql(?)", query).Scan(&raw); err != nil {
		return fmt.Errorf("parse query: %w", err)
	}
	var parsed serializedStatements
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return fmt.Errorf("decode parsed query: %w", err)
	}
	if parsed.Error {
		return fmt.Errorf("only SELECT queries are allowed: %s", parsed.ErrorMessage)
	}
	if len(parsed.Statements) != 1 {
		return errors.New("only a single statement is allowed")
	}
	switch t := parsed.Statements[0].Node.Type; t {
	case "SELECT_NODE", "SET_OPERATION_NODE":
	default:
		return fmt.Errorf("only SELECT queries are allowed, got %s", t)
	}
	return nil
}

// RunReadOnly executes a single SELECT/WITH statement against the index and
// returns at most maxReadOnlyRows rows as column->value maps.
func (r *Repo) RunReadOnly(ctx context.Context, query string) ([]map[string]any, error) {
	query = strings.TrimSpace(query)
	query = strings.TrimSuffix(query, ";")
	if !readOnlyPrefix.MatchString(query) {
		return nil, errors.New("only SELECT or WITH queries are allowed")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.checkSelectOnly(ctx, query); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read-only query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	out := []map[string]any{}
	for rows.Next() && len(out) < maxReadOnlyRows {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row failed: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}
