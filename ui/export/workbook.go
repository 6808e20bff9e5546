// Package export writes an evaluation pass as an Excel workbook.
package export

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"sitewatch/internal/output"
)

const (
	SheetSites     = "Sites"
	SheetIncidents = "Incidents"
	SheetDevices   = "Devices"
)

var SitesHeader = []string{
	"Site ID", "Site", "Address", "Risk", "Level", "Incidents", "Offline", "Out of range",
	"GW-A", "GW-M", "Door open", "Generator off", "Root cause", "Explanation",
}

var IncidentsHeader = []string{
	"Code", "Kind", "Domain", "Site ID", "Device", "Detail", "Severity", "At", "Cascade",
}

var DevicesHeader = []string{
	"Device", "Domain", "Site ID", "Online", "Uplink", "Updated", "Metrics",
}

// Workbook renders p as an xlsx document with one sheet per table.
func Workbook(p *output.PipelinePayload) ([]byte, error) {
	if p == nil {
		return nil, errors.New("payload required")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSites); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetIncidents, SheetDevices} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	sites := make([][]any, 0, len(p.Sites))
	for _, r := range p.Sites {
		sites = append(sites, []any{
			r.Site.ID, r.Site.Name, r.Site.Address, r.Risk, string(r.Level),
			r.IncidentCount, r.OfflineCount, r.OutOfRangeCount,
			upDown(r.GatewayAUp), upDown(r.GatewayMUp),
			yesNo(r.HasDoorOpen), yesNo(r.HasGeneratorOff), yesNo(r.HasRootCause),
			r.Explanation,
		})
	}

	incidents := make([][]any, 0, len(p.Incidents))
	for _, inc := range p.Incidents {
		incidents = append(incidents, []any{
			inc.Code, string(inc.Kind), string(inc.Domain), inc.Site.ID, inc.DeviceID,
			inc.Detail, string(inc.Severity), inc.At, yesNo(inc.IsCascade()),
		})
	}

	devices := make([][]any, 0, len(p.Devices))
	for _, d := range p.Devices {
		metrics := make([]string, 0, len(d.Metrics))
		for _, k := range d.MetricKeys() {
			metrics = append(metrics, k+"="+d.Metrics[k].String())
		}
		devices = append(devices, []any{
			d.ID, string(d.Domain), d.Site.ID, yesNo(d.Online), string(d.Uplink), d.UpdatedAt,
			strings.Join(metrics, "; "),
		})
	}

	tables := []struct {
		sheet  string
		header []string
		rows   [][]any
		widths map[string]float64
	}{
		{SheetSites, SitesHeader, sites, map[string]float64{"B": 18, "C": 28, "N": 60}},
		{SheetIncidents, IncidentsHeader, incidents, map[string]float64{"A": 34, "B": 14, "F": 48}},
		{SheetDevices, DevicesHeader, devices, map[string]float64{"G": 80}},
	}
	for _, t := range tables {
		if err := writeTable(f, t.sheet, t.header, t.rows, headerStyle); err != nil {
			return nil, err
		}
		for col, w := range t.widths {
			if err := f.SetColWidth(t.sheet, col, col, w); err != nil {
				return nil, fmt.Errorf("set width %s!%s: %w", t.sheet, col, err)
			}
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile stores the workbook of p at path.
func WriteFile(path string, p *output.PipelinePayload) error {
	data, err := Workbook(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeTable(f *excelize.File, sheet string, header []string, rows [][]any, headerStyle int) error {
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}

	// Freeze the header row
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func upDown(up bool) string {
	if up {
		return "UP"
	}
	return "DOWN"
}
