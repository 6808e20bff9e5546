package output

import (
	"sitewatch/internal/engine"
	"sitewatch/internal/flagger"
)

// Display statuses shared by the console and TUI renderers.
const (
	StatusOK   = "OK"
	StatusWarn = "WARN"
	StatusCrit = "CRIT"
)

// Item keys to avoid hardcoded strings
const (
	ItemRisk       = "risk"
	ItemOffline    = "offline"
	ItemOutOfRange = "out_of_range"
	ItemGatewayA   = "gw_a"
	ItemGatewayM   = "gw_m"
	ItemDoors      = "doors"
	ItemGenerator  = "generator"
)

// UI/view-model types (no printing here)
type Item struct {
	Key    string
	Label  string
	Value  float64
	Unit   string
	Status string
	Note   string
}

// Section is one site card.
type Section struct {
	ID        string // site id
	Title     string
	Subtitle  string
	Level     flagger.RiskLevel
	Items     []Item
	Incidents []engine.Incident
}

type DashboardView struct {
	Sections       []Section
	TotalIncidents int
	HighestRisk    int
	EvaluatedAt    string
}

// BuildDashboard converts a pipeline payload into UI-ready site cards,
// keeping only the sites the filter matches.
func BuildDashboard(p *PipelinePayload, f SmartFilter) DashboardView {
	if p == nil {
		return DashboardView{}
	}

	incidents := engine.BySite(p.Incidents)
	view := DashboardView{
		TotalIncidents: len(p.Incidents),
		EvaluatedAt:    p.EvaluatedAt.Format("15:04:05"),
	}

	for _, r := range f.Apply(p.Sites) {
		view.HighestRisk = max(view.HighestRisk, r.Risk)
		view.Sections = append(view.Sections, Section{
			ID:        r.Site.ID,
			Title:     r.Site.Name,
			Subtitle:  r.Site.Address,
			Level:     r.Level,
			Items:     siteItems(r),
			Incidents: incidents[r.Site.ID],
		})
	}
	return view
}

func siteItems(r flagger.SiteReport) []Item {
	return []Item{
		{Key: ItemRisk, Label: "Risk", Value: float64(r.Risk), Unit: "/100", Status: StatusForLevel(r.Level), Note: r.Explanation},
		{Key: ItemOffline, Label: "Mất kết nối", Value: float64(r.OfflineCount), Status: countStatus(r.OfflineCount, StatusCrit)},
		{Key: ItemOutOfRange, Label: "Vượt ngưỡng", Value: float64(r.OutOfRangeCount), Status: countStatus(r.OutOfRangeCount, StatusWarn)},
		{Key: ItemGatewayA, Label: "GW-A", Status: boolStatus(r.GatewayAUp, StatusCrit), Note: upDown(r.GatewayAUp)},
		{Key: ItemGatewayM, Label: "GW-M", Status: boolStatus(r.GatewayMUp, StatusCrit), Note: upDown(r.GatewayMUp)},
		{Key: ItemDoors, Label: "Cửa", Value: float64(r.Breakdown.DoorsOpen), Status: boolStatus(!r.HasDoorOpen, StatusWarn)},
		{Key: ItemGenerator, Label: "Máy phát", Status: boolStatus(!r.HasGeneratorOff, StatusWarn), Note: upDown(!r.HasGeneratorOff)},
	}
}

// StatusForLevel maps a risk band onto a display status.
func StatusForLevel(l flagger.RiskLevel) string {
	switch l {
	case flagger.LevelHigh:
		return StatusCrit
	case flagger.LevelMedium:
		return StatusWarn
	default:
		return StatusOK
	}
}

// StatusForSeverity maps an incident severity onto a display status.
func StatusForSeverity(s engine.Severity) string {
	if s == engine.SeverityHigh {
		return StatusCrit
	}
	return StatusWarn
}

func countStatus(n int, bad string) string {
	if n > 0 {
		return bad
	}
	return StatusOK
}

func boolStatus(ok bool, bad string) string {
	if ok {
		return StatusOK
	}
	return bad
}

func upDown(up bool) string {
	if up {
		return "up"
	}
	return "down"
}

func (v DashboardView) SectionByID(id string) *Section {
	for i := range v.Sections {
		if v.Sections[i].ID == id {
			return &v.Sections[i]
		}
	}
	return nil
}

func (s Section) ItemByKey(key string) *Item {
	for i := range s.Items {
		if s.Items[i].Key == key {
			return &s.Items[i]
		}
	}
	return nil
}
