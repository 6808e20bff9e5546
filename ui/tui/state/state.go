package state

import (
	"time"

	"sitewatch/internal/collector"
	"sitewatch/internal/engine"
	"sitewatch/internal/output"
)

type Page int

const (
	PageMenu Page = iota
	PageConsole   // "Console Output View"
	PageOverview  // "Site Overview"
	PageIncidents // "Incident List"
	PageRisk      // "Risk History"
	PageLegend    // "Code & Risk Legend"
)

// HistoryLen is the number of passes kept per site for the risk chart.
const HistoryLen = 31

// DomainCycle is the order the incidents page steps through; "" is all.
var DomainCycle = append([]collector.Domain{""}, collector.Domains...)

// KindCycle is the order the incidents page steps through; "" is all.
var KindCycle = append([]engine.Kind{""}, engine.Kinds...)

// AppState holds the latest pass and the view selections made on it.
type AppState struct {
	Payload     *output.PipelinePayload
	LastUpdate  time.Time
	Err         error
	RiskHistory map[string][]float64
	ConsoleLogs []string
	CurrentPage Page

	SelectedSite int
	DomainIndex  int
	KindIndex    int
}

// SiteIDs lists the site ids of the latest pass in display order.
func (s AppState) SiteIDs() []string {
	if s.Payload == nil {
		return nil
	}
	ids := make([]string, 0, len(s.Payload.Sites))
	for _, r := range s.Payload.Sites {
		ids = append(ids, r.Site.ID)
	}
	return ids
}

// SelectedSiteID returns the selected site, or "" before the first pass.
func (s AppState) SelectedSiteID() string {
	ids := s.SiteIDs()
	if len(ids) == 0 {
		return ""
	}
	if s.SelectedSite < 0 || s.SelectedSite >= len(ids) {
		return ids[0]
	}
	return ids[s.SelectedSite]
}

// CycleSite moves the selection by delta, wrapping around.
func (s *AppState) CycleSite(delta int) {
	n := len(s.SiteIDs())
	if n == 0 {
		s.SelectedSite = 0
		return
	}
	s.SelectedSite = ((s.SelectedSite+delta)%n + n) % n
}

func (s *AppState) CycleDomain() {
	s.DomainIndex = (s.DomainIndex + 1) % len(DomainCycle)
}

func (s *AppState) CycleKind() {
	s.KindIndex = (s.KindIndex + 1) % len(KindCycle)
}

// IncidentFilter is the incidents page selection.
func (s AppState) IncidentFilter() output.IncidentFilter {
	return output.IncidentFilter{
		SiteID: s.SelectedSiteID(),
		Domain: DomainCycle[s.DomainIndex%len(DomainCycle)],
		Kind:   KindCycle[s.KindIndex%len(KindCycle)],
	}
}

// Apply records a new pass: payload, per-site risk history and a console line.
func (s *AppState) Apply(p *output.PipelinePayload, at time.Time, logLine string) {
	s.Payload = p
	s.LastUpdate = at
	s.Err = nil

	if s.RiskHistory == nil {
		s.RiskHistory = make(map[string][]float64)
	}
	for _, r := range p.Sites {
		h := append(s.RiskHistory[r.Site.ID], float64(r.Risk))
		if len(h) > HistoryLen {
			h = h[len(h)-HistoryLen:]
		}
		s.RiskHistory[r.Site.ID] = h
	}

	s.ConsoleLogs = append(s.ConsoleLogs, logLine)
	if len(s.ConsoleLogs) > 100 {
		s.ConsoleLogs = s.ConsoleLogs[1:]
	}

	if ids := s.SiteIDs(); s.SelectedSite >= len(ids) {
		s.SelectedSite = 0
	}
}
