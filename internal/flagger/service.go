package flagger

import (
	"fmt"
	"strings"

	"sitewatch/internal/collector"
	"sitewatch/internal/engine"
)

// SiteReport is the per-site summary rendered on overview cards.
type SiteReport struct {
	Site      collector.Site       `json:"site"`
	Risk      int                  `json:"risk"`
	Level     RiskLevel            `json:"level"`
	Breakdown engine.RiskBreakdown `json:"breakdown"`

	IncidentCount   int `json:"incidentCount"`
	OfflineCount    int `json:"offlineCount"`
	OutOfRangeCount int `json:"outOfRangeCount"`

	GatewayAUp      bool `json:"gatewayAUp"`
	GatewayMUp      bool `json:"gatewayMUp"`
	HasDoorOpen     bool `json:"hasDoorOpen"`
	HasGeneratorOff bool `json:"hasGeneratorOff"`
	HasRootCause    bool `json:"hasRootCause"` // any incident that is not a cascade

	Explanation string `json:"explanation"`
}

// FlaggerService turns an evaluation pass into site reports.
type FlaggerService struct {
	cfg Config
}

func NewFlaggerService(cfg Config) *FlaggerService {
	return &FlaggerService{cfg: cfg}
}

func (fs *FlaggerService) Config() Config { return fs.cfg }

// FlagAll builds one report per site, in first-appearance order.
func (fs *FlaggerService) FlagAll(devices []collector.DeviceSnapshot, res engine.Result) []SiteReport {
	incidents := engine.BySite(res.Incidents)
	devicesBySite := make(map[string][]collector.DeviceSnapshot)
	for _, d := range devices {
		devicesBySite[d.Site.ID] = append(devicesBySite[d.Site.ID], d)
	}

	sites := collector.SitesOf(devices)
	reports := make([]SiteReport, 0, len(sites))
	for _, s := range sites {
		reports = append(reports, fs.Flag(s, devicesBySite[s.ID], incidents[s.ID]))
	}
	return reports
}

// Flag summarises one site from its devices and incidents.
func (fs *FlaggerService) Flag(site collector.Site, devices []collector.DeviceSnapshot, incidents []engine.Incident) SiteReport {
	r := SiteReport{
		Site:          site,
		Breakdown:     engine.ScoreRisk(incidents),
		IncidentCount: len(incidents),
		GatewayAUp:    true,
		GatewayMUp:    true,
	}
	r.Risk = r.Breakdown.Score
	r.Level = fs.cfg.Level(r.Risk)

	// 1. Devices
	for _, d := range devices {
		switch d.Domain {
		case collector.DomainGatewayAlarm:
			r.GatewayAUp = r.GatewayAUp && d.Online
		case collector.DomainGatewayMetrics:
			r.GatewayMUp = r.GatewayMUp && d.Online
		case collector.DomainGenerator:
			if !d.Online || generatorReportsOff(d) {
				r.HasGeneratorOff = true
			}
		}
	}

	// 2. Incidents
	for _, inc := range incidents {
		switch inc.Kind {
		case engine.KindDisconnected:
			r.OfflineCount++
		case engine.KindThreshold:
			r.OutOfRangeCount++
		case engine.KindDoorOpen:
			r.HasDoorOpen = true
		}
		if !inc.IsCascade() {
			r.HasRootCause = true
		}
	}

	// 3. Explanation
	var explanations []string
	if !r.GatewayAUp {
		explanations = append(explanations, "GW-A offline")
	}
	if !r.GatewayMUp {
		explanations = append(explanations, "GW-M offline")
	}
	if n := r.Breakdown.ZoneFaults; n > 0 {
		explanations = append(explanations, fmt.Sprintf("%d zone fault(s)", n))
	}
	if n := r.Breakdown.Disconnects; n > 0 {
		explanations = append(explanations, fmt.Sprintf("%d device(s) disconnected", n))
	}
	if r.OutOfRangeCount > 0 {
		explanations = append(explanations, fmt.Sprintf("%d reading(s) out of range", r.OutOfRangeCount))
	}
	if r.HasDoorOpen {
		explanations = append(explanations, fmt.Sprintf("%d door(s) open", r.Breakdown.DoorsOpen))
	}
	if r.HasGeneratorOff {
		explanations = append(explanations, "generator off")
	}

	if len(explanations) > 0 {
		r.Explanation = explanations[0]
		if len(explanations) > 1 {
			r.Explanation += fmt.Sprintf(" (+%d more)", len(explanations)-1)
		}
	}

	return r
}

func generatorReportsOff(d collector.DeviceSnapshot) bool {
	s, ok := d.Metrics["GenStatus"].Text()
	return ok && (strings.EqualFold(s, "offline") || strings.EqualFold(s, "off"))
}
