package output

import (
	"fmt"
	"strings"

	"sitewatch/internal/collector"
	"sitewatch/internal/engine"
	"sitewatch/internal/flagger"
)

// GatewayFilter constrains the state of one gateway in the smart filter.
type GatewayFilter string

const (
	GatewayAny  GatewayFilter = "any"
	GatewayUp   GatewayFilter = "up"
	GatewayDown GatewayFilter = "down"
)

// ParseGatewayFilter accepts "", any, up or down.
func ParseGatewayFilter(s string) (GatewayFilter, error) {
	switch GatewayFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", GatewayAny:
		return GatewayAny, nil
	case GatewayUp:
		return GatewayUp, nil
	case GatewayDown:
		return GatewayDown, nil
	default:
		return "", fmt.Errorf("invalid gateway filter %q (want any, up or down)", s)
	}
}

func (g GatewayFilter) match(up bool) bool {
	switch g {
	case GatewayUp:
		return up
	case GatewayDown:
		return !up
	default:
		return true
	}
}

// SmartFilter selects site reports. The zero value matches everything.
type SmartFilter struct {
	Query            string        `json:"query,omitempty"` // site name or address, case-insensitive
	GatewayA         GatewayFilter `json:"gatewayA,omitempty"`
	GatewayM         GatewayFilter `json:"gatewayM,omitempty"`
	NeedDoorOpen     bool          `json:"needDoorOpen,omitempty"`
	NeedGeneratorOff bool          `json:"needGeneratorOff,omitempty"`
	RootCauseOnly    bool          `json:"rootCauseOnly,omitempty"`
	MinRisk          int           `json:"minRisk,omitempty"`
}

func (f SmartFilter) Match(r flagger.SiteReport) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(r.Site.Name), q) &&
			!strings.Contains(strings.ToLower(r.Site.Address), q) {
			return false
		}
	}
	if !f.GatewayA.match(r.GatewayAUp) || !f.GatewayM.match(r.GatewayMUp) {
		return false
	}
	if f.NeedDoorOpen && !r.HasDoorOpen {
		return false
	}
	if f.NeedGeneratorOff && !r.HasGeneratorOff {
		return false
	}
	if f.RootCauseOnly && !r.HasRootCause {
		return false
	}
	return r.Risk >= f.MinRisk
}

func (f SmartFilter) Apply(reports []flagger.SiteReport) []flagger.SiteReport {
	out := []flagger.SiteReport{}
	for _, r := range reports {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// IncidentFilter selects incidents. Empty fields match everything.
type IncidentFilter struct {
	SiteID string           `json:"siteId,omitempty"`
	Domain collector.Domain `json:"domain,omitempty"`
	Kind   engine.Kind      `json:"kind,omitempty"`
	Query  string           `json:"query,omitempty"` // code or device id, case-insensitive
}

func (f IncidentFilter) Match(inc engine.Incident) bool {
	if f.SiteID != "" && inc.Site.ID != f.SiteID {
		return false
	}
	if f.Domain != "" && inc.Domain != f.Domain {
		return false
	}
	if f.Kind != "" && inc.Kind != f.Kind {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(inc.Code), q) ||
			strings.Contains(strings.ToLower(inc.DeviceID), q)
	}
	return true
}

func (f IncidentFilter) Apply(incidents []engine.Incident) []engine.Incident {
	out := []engine.Incident{}
	for _, inc := range incidents {
		if f.Match(inc) {
			out = append(out, inc)
		}
	}
	return out
}
