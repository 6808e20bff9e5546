package collector

import (
	"context"
	"maps"
	"sort"
)

// ============================================================================
// DATA STRUCTURES
// ============================================================================

// Domain is the functional category of a field device.
type Domain string

const (
	DomainGatewayAlarm   Domain = "GW-A" // gateway carrying alarm traffic (FACP)
	DomainGatewayMetrics Domain = "GW-M" // gateway carrying metric telemetry
	DomainFACP           Domain = "FACP"
	DomainUPS            Domain = "UPS"
	DomainFan            Domain = "Fan"
	DomainPump           Domain = "Pump"
	DomainDoor           Domain = "Door"
	DomainGenerator      Domain = "Generator"
	DomainCamera         Domain = "Camera"
)

// Domains lists every known domain in display order.
var Domains = []Domain{
	DomainGatewayAlarm, DomainGatewayMetrics, DomainFACP, DomainUPS, DomainFan,
	DomainPump, DomainDoor, DomainGenerator, DomainCamera,
}

// Valid reports whether d is one of the known domains.
func (d Domain) Valid() bool {
	for _, k := range Domains {
		if d == k {
			return true
		}
	}
	return false
}

// IsGateway reports whether d is one of the two gateway domains.
func (d Domain) IsGateway() bool {
	return d == DomainGatewayAlarm || d == DomainGatewayMetrics
}

// Site is a physical branch location.
type Site struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
}

// DeviceSnapshot is the state of one device at one instant.
type DeviceSnapshot struct {
	ID        string                 `json:"id"`
	Domain    Domain                 `json:"domain"`
	Site      Site                   `json:"site"`
	Online    bool                   `json:"online"`
	Uplink    Domain                 `json:"uplink,omitempty"` // GW-A, GW-M or empty
	Metrics   map[string]MetricValue `json:"metrics,omitempty"`
	UpdatedAt string                 `json:"updatedAt"`
}

// Clone returns a deep copy so callers never share the metrics map.
func (d DeviceSnapshot) Clone() DeviceSnapshot {
	d.Metrics = maps.Clone(d.Metrics)
	return d
}

// MetricKeys returns the metric names in sorted order.
func (d DeviceSnapshot) MetricKeys() []string {
	keys := make([]string, 0, len(d.Metrics))
	for k := range d.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CloneAll deep-copies a snapshot list.
func CloneAll(devices []DeviceSnapshot) []DeviceSnapshot {
	out := make([]DeviceSnapshot, len(devices))
	for i, d := range devices {
		out[i] = d.Clone()
	}
	return out
}

// SitesOf returns the distinct sites of devices in first-appearance order.
func SitesOf(devices []DeviceSnapshot) []Site {
	seen := make(map[string]bool)
	var sites []Site
	for _, d := range devices {
		if seen[d.Site.ID] {
			continue
		}
		seen[d.Site.ID] = true
		sites = append(sites, d.Site)
	}
	return sites
}

// SnapshotProvider supplies the current device snapshots for one evaluation pass.
type SnapshotProvider interface {
	GetSnapshots(ctx context.Context) ([]DeviceSnapshot, error)
}
