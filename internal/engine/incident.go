package engine

import (
	"strings"

	"sitewatch/internal/collector"
)

// Kind is the incident category shown to operators.
type Kind string

const (
	KindDisconnected Kind = "Mất kết nối"
	KindOpenCircuit  Kind = "Open Circuit"
	KindShortCircuit Kind = "Short Circuit"
	KindDoorOpen     Kind = "Cửa mở"
	KindThreshold    Kind = "Vượt ngưỡng"
)

// Kinds lists every incident kind in display order.
var Kinds = []Kind{KindDisconnected, KindOpenCircuit, KindShortCircuit, KindDoorOpen, KindThreshold}

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Code prefixes. Codes are stable identifiers built from these plus device ids.
const (
	CodeOffline   = "TECH.OFFLINE."
	CodeStatus    = "TECH.STATUS."
	CodeZone      = "TECH.FACP.ZONE."
	CodeDoorOpen  = "TECH.DOOR.OPEN."
	CodeThreshold = "TECH.THRESH."
	CodeCascade   = "TECH.CASCADE."
)

// Incident is one derived technical problem.
type Incident struct {
	Code     string           `json:"code"`
	Kind     Kind             `json:"kind"`
	Domain   collector.Domain `json:"domain"`
	Site     collector.Site   `json:"site"`
	DeviceID string           `json:"deviceId"`
	Detail   string           `json:"detail"`
	Severity Severity         `json:"severity"`
	At       string           `json:"at"`
}

// IsCascade reports whether the incident was inherited from an offline gateway.
func (i Incident) IsCascade() bool {
	return strings.HasPrefix(i.Code, CodeCascade)
}

// IsGatewayOutage reports whether the incident is a gateway going offline.
func (i Incident) IsGatewayOutage() bool {
	return strings.HasPrefix(i.Code, CodeOffline+string(collector.DomainGatewayAlarm)) ||
		strings.HasPrefix(i.Code, CodeOffline+string(collector.DomainGatewayMetrics))
}

// BySite groups incidents by site id, preserving order within each group.
func BySite(incidents []Incident) map[string][]Incident {
	out := make(map[string][]Incident)
	for _, inc := range incidents {
		out[inc.Site.ID] = append(out[inc.Site.ID], inc)
	}
	return out
}
