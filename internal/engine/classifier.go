package engine

import (
	"strings"

	"sitewatch/internal/collector"
)

// statusRule maps a status metric to the incident it raises when the value is OFF/OFFLINE.
type statusRule struct {
	Domain collector.Domain
	Prefix string
	Detail string
}

var statusRules = map[string]statusRule{
	"UPSStatus":  {Domain: collector.DomainUPS, Prefix: "TECH.STATUS.UPS", Detail: "UPS mất kết nối tới GW-M"},
	"FANStatus":  {Domain: collector.DomainFan, Prefix: "TECH.STATUS.FAN", Detail: "Quạt mất kết nối tới GW-M"},
	"PUMPStatus": {Domain: collector.DomainPump, Prefix: "TECH.STATUS.PUMP", Detail: "Bơm mất kết nối tới GW-M"},
}

const (
	zoneKey          = "ZoneStatus"
	zoneOpenCircuit  = 2
	zoneShortCircuit = 3
	doorKeyPrefix    = "Door"
)

// ClassifyDevice derives the direct incidents of one device. The offline
// check runs first, then metric keys are visited in sorted order and the
// first matching rule wins for each key.
func ClassifyDevice(d collector.DeviceSnapshot) []Incident {
	var out []Incident

	newIncident := func(code string, kind Kind, domain collector.Domain, detail string, sev Severity) Incident {
		return Incident{
			Code:     code,
			Kind:     kind,
			Domain:   domain,
			Site:     d.Site,
			DeviceID: d.ID,
			Detail:   detail,
			Severity: sev,
			At:       d.UpdatedAt,
		}
	}

	// 1. Heartbeat
	if !d.Online {
		out = append(out, newIncident(CodeOffline+d.ID, KindDisconnected, d.Domain, "Không nhận heartbeat", SeverityHigh))
	}

	for _, key := range d.MetricKeys() {
		v := d.Metrics[key]
		text, isText := v.Text()
		num, isNum := v.Float()

		// 2. Status strings
		if rule, ok := statusRules[key]; ok && isText && isOffStatus(text) {
			out = append(out, newIncident(rule.Prefix+"."+d.ID, KindDisconnected, rule.Domain, rule.Detail, SeverityHigh))
			continue
		}

		// 3. FACP zone
		if key == zoneKey && isNum {
			switch num {
			case zoneOpenCircuit:
				out = append(out, newIncident(CodeZone+"2."+d.ID, KindOpenCircuit, collector.DomainFACP, "Mạch hở tại vùng báo cháy", SeverityHigh))
				continue
			case zoneShortCircuit:
				out = append(out, newIncident(CodeZone+"3."+d.ID, KindShortCircuit, collector.DomainFACP, "Chập mạch tại vùng báo cháy", SeverityHigh))
				continue
			}
		}

		// 4. Doors
		if strings.HasPrefix(key, doorKeyPrefix) && isText && strings.EqualFold(text, "open") {
			out = append(out, newIncident(CodeDoorOpen+d.ID+"."+key, KindDoorOpen, collector.DomainDoor, key+" đang mở", SeverityMedium))
			continue
		}

		// 5. Numeric thresholds
		if isNum {
			if verdict, ok := ClassifyRange(key, num); ok {
				side := "LOW"
				if verdict.Side == SideHigh {
					side = "HIGH"
				}
				detail := verdict.Spec.Label + ": " + collector.FormatNumber(num) + " " + verdict.Spec.Unit + " — " + verdict.Message
				out = append(out, newIncident(CodeThreshold+d.ID+"."+key+"."+side, KindThreshold, d.Domain, detail, SeverityMedium))
			}
		}
	}

	return out
}

func isOffStatus(s string) bool {
	return strings.EqualFold(s, "OFF") || strings.EqualFold(s, "OFFLINE")
}
