package engine

import "sitewatch/internal/collector"

var cascadeDetail = map[collector.Domain]string{
	collector.DomainGatewayAlarm:   "Thiết bị phụ thuộc GW-A (gateway Alarm)",
	collector.DomainGatewayMetrics: "Thiết bị phụ thuộc GW-M (gateway Metrics)",
}

// PropagateCascade emits one incident per device whose uplink gateway at the
// same site is offline. The device's own online flag does not matter. Sites
// are visited in first-appearance order, devices in input order.
func PropagateCascade(devices []collector.DeviceSnapshot) []Incident {
	var (
		order  []string
		groups = make(map[string][]collector.DeviceSnapshot)
	)
	for _, d := range devices {
		if _, seen := groups[d.Site.ID]; !seen {
			order = append(order, d.Site.ID)
		}
		groups[d.Site.ID] = append(groups[d.Site.ID], d)
	}

	var out []Incident
	for _, siteID := range order {
		group := groups[siteID]
		gateways := siteGateways(group)

		for _, d := range group {
			if d.Domain.IsGateway() || d.Uplink == "" {
				continue
			}
			gw, ok := gateways[d.Uplink]
			if !ok || gw.Online {
				continue
			}
			out = append(out, Incident{
				Code:     CodeCascade + string(d.Uplink) + "." + d.ID,
				Kind:     KindDisconnected,
				Domain:   d.Domain,
				Site:     d.Site,
				DeviceID: d.ID,
				Detail:   cascadeDetail[d.Uplink],
				Severity: SeverityHigh,
				At:       gw.UpdatedAt,
			})
		}
	}
	return out
}

// siteGateways returns the first GW-A and GW-M device of a site group.
func siteGateways(group []collector.DeviceSnapshot) map[collector.Domain]collector.DeviceSnapshot {
	gws := make(map[collector.Domain]collector.DeviceSnapshot, 2)
	for _, d := range group {
		if !d.Domain.IsGateway() {
			continue
		}
		if _, dup := gws[d.Domain]; !dup {
			gws[d.Domain] = d
		}
	}
	return gws
}
