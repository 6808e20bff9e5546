package engine

import "sitewatch/internal/collector"

// Result is the output of one evaluation pass.
type Result struct {
	Incidents  []Incident     `json:"incidents"`
	RiskBySite map[string]int `json:"riskBySite"`
}

// Evaluate runs one full pass: direct incidents for every device, then
// cascades, then per-site risk. It keeps no state between calls.
func Evaluate(devices []collector.DeviceSnapshot) Result {
	incidents := []Incident{}
	for _, d := range devices {
		incidents = append(incidents, ClassifyDevice(d)...)
	}
	incidents = append(incidents, PropagateCascade(devices)...)

	return Result{
		Incidents:  incidents,
		RiskBySite: RiskBySite(devices, incidents),
	}
}
