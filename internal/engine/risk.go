package engine

import (
	"strings"

	"sitewatch/internal/collector"
)

const (
	RiskGatewayOutage   = 40
	RiskCascade         = 8
	RiskDisconnect      = 25
	RiskZoneFault       = 30
	RiskDoorOpen        = 10
	RiskDoorCap         = 30
	RiskElectrical      = 10
	RiskHydraulic       = 8
	RiskGeneratorOutage = 15
	RiskMax             = 100
)

// electricalMetrics are the threshold metrics worth RiskElectrical points.
var electricalMetrics = []string{
	"ACVoltage", "DCVoltage", "UPSVoltage", "UPSCurrent",
	"FANVoltage", "FANCurrent", "PUMPVoltage", "PUMPCurrent",
}

// RiskBreakdown records how a site score was assembled.
type RiskBreakdown struct {
	GatewayOutages int  `json:"gatewayOutages"`
	Cascades       int  `json:"cascades"`
	Disconnects    int  `json:"disconnects"`
	ZoneFaults     int  `json:"zoneFaults"`
	DoorsOpen      int  `json:"doorsOpen"`
	Electrical     int  `json:"electrical"`
	Hydraulic      int  `json:"hydraulic"`
	GeneratorDown  bool `json:"generatorDown"`

	MainPoints int `json:"mainPoints"`
	DoorPoints int `json:"doorPoints"` // after the cap
	Score      int `json:"score"`
}

// ComputeRisk scores the incidents of one site into [0, 100].
func ComputeRisk(incidents []Incident) int {
	return ScoreRisk(incidents).Score
}

// ScoreRisk buckets each incident exactly once, in priority order, and
// returns the per-bucket counts along with the final score.
func ScoreRisk(incidents []Incident) RiskBreakdown {
	var b RiskBreakdown
	doorPoints := 0

	for _, inc := range incidents {
		switch {
		case inc.IsGatewayOutage():
			b.GatewayOutages++
			b.MainPoints += RiskGatewayOutage
		case inc.IsCascade():
			b.Cascades++
			b.MainPoints += RiskCascade
		// Checked before the generic disconnect bucket so a site's generators
		// add RiskGeneratorOutage once and never RiskDisconnect.
		case inc.Domain == collector.DomainGenerator && inc.Kind == KindDisconnected:
			if !b.GeneratorDown {
				b.GeneratorDown = true
				b.MainPoints += RiskGeneratorOutage
			}
		case inc.Kind == KindDisconnected:
			b.Disconnects++
			b.MainPoints += RiskDisconnect
		case strings.HasPrefix(inc.Code, CodeZone):
			b.ZoneFaults++
			b.MainPoints += RiskZoneFault
		case inc.Domain == collector.DomainDoor && inc.Kind == KindDoorOpen:
			b.DoorsOpen++
			doorPoints += RiskDoorOpen
		case inc.Kind == KindThreshold:
			if referencesElectrical(inc.Code) {
				b.Electrical++
				b.MainPoints += RiskElectrical
			} else {
				b.Hydraulic++
				b.MainPoints += RiskHydraulic
			}
		}
	}

	b.DoorPoints = min(RiskDoorCap, doorPoints)
	b.Score = min(RiskMax, b.MainPoints+b.DoorPoints)
	return b
}

func referencesElectrical(code string) bool {
	for _, m := range electricalMetrics {
		if strings.Contains(code, m) {
			return true
		}
	}
	return false
}

// RiskBySite scores every site present in devices; clean sites score 0.
func RiskBySite(devices []collector.DeviceSnapshot, incidents []Incident) map[string]int {
	grouped := BySite(incidents)
	out := make(map[string]int)
	for _, s := range collector.SitesOf(devices) {
		out[s.ID] = ComputeRisk(grouped[s.ID])
	}
	for siteID, list := range grouped {
		if _, ok := out[siteID]; !ok {
			out[siteID] = ComputeRisk(list)
		}
	}
	return out
}
