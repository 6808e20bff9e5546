package engine

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"sitewatch/internal/collector"
)

func inc(code string, kind Kind, domain collector.Domain) Incident {
	return Incident{Code: code, Kind: kind, Domain: domain, Site: testSite}
}

func TestComputeRisk(t *testing.T) {
	doors := func(n int) []Incident {
		var out []Incident
		for i := 0; i < n; i++ {
			out = append(out, inc(fmt.Sprintf("TECH.DOOR.OPEN.DOOR-1.Door0%d", i+1), KindDoorOpen, collector.DomainDoor))
		}
		return out
	}

	tests := []struct {
		name      string
		incidents []Incident
		want      int
	}{
		{"empty", nil, 0},
		{"gateway outage", []Incident{inc("TECH.OFFLINE.GW-A-1", KindDisconnected, collector.DomainGatewayAlarm)}, 40},
		{"cascade", []Incident{inc("TECH.CASCADE.GW-M.UPS-1", KindDisconnected, collector.DomainUPS)}, 8},
		{"plain disconnect", []Incident{inc("TECH.OFFLINE.CAM-1", KindDisconnected, collector.DomainCamera)}, 25},
		{"status disconnect", []Incident{inc("TECH.STATUS.UPS.UPS-1", KindDisconnected, collector.DomainUPS)}, 25},
		{"zone fault", []Incident{inc("TECH.FACP.ZONE.3.FACP-1", KindShortCircuit, collector.DomainFACP)}, 30},
		{"one door", doors(1), 10},
		{"five doors capped", doors(5), 30},
		{"electrical threshold", []Incident{inc("TECH.THRESH.UPS-1.UPSVoltage.LOW", KindThreshold, collector.DomainUPS)}, 10},
		{"hydraulic threshold", []Incident{inc("TECH.THRESH.PUMP-1.PipePressure.HIGH", KindThreshold, collector.DomainPump)}, 8},
		{"water flow threshold", []Incident{inc("TECH.THRESH.PUMP-1.WaterFlow.LOW", KindThreshold, collector.DomainPump)}, 8},
		{
			"generator counted once",
			[]Incident{
				inc("TECH.OFFLINE.GEN-1", KindDisconnected, collector.DomainGenerator),
				inc("TECH.OFFLINE.GEN-2", KindDisconnected, collector.DomainGenerator),
			},
			15,
		},
		{
			"generator cascade scores as cascade",
			[]Incident{inc("TECH.CASCADE.GW-M.GEN-1", KindDisconnected, collector.DomainGenerator)},
			8,
		},
		{
			"facp scenario",
			[]Incident{
				inc("TECH.OFFLINE.GW-A-B", KindDisconnected, collector.DomainGatewayAlarm),
				inc("TECH.FACP.ZONE.3.FACP-02", KindShortCircuit, collector.DomainFACP),
				inc("TECH.CASCADE.GW-A.FACP-02", KindDisconnected, collector.DomainFACP),
			},
			78,
		},
		{
			"capped at 100",
			[]Incident{
				inc("TECH.OFFLINE.GW-A-1", KindDisconnected, collector.DomainGatewayAlarm),
				inc("TECH.OFFLINE.GW-M-1", KindDisconnected, collector.DomainGatewayMetrics),
				inc("TECH.FACP.ZONE.2.FACP-1", KindOpenCircuit, collector.DomainFACP),
				inc("TECH.OFFLINE.CAM-1", KindDisconnected, collector.DomainCamera),
			},
			100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeRisk(tt.incidents); got != tt.want {
				t.Errorf("%s: expected %d, got %d", tt.name, tt.want, got)
			}
		})
	}
}

func TestScoreRisk_Breakdown(t *testing.T) {
	b := ScoreRisk([]Incident{
		inc("TECH.OFFLINE.GW-M-A", KindDisconnected, collector.DomainGatewayMetrics),
		inc("TECH.CASCADE.GW-M.UPS-01", KindDisconnected, collector.DomainUPS),
		inc("TECH.DOOR.OPEN.DOOR-01.Door04", KindDoorOpen, collector.DomainDoor),
		inc("TECH.THRESH.PUMP-01.PipePressure.LOW", KindThreshold, collector.DomainPump),
	})

	if b.GatewayOutages != 1 || b.Cascades != 1 || b.DoorsOpen != 1 || b.Hydraulic != 1 {
		t.Errorf("unexpected counts %+v", b)
	}
	if b.MainPoints != 56 || b.DoorPoints != 10 || b.Score != 66 {
		t.Errorf("unexpected points %+v", b)
	}
}

func TestComputeRisk_MonotonicAndBounded(t *testing.T) {
	pool := []Incident{
		inc("TECH.OFFLINE.GW-A-1", KindDisconnected, collector.DomainGatewayAlarm),
		inc("TECH.OFFLINE.GW-M-1", KindDisconnected, collector.DomainGatewayMetrics),
		inc("TECH.CASCADE.GW-A.FACP-1", KindDisconnected, collector.DomainFACP),
		inc("TECH.OFFLINE.CAM-1", KindDisconnected, collector.DomainCamera),
		inc("TECH.OFFLINE.GEN-1", KindDisconnected, collector.DomainGenerator),
		inc("TECH.FACP.ZONE.2.FACP-1", KindOpenCircuit, collector.DomainFACP),
		inc("TECH.DOOR.OPEN.DOOR-1.Door01", KindDoorOpen, collector.DomainDoor),
		inc("TECH.THRESH.UPS-1.UPSCurrent.HIGH", KindThreshold, collector.DomainUPS),
		inc("TECH.THRESH.PUMP-1.WaterFlow.HIGH", KindThreshold, collector.DomainPump),
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 200; trial++ {
		var list []Incident
		prev := ComputeRisk(list)
		if prev != 0 {
			t.Fatalf("empty list scored %d", prev)
		}
		for step := 0; step < 25; step++ {
			list = append(list, pool[rng.IntN(len(pool))])
			score := ComputeRisk(list)
			if score < prev {
				t.Fatalf("trial %d: score dropped from %d to %d after adding %s", trial, prev, score, list[len(list)-1].Code)
			}
			if score < 0 || score > 100 {
				t.Fatalf("trial %d: score %d out of bounds", trial, score)
			}
			prev = score
		}
	}
}

func TestComputeRisk_OrderIndependent(t *testing.T) {
	list := []Incident{
		inc("TECH.OFFLINE.GW-A-1", KindDisconnected, collector.DomainGatewayAlarm),
		inc("TECH.DOOR.OPEN.DOOR-1.Door01", KindDoorOpen, collector.DomainDoor),
		inc("TECH.OFFLINE.GEN-1", KindDisconnected, collector.DomainGenerator),
		inc("TECH.THRESH.PUMP-1.WaterFlow.HIGH", KindThreshold, collector.DomainPump),
	}
	want := ComputeRisk(list)

	reversed := make([]Incident, len(list))
	for i, x := range list {
		reversed[len(list)-1-i] = x
	}
	if got := ComputeRisk(reversed); got != want {
		t.Errorf("order changed score: %d vs %d", got, want)
	}
}
