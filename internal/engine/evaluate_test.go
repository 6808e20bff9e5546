package engine

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"sitewatch/internal/collector"
)

func TestEvaluate_DefaultSeed(t *testing.T) {
	res := Evaluate(collector.DefaultSeed())

	bySite := BySite(res.Incidents)
	if n := len(bySite["SITE-A"]); n != 13 {
		t.Errorf("SITE-A: expected 13 incidents, got %d: %v", n, codes(bySite["SITE-A"]))
	}
	if n := len(bySite["SITE-B"]); n != 16 {
		t.Errorf("SITE-B: expected 16 incidents, got %d: %v", n, codes(bySite["SITE-B"]))
	}

	if len(res.RiskBySite) != 2 {
		t.Fatalf("expected risk for 2 sites, got %v", res.RiskBySite)
	}
	for site, score := range res.RiskBySite {
		if score != 100 {
			t.Errorf("%s: expected saturated risk 100, got %d", site, score)
		}
	}

	cascades := 0
	for _, inc := range bySite["SITE-A"] {
		if inc.IsCascade() {
			cascades++
			if !strings.HasPrefix(inc.Code, "TECH.CASCADE.GW-M.") {
				t.Errorf("SITE-A cascades come from GW-M, got %s", inc.Code)
			}
		}
	}
	if cascades != 5 {
		t.Errorf("SITE-A: expected 5 cascades, got %d", cascades)
	}
}

func TestEvaluate_CodesUnique(t *testing.T) {
	res := Evaluate(collector.DefaultSeed())

	seen := make(map[string]bool)
	for _, inc := range res.Incidents {
		if seen[inc.Code] {
			t.Errorf("duplicate code %s", inc.Code)
		}
		seen[inc.Code] = true
	}
}

func TestEvaluate_CascadesAfterDirect(t *testing.T) {
	res := Evaluate(collector.DefaultSeed())

	firstCascade := -1
	for i, inc := range res.Incidents {
		if inc.IsCascade() && firstCascade < 0 {
			firstCascade = i
		}
		if !inc.IsCascade() && firstCascade >= 0 {
			t.Fatalf("direct incident %s appears after cascades", inc.Code)
		}
	}
}

func TestEvaluate_FACPScenario(t *testing.T) {
	devices := []collector.DeviceSnapshot{
		gateway("GW-A-B", collector.DomainGatewayAlarm, false, "10:40"),
		gateway("GW-M-B", collector.DomainGatewayMetrics, true, "10:41"),
		{
			ID:        "FACP-02",
			Domain:    collector.DomainFACP,
			Site:      testSite,
			Online:    true,
			Uplink:    collector.DomainGatewayAlarm,
			Metrics:   map[string]collector.MetricValue{"ZoneStatus": collector.Numeric(3)},
			UpdatedAt: "10:42",
		},
	}

	res := Evaluate(devices)
	want := []string{"TECH.OFFLINE.GW-A-B", "TECH.FACP.ZONE.3.FACP-02", "TECH.CASCADE.GW-A.FACP-02"}
	if !reflect.DeepEqual(codes(res.Incidents), want) {
		t.Fatalf("got %v, want %v", codes(res.Incidents), want)
	}
	if got := res.RiskBySite[testSite.ID]; got != 78 {
		t.Errorf("expected risk 78, got %d", got)
	}
}

func TestEvaluate_CleanSiteScoresZero(t *testing.T) {
	devices := []collector.DeviceSnapshot{
		gateway("GW-A-1", collector.DomainGatewayAlarm, true, "10:00"),
		device("UPS-1", collector.DomainUPS, true, map[string]collector.MetricValue{
			"UPSVoltage": collector.Numeric(220),
			"UPSStatus":  collector.Status("ON"),
		}),
	}

	res := Evaluate(devices)
	if len(res.Incidents) != 0 {
		t.Errorf("expected no incidents, got %v", codes(res.Incidents))
	}
	if score, ok := res.RiskBySite[testSite.ID]; !ok || score != 0 {
		t.Errorf("clean site should be present with 0, got %d (present=%v)", score, ok)
	}
}

func TestEvaluate_EmptyInput(t *testing.T) {
	res := Evaluate(nil)
	if res.Incidents == nil || len(res.Incidents) != 0 {
		t.Errorf("expected empty non-nil incidents, got %#v", res.Incidents)
	}
	if len(res.RiskBySite) != 0 {
		t.Errorf("expected empty risk map, got %v", res.RiskBySite)
	}
}

func TestEvaluate_DoesNotMutateInput(t *testing.T) {
	devices := collector.DefaultSeed()
	before := collector.CloneAll(devices)

	Evaluate(devices)
	if !reflect.DeepEqual(devices, before) {
		t.Error("Evaluate mutated its input")
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	devices := collector.DefaultSeed()
	first := Evaluate(devices)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := Evaluate(collector.CloneAll(devices))
			if !reflect.DeepEqual(got, first) {
				t.Error("concurrent evaluation diverged")
			}
		}()
	}
	wg.Wait()
}
