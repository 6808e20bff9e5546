package collector

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleSeed = `
sites:
  - id: SITE-X
    name: Chi nhánh X
    address: 1 Test Street
    devices:
      - id: GW-A-X
        domain: GW-A
        online: false
        updated_at: "09:00"
      - id: FACP-X
        domain: FACP
        online: true
        uplink: GW-A
        updated_at: "09:01"
        metrics:
          ACVoltage: 230
          DCVoltage: 24.5
          ZoneStatus: 3
      - id: UPS-X
        domain: UPS
        online: true
        uplink: GW-M
        updated_at: "09:02"
        metrics:
          UPSStatus: "OFF"
          UPSCurrent: 2
`

func TestParseSeed(t *testing.T) {
	devices, err := ParseSeed([]byte(sampleSeed))
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("expected 3 devices, got %d", len(devices))
	}

	facp := devices[1]
	if facp.Site.Name != "Chi nhánh X" || facp.Site.ID != "SITE-X" {
		t.Errorf("site not carried onto device: %+v", facp.Site)
	}
	if facp.Uplink != DomainGatewayAlarm {
		t.Errorf("expected uplink GW-A, got %s", facp.Uplink)
	}
	if f, ok := facp.Metrics["DCVoltage"].Float(); !ok || f != 24.5 {
		t.Errorf("DCVoltage = %v (numeric=%v)", f, ok)
	}
	if f, ok := facp.Metrics["ZoneStatus"].Float(); !ok || f != 3 {
		t.Errorf("ZoneStatus = %v (numeric=%v)", f, ok)
	}

	ups := devices[2]
	if s, ok := ups.Metrics["UPSStatus"].Text(); !ok || s != "OFF" {
		t.Errorf("UPSStatus = %q (status=%v)", s, ok)
	}
}

func TestParseSeed_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "sites: [unclosed"},
		{"unknown domain", "sites:\n  - id: S\n    devices:\n      - id: D\n        domain: Sprinkler\n"},
		{"null metric", "sites:\n  - id: S\n    devices:\n      - id: D\n        domain: UPS\n        metrics:\n          UPSVoltage: ~\n"},
		{"nested metric", "sites:\n  - id: S\n    devices:\n      - id: D\n        domain: UPS\n        metrics:\n          UPSVoltage: [1, 2]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSeed([]byte(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEncodeSeed_RoundTripsDefaultSeed(t *testing.T) {
	data, err := EncodeSeed(DefaultSeed())
	if err != nil {
		t.Fatalf("EncodeSeed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}

	want := DefaultSeed()
	for i := range want {
		if len(want[i].Metrics) == 0 {
			want[i].Metrics = nil
		}
	}
	if !reflect.DeepEqual(loaded, want) {
		t.Error("default seed did not survive encode/load")
	}
}

func TestMetricValue_JSON(t *testing.T) {
	in := map[string]MetricValue{
		"UPSVoltage": Numeric(198),
		"UPSStatus":  Status("OFF"),
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"UPSStatus":"OFF","UPSVoltage":198}` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var out map[string]MetricValue
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("got %+v, want %+v", out, in)
	}

	var bad MetricValue
	if err := json.Unmarshal([]byte("null"), &bad); err == nil {
		t.Error("expected error for null metric")
	}
	if err := json.Unmarshal([]byte("true"), &bad); err == nil {
		t.Error("expected error for boolean metric")
	}
}

func TestMetricValue_String(t *testing.T) {
	tests := []struct {
		v    MetricValue
		want string
	}{
		{Numeric(198), "198"},
		{Numeric(2.4), "2.4"},
		{Numeric(-1), "-1"},
		{Status("Open"), "Open"},
		{MetricValue{}, ""},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
