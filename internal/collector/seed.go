package collector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is the on-disk layout of a seed document.
//
//	sites:
//	  - id: SITE-A
//	    name: Chi nhánh A
//	    address: Tòa nhà A, 123 Đường XYZ
//	    devices:
//	      - id: FACP-01
//	        domain: FACP
//	        online: true
//	        uplink: GW-A
//	        updated_at: "10:42"
//	        metrics: {ACVoltage: 260, ZoneStatus: 2}
type SeedFile struct {
	Sites []SeedSite `yaml:"sites"`
}

type SeedSite struct {
	Site    `yaml:",inline"`
	Devices []SeedDevice `yaml:"devices"`
}

type SeedDevice struct {
	ID        string                 `yaml:"id"`
	Domain    Domain                 `yaml:"domain"`
	Online    bool                   `yaml:"online"`
	Uplink    Domain                 `yaml:"uplink,omitempty"`
	UpdatedAt string                 `yaml:"updated_at"`
	Metrics   map[string]MetricValue `yaml:"metrics,omitempty"`
}

// SeedError reports an invalid device in seed data.
type SeedError struct {
	DeviceID string
	Message  string
}

func (e *SeedError) Error() string {
	return "seed error: device " + e.DeviceID + " " + e.Message
}

// LoadSeedFile reads and validates a YAML seed document.
func LoadSeedFile(path string) ([]DeviceSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a YAML seed document into validated snapshots.
func ParseSeed(data []byte) ([]DeviceSnapshot, error) {
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	var devices []DeviceSnapshot
	for _, s := range f.Sites {
		for _, d := range s.Devices {
			devices = append(devices, DeviceSnapshot{
				ID:        d.ID,
				Domain:    d.Domain,
				Site:      s.Site,
				Online:    d.Online,
				Uplink:    d.Uplink,
				Metrics:   d.Metrics,
				UpdatedAt: d.UpdatedAt,
			})
		}
	}

	if err := ValidateSnapshots(devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// EncodeSeed writes devices back into the seed layout, grouped by site.
func EncodeSeed(devices []DeviceSnapshot) ([]byte, error) {
	var f SeedFile
	index := make(map[string]int)
	for _, d := range devices {
		i, ok := index[d.Site.ID]
		if !ok {
			i = len(f.Sites)
			index[d.Site.ID] = i
			f.Sites = append(f.Sites, SeedSite{Site: d.Site})
		}
		f.Sites[i].Devices = append(f.Sites[i].Devices, SeedDevice{
			ID:        d.ID,
			Domain:    d.Domain,
			Online:    d.Online,
			Uplink:    d.Uplink,
			UpdatedAt: d.UpdatedAt,
			Metrics:   d.Metrics,
		})
	}
	return yaml.Marshal(&f)
}

// ValidateSnapshots checks referential integrity of a device set.
func ValidateSnapshots(devices []DeviceSnapshot) error {
	if len(devices) == 0 {
		return &SeedError{DeviceID: "-", Message: "no devices defined"}
	}
	seen := make(map[string]bool, len(devices))
	for _, d := range devices {
		if d.ID == "" {
			return &SeedError{DeviceID: "-", Message: "has an empty id"}
		}
		if seen[d.ID] {
			return &SeedError{DeviceID: d.ID, Message: "is defined twice"}
		}
		seen[d.ID] = true

		if d.Site.ID == "" {
			return &SeedError{DeviceID: d.ID, Message: "has no site"}
		}
		if !d.Domain.Valid() {
			return &SeedError{DeviceID: d.ID, Message: fmt.Sprintf("has unknown domain %q", d.Domain)}
		}
		if d.Uplink != "" && !d.Uplink.IsGateway() {
			return &SeedError{DeviceID: d.ID, Message: fmt.Sprintf("uplink %q is not a gateway domain", d.Uplink)}
		}
		if d.Domain.IsGateway() && d.Uplink != "" {
			return &SeedError{DeviceID: d.ID, Message: "is a gateway and cannot have an uplink"}
		}
		for k, v := range d.Metrics {
			if v.Kind() == MetricUnset {
				return &SeedError{DeviceID: d.ID, Message: fmt.Sprintf("metric %s has no value", k)}
			}
		}
	}
	return nil
}

// DefaultSeed returns the two-branch demo installation.
func DefaultSeed() []DeviceSnapshot {
	siteA := Site{ID: "SITE-A", Name: "Chi nhánh A", Address: "Tòa nhà A, 123 Đường XYZ"}
	siteB := Site{ID: "SITE-B", Name: "Chi nhánh B", Address: "Tòa nhà B, 456 Đường ABC"}

	dev := func(id string, domain Domain, site Site, online bool, uplink Domain, at string, m map[string]MetricValue) DeviceSnapshot {
		if m == nil {
			m = map[string]MetricValue{}
		}
		return DeviceSnapshot{ID: id, Domain: domain, Site: site, Online: online, Uplink: uplink, Metrics: m, UpdatedAt: at}
	}

	return []DeviceSnapshot{
		// SITE-A: metrics gateway down, everything behind it cascades
		dev("GW-A-A", DomainGatewayAlarm, siteA, true, "", "10:40", nil),
		dev("GW-M-A", DomainGatewayMetrics, siteA, false, "", "10:41", nil),
		dev("FACP-01", DomainFACP, siteA, true, DomainGatewayAlarm, "10:42", map[string]MetricValue{
			"ACVoltage": Numeric(260), "DCVoltage": Numeric(35), "ZoneStatus": Numeric(2),
		}),
		dev("UPS-01", DomainUPS, siteA, true, DomainGatewayMetrics, "10:43", map[string]MetricValue{
			"UPSVoltage": Numeric(210), "UPSCurrent": Numeric(2.4), "UPSStatus": Status("ON"),
		}),
		dev("FAN-01", DomainFan, siteA, true, DomainGatewayMetrics, "10:44", map[string]MetricValue{
			"FANVoltage": Numeric(230), "FANCurrent": Numeric(6.5), "FANStatus": Status("ON"),
		}),
		dev("PUMP-01", DomainPump, siteA, true, DomainGatewayMetrics, "10:45", map[string]MetricValue{
			"PUMPVoltage": Numeric(380), "PUMPCurrent": Numeric(25), "WaterFlow": Numeric(9.5),
			"PipePressure": Numeric(5.2), "PUMPStatus": Status("ON"),
		}),
		dev("DOOR-01", DomainDoor, siteA, true, DomainGatewayMetrics, "10:46", map[string]MetricValue{
			"Door01": Status("Close"), "Door02": Status("Close"), "Door03": Status("Close"),
			"Door04": Status("Open"), "Door05": Status("Close"),
		}),
		dev("GEN-01", DomainGenerator, siteA, true, DomainGatewayMetrics, "10:47", map[string]MetricValue{
			"GenStatus": Status("Online"),
		}),
		dev("CAM-01", DomainCamera, siteA, true, "", "10:48", nil),

		// SITE-B: alarm gateway down, FACP cascades
		dev("GW-A-B", DomainGatewayAlarm, siteB, false, "", "10:40", nil),
		dev("GW-M-B", DomainGatewayMetrics, siteB, true, "", "10:41", nil),
		dev("FACP-02", DomainFACP, siteB, true, DomainGatewayAlarm, "10:42", map[string]MetricValue{
			"ACVoltage": Numeric(180), "DCVoltage": Numeric(15), "ZoneStatus": Numeric(3),
		}),
		dev("UPS-02", DomainUPS, siteB, true, DomainGatewayMetrics, "10:43", map[string]MetricValue{
			"UPSVoltage": Numeric(198), "UPSCurrent": Numeric(21), "UPSStatus": Status("OFF"),
		}),
		dev("FAN-02", DomainFan, siteB, true, DomainGatewayMetrics, "10:44", map[string]MetricValue{
			"FANVoltage": Numeric(180), "FANCurrent": Numeric(-1), "FANStatus": Status("OFF"),
		}),
		dev("PUMP-02", DomainPump, siteB, true, DomainGatewayMetrics, "10:45", map[string]MetricValue{
			"PUMPVoltage": Numeric(210), "PUMPCurrent": Numeric(15), "WaterFlow": Numeric(25),
			"PipePressure": Numeric(60), "PUMPStatus": Status("ON"),
		}),
		dev("DOOR-02", DomainDoor, siteB, true, DomainGatewayMetrics, "10:46", map[string]MetricValue{
			"Door01": Status("Open"), "Door02": Status("Close"), "Door03": Status("Open"),
			"Door04": Status("Close"), "Door5": Status("Close"),
		}),
		dev("GEN-02", DomainGenerator, siteB, true, DomainGatewayMetrics, "10:47", map[string]MetricValue{
			"GenStatus": Status("Offline"),
		}),
		dev("CAM-02", DomainCamera, siteB, false, "", "10:48", nil),
	}
}
