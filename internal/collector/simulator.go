package collector

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// walk bounds the random step applied to a numeric reading on each pull.
type walk struct {
	Step float64
	Min  float64
	Max  float64
}

var numericWalks = map[string]walk{
	"ACVoltage":    {Step: 4, Min: 180, Max: 260},
	"DCVoltage":    {Step: 1, Min: 15, Max: 35},
	"UPSVoltage":   {Step: 2, Min: 190, Max: 260},
	"UPSCurrent":   {Step: 1.5, Min: 0, Max: 25},
	"FANVoltage":   {Step: 2, Min: 190, Max: 260},
	"FANCurrent":   {Step: 1, Min: -1, Max: 12},
	"PUMPVoltage":  {Step: 3, Min: 190, Max: 400},
	"PUMPCurrent":  {Step: 2, Min: 0, Max: 25},
	"WaterFlow":    {Step: 2.5, Min: 0, Max: 30},
	"PipePressure": {Step: 3, Min: 0, Max: 70},
}

// toggle flips a two-state status string with the given probability.
type toggle struct {
	Chance float64
	On     string
	Off    string
}

var statusToggles = map[string]toggle{
	"UPSStatus":  {Chance: 0.03, On: "ON", Off: "OFF"},
	"FANStatus":  {Chance: 0.03, On: "ON", Off: "OFF"},
	"PUMPStatus": {Chance: 0.03, On: "ON", Off: "OFF"},
	"GenStatus":  {Chance: 0.02, On: "Online", Off: "Offline"},
}

var doorToggle = toggle{Chance: 0.02, On: "Close", Off: "Open"}

const zoneFlipChance = 0.06

// Simulator owns a device set and hands out a fresh copy on every pull,
// optionally random-walking the readings first.
type Simulator struct {
	mu      sync.Mutex
	cfg     SimulatorConfig
	devices []DeviceSnapshot
	rng     *rand.Rand
	now     func() time.Time
}

// NewSimulator loads the configured seed (or the built-in one) and validates it.
func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	devices := DefaultSeed()
	if cfg.SeedFile != "" {
		loaded, err := LoadSeed(context.Background(), cfg.SeedFile)
		if err != nil {
			return nil, err
		}
		devices = loaded
	}
	return NewSimulatorFromDevices(cfg, devices)
}

// NewSimulatorFromDevices builds a simulator over a caller-supplied device set.
func NewSimulatorFromDevices(cfg SimulatorConfig, devices []DeviceSnapshot) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateSnapshots(devices); err != nil {
		return nil, err
	}

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	return &Simulator{
		cfg:     cfg,
		devices: CloneAll(devices),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:     time.Now,
	}, nil
}

// GetSnapshots implements SnapshotProvider.
func (s *Simulator) GetSnapshots(ctx context.Context) ([]DeviceSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get snapshots: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Mutate {
		s.stepLocked()
	}
	return CloneAll(s.devices), nil
}

// Peek returns the current device set without mutating it.
func (s *Simulator) Peek() []DeviceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CloneAll(s.devices)
}

// Step applies one random-walk tick regardless of cfg.Mutate.
func (s *Simulator) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepLocked()
}

// SetOnline forces the online flag of one device.
func (s *Simulator) SetOnline(id string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.devices {
		if s.devices[i].ID == id {
			s.devices[i].Online = online
			s.devices[i].UpdatedAt = s.now().Format(s.cfg.ClockFormat)
			return nil
		}
	}
	return fmt.Errorf("set online: unknown device %q", id)
}

func (s *Simulator) stepLocked() {
	stamp := s.now().Format(s.cfg.ClockFormat)
	for i := range s.devices {
		s.mutate(&s.devices[i], stamp)
	}
}

func (s *Simulator) mutate(d *DeviceSnapshot, stamp string) {
	if !d.Online {
		if s.rng.Float64() < s.cfg.RecoverChance {
			d.Online = true
			d.UpdatedAt = stamp
		}
		return
	}

	for _, key := range d.MetricKeys() {
		v := d.Metrics[key]

		if f, ok := v.Float(); ok {
			if key == "ZoneStatus" {
				if s.rng.Float64() < zoneFlipChance {
					d.Metrics[key] = Numeric(float64(s.rng.IntN(4)))
				}
				continue
			}
			if w, ok := numericWalks[key]; ok {
				next := clamp(f+(s.rng.Float64()-0.5)*w.Step, w.Min, w.Max)
				d.Metrics[key] = Numeric(math.Round(next*10) / 10)
			}
			continue
		}

		text, _ := v.Text()
		t, ok := statusToggles[key]
		if !ok && strings.HasPrefix(key, "Door") {
			t, ok = doorToggle, true
		}
		if ok && s.rng.Float64() < t.Chance {
			d.Metrics[key] = Status(t.flip(text))
		}
	}

	if s.rng.Float64() < s.cfg.DropChance {
		d.Online = false
	}
	d.UpdatedAt = stamp
}

func (t toggle) flip(current string) string {
	if strings.EqualFold(current, t.Off) {
		return t.On
	}
	return t.Off
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
