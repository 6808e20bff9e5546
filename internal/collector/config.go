package collector

import "time"

// SimulatorConfig contains configurable parameters for the telemetry simulator.
// Use DefaultSimulatorConfig() to get sensible defaults, then override as needed.
type SimulatorConfig struct {
	// Source
	SeedFile string // YAML seed path or http(s) URL; empty uses DefaultSeed()

	// Cadence
	PollInterval time.Duration // How often the worker/TUI pulls a new pass (default: 2s)

	// Mutation
	Mutate        bool    // Apply the random walk on every pull (default: true)
	RandomSeed    uint64  // PRNG seed; 0 derives one from the clock
	RecoverChance float64 // Probability an offline device comes back per pull (default: 0.1)
	DropChance    float64 // Probability an online device drops per pull (default: 0.02)

	// Display
	ClockFormat string // Layout stamped into UpdatedAt on mutation (default: "15:04:05")
}

// DefaultSimulatorConfig returns a SimulatorConfig with sensible defaults.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		PollInterval:  2 * time.Second,
		Mutate:        true,
		RecoverChance: 0.1,
		DropChance:    0.02,
		ClockFormat:   "15:04:05",
	}
}

// WithSeedFile returns a copy of the config reading devices from path.
func (c SimulatorConfig) WithSeedFile(path string) SimulatorConfig {
	c.SeedFile = path
	return c
}

// WithPollInterval returns a copy of the config with modified poll interval.
func (c SimulatorConfig) WithPollInterval(d time.Duration) SimulatorConfig {
	c.PollInterval = d
	return c
}

// WithMutation returns a copy of the config with the random walk enabled/disabled.
func (c SimulatorConfig) WithMutation(enabled bool) SimulatorConfig {
	c.Mutate = enabled
	return c
}

// WithRandomSeed returns a copy of the config with a fixed PRNG seed.
func (c SimulatorConfig) WithRandomSeed(seed uint64) SimulatorConfig {
	c.RandomSeed = seed
	return c
}

// Validate checks if the configuration is valid and returns an error if not.
func (c SimulatorConfig) Validate() error {
	if c.PollInterval <= 0 {
		return &ConfigError{Field: "PollInterval", Message: "must be positive"}
	}
	if c.RecoverChance < 0 || c.RecoverChance > 1 {
		return &ConfigError{Field: "RecoverChance", Message: "must be within [0,1]"}
	}
	if c.DropChance < 0 || c.DropChance > 1 {
		return &ConfigError{Field: "DropChance", Message: "must be within [0,1]"}
	}
	if c.ClockFormat == "" {
		return &ConfigError{Field: "ClockFormat", Message: "must not be empty"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}
