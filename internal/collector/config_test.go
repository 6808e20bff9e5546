package collector

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultSimulatorConfig(t *testing.T) {
	cfg := DefaultSimulatorConfig()

	if cfg.PollInterval != 2*time.Second {
		t.Errorf("Expected PollInterval 2s, got %v", cfg.PollInterval)
	}
	if !cfg.Mutate {
		t.Error("Expected Mutate to be true by default")
	}
	if cfg.RecoverChance != 0.1 {
		t.Errorf("Expected RecoverChance 0.1, got %v", cfg.RecoverChance)
	}
	if cfg.SeedFile != "" {
		t.Errorf("Expected empty SeedFile, got '%s'", cfg.SeedFile)
	}
	if cfg.ClockFormat != "15:04:05" {
		t.Errorf("Expected ClockFormat '15:04:05', got '%s'", cfg.ClockFormat)
	}
}

func TestSimulatorConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SimulatorConfig
		wantErr bool
		field   string
	}{
		{
			name:    "valid default config",
			cfg:     DefaultSimulatorConfig(),
			wantErr: false,
		},
		{
			name:    "zero poll interval",
			cfg:     DefaultSimulatorConfig().WithPollInterval(0),
			wantErr: true,
			field:   "PollInterval",
		},
		{
			name: "recover chance above one",
			cfg: SimulatorConfig{
				PollInterval:  time.Second,
				RecoverChance: 1.5,
				ClockFormat:   "15:04",
			},
			wantErr: true,
			field:   "RecoverChance",
		},
		{
			name: "negative drop chance",
			cfg: SimulatorConfig{
				PollInterval: time.Second,
				DropChance:   -0.1,
				ClockFormat:  "15:04",
			},
			wantErr: true,
			field:   "DropChance",
		},
		{
			name: "empty clock format",
			cfg: SimulatorConfig{
				PollInterval: time.Second,
			},
			wantErr: true,
			field:   "ClockFormat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestSimulatorConfig_WithMethods(t *testing.T) {
	cfg := DefaultSimulatorConfig()

	newCfg := cfg.WithPollInterval(500 * time.Millisecond)
	if newCfg.PollInterval != 500*time.Millisecond {
		t.Errorf("WithPollInterval failed, got %v", newCfg.PollInterval)
	}
	// Original should be unchanged
	if cfg.PollInterval != 2*time.Second {
		t.Error("WithPollInterval mutated original config")
	}

	newCfg = cfg.WithSeedFile("sites.yaml")
	if newCfg.SeedFile != "sites.yaml" {
		t.Errorf("WithSeedFile failed, got %s", newCfg.SeedFile)
	}

	newCfg = cfg.WithMutation(false)
	if newCfg.Mutate {
		t.Error("WithMutation(false) failed")
	}

	newCfg = cfg.WithRandomSeed(42)
	if newCfg.RandomSeed != 42 {
		t.Errorf("WithRandomSeed failed, got %d", newCfg.RandomSeed)
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "TestField",
		Message: "test message",
	}

	expected := "config error: TestField test message"
	if err.Error() != expected {
		t.Errorf("Expected error '%s', got '%s'", expected, err.Error())
	}
}
