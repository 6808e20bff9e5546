// Package config loads sitewatch settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sitewatch/internal/collector"
	"sitewatch/internal/flagger"
)

// Config is the full application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Risk      RiskConfig      `mapstructure:"risk"`
	DuckDB    DuckDBConfig    `mapstructure:"duckdb"`
	Neo4j     Neo4jConfig     `mapstructure:"neo4j"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	MCP       MCPConfig       `mapstructure:"mcp"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type SimulatorConfig struct {
	SeedFile     string        `mapstructure:"seed_file"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Mutate       bool          `mapstructure:"mutate"`
	RandomSeed   uint64        `mapstructure:"random_seed"`
}

type RiskConfig struct {
	High   int `mapstructure:"high"`
	Medium int `mapstructure:"medium"`
}

type DuckDBConfig struct {
	Path          string `mapstructure:"path"` // empty keeps the index in memory
	Threads       int    `mapstructure:"threads"`
	MemoryLimitGB int    `mapstructure:"memory_limit_gb"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"` // empty disables the graph
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type MCPConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// legacyEnv maps keys onto the unprefixed variables older deployments export.
var legacyEnv = map[string]string{
	"gemini.api_key": "GEMINI_API_KEY",
	"gemini.model":   "GEMINI_MODEL",
	"neo4j.uri":      "NEO4J_URI",
	"neo4j.user":     "NEO4J_USER",
	"neo4j.password": "NEO4J_PASSWORD",
	"duckdb.path":    "DUCKDB_PATH",
}

func setDefaults(v *viper.Viper) {
	sim := collector.DefaultSimulatorConfig()
	risk := flagger.DefaultConfig()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")

	v.SetDefault("simulator.seed_file", "")
	v.SetDefault("simulator.poll_interval", sim.PollInterval)
	v.SetDefault("simulator.mutate", sim.Mutate)
	v.SetDefault("simulator.random_seed", 0)

	v.SetDefault("risk.high", risk.High)
	v.SetDefault("risk.medium", risk.Medium)

	v.SetDefault("duckdb.path", "")
	v.SetDefault("duckdb.threads", 0)
	v.SetDefault("duckdb.memory_limit_gb", 0)

	v.SetDefault("neo4j.uri", "")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "neo4j")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "flash")

	v.SetDefault("mcp.name", "sitewatch")
	v.SetDefault("mcp.version", "1.0.0")
}

// Load reads path (YAML) when given, otherwise an optional ./sitewatch.yaml,
// then overlays SITEWATCH_* variables (SITEWATCH_SIMULATOR_POLL_INTERVAL etc.)
// and the unprefixed legacy variables.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SITEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := "SITEWATCH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("sitewatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail deep inside a component.
func (c Config) Validate() error {
	if err := c.SimulatorConfig().Validate(); err != nil {
		return &ConfigError{Field: "simulator", Message: err.Error()}
	}
	if err := c.FlaggerConfig().Validate(); err != nil {
		return &ConfigError{Field: "risk", Message: err.Error()}
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return &ConfigError{Field: "log.format", Message: "must be json or console"}
	}
	if c.DuckDB.Threads < 0 || c.DuckDB.MemoryLimitGB < 0 {
		return &ConfigError{Field: "duckdb", Message: "threads and memory limit must not be negative"}
	}
	if c.Gemini.APIKey != "" && c.Neo4j.URI == "" {
		return &ConfigError{Field: "gemini.api_key", Message: "requires neo4j.uri"}
	}
	return nil
}

// SimulatorConfig converts the simulator section.
func (c Config) SimulatorConfig() collector.SimulatorConfig {
	return collector.DefaultSimulatorConfig().
		WithSeedFile(c.Simulator.SeedFile).
		WithPollInterval(c.Simulator.PollInterval).
		WithMutation(c.Simulator.Mutate).
		WithRandomSeed(c.Simulator.RandomSeed)
}

// FlaggerConfig converts the risk section.
func (c Config) FlaggerConfig() flagger.Config {
	return flagger.Config{High: c.Risk.High, Medium: c.Risk.Medium}
}

// GraphEnabled reports whether a Neo4j endpoint is configured.
func (c Config) GraphEnabled() bool {
	return c.Neo4j.URI != ""
}

// AskEnabled reports whether natural-language questions can be answered.
func (c Config) AskEnabled() bool {
	return c.GraphEnabled() && c.Gemini.APIKey != ""
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}
