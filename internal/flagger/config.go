package flagger

// RiskLevel is the operator-facing band of a site risk score.
type RiskLevel string

const (
	LevelHigh   RiskLevel = "Cao"
	LevelMedium RiskLevel = "Trung bình"
	LevelLow    RiskLevel = "Thấp"
)

// Config holds the score bands. A score at or above High is LevelHigh,
// at or above Medium is LevelMedium, anything else LevelLow.
type Config struct {
	High   int
	Medium int
}

func DefaultConfig() Config {
	return Config{High: 70, Medium: 40}
}

// Level maps a score onto its band.
func (c Config) Level(score int) RiskLevel {
	switch {
	case score >= c.High:
		return LevelHigh
	case score >= c.Medium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Validate checks the bands are ordered and inside [0, 100].
func (c Config) Validate() error {
	if c.Medium < 0 || c.High > 100 {
		return &ConfigError{Field: "bands", Message: "must be within [0,100]"}
	}
	if c.Medium > c.High {
		return &ConfigError{Field: "Medium", Message: "must not exceed High"}
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
