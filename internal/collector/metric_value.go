package collector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MetricKind tags which half of a MetricValue is populated.
type MetricKind uint8

const (
	MetricUnset MetricKind = iota
	MetricNumeric
	MetricStatus
)

// MetricValue is either a numeric reading or a short status string
// ("ON", "OFF", "Open", "Online", ...). The zero value is unset.
type MetricValue struct {
	kind   MetricKind
	num    float64
	status string
}

// Numeric builds a numeric metric value.
func Numeric(v float64) MetricValue {
	return MetricValue{kind: MetricNumeric, num: v}
}

// Status builds a status-string metric value.
func Status(s string) MetricValue {
	return MetricValue{kind: MetricStatus, status: s}
}

func (v MetricValue) Kind() MetricKind { return v.kind }

// Float returns the numeric reading and true, or false for status values.
func (v MetricValue) Float() (float64, bool) {
	return v.num, v.kind == MetricNumeric
}

// Text returns the status string and true, or false for numeric values.
func (v MetricValue) Text() (string, bool) {
	return v.status, v.kind == MetricStatus
}

// String renders the value the way it is shown in incident details.
func (v MetricValue) String() string {
	switch v.kind {
	case MetricNumeric:
		return FormatNumber(v.num)
	case MetricStatus:
		return v.status
	default:
		return ""
	}
}

// FormatNumber prints a reading with the shortest exact representation (198, 2.4, -1).
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (v MetricValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case MetricNumeric:
		return json.Marshal(v.num)
	case MetricStatus:
		return json.Marshal(v.status)
	default:
		return []byte("null"), nil
	}
}

func (v *MetricValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return fmt.Errorf("metric value: null is not allowed")
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("metric value: %w", err)
		}
		*v = Status(s)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("metric value: expected number or string: %w", err)
		}
		*v = Numeric(f)
	}
	return nil
}

func (v MetricValue) MarshalYAML() (any, error) {
	switch v.kind {
	case MetricNumeric:
		return v.num, nil
	case MetricStatus:
		return v.status, nil
	default:
		return nil, nil
	}
}

func (v *MetricValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("metric value at line %d: expected a scalar", node.Line)
	}
	switch node.Tag {
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return fmt.Errorf("metric value at line %d: %w", node.Line, err)
		}
		*v = Numeric(f)
	case "!!null":
		return fmt.Errorf("metric value at line %d: null is not allowed", node.Line)
	default:
		*v = Status(node.Value)
	}
	return nil
}
