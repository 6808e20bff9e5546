package engine

import "sort"

// MetricSpec is the acceptable inclusive range of one numeric metric.
type MetricSpec struct {
	Min         float64
	Max         float64
	Unit        string
	Label       string
	LowMessage  string
	HighMessage string
}

// Side says which bound a reading crossed.
type Side string

const (
	SideLow  Side = "low"
	SideHigh Side = "high"
)

// RangeVerdict describes an out-of-range reading.
type RangeVerdict struct {
	Side    Side
	Message string
	Spec    MetricSpec
}

var metricSpecs = map[string]MetricSpec{
	"ACVoltage":    {Min: 200, Max: 250, Unit: "V", Label: "Điện áp AC (FACP)", LowMessage: "Điện áp AC quá thấp", HighMessage: "Điện áp AC quá cao"},
	"DCVoltage":    {Min: 20, Max: 30, Unit: "V", Label: "Điện áp DC (FACP)", LowMessage: "Điện áp DC quá thấp", HighMessage: "Điện áp DC quá cao"},
	"UPSVoltage":   {Min: 200, Max: 250, Unit: "V", Label: "Điện áp UPS (V)", LowMessage: "Điện áp AC quá thấp", HighMessage: "Điện áp AC quá cao"},
	"UPSCurrent":   {Min: 0, Max: 20, Unit: "A", Label: "Dòng điện UPS (A)", LowMessage: "Dòng điện UPS quá thấp", HighMessage: "Dòng điện UPS quá cao"},
	"FANVoltage":   {Min: 200, Max: 250, Unit: "V", Label: "Điện áp Quạt (V)", LowMessage: "Điện áp AC quá thấp", HighMessage: "Điện áp AC quá cao"},
	"FANCurrent":   {Min: 0, Max: 10, Unit: "A", Label: "Dòng điện Quạt (A)", LowMessage: "Dòng điện Quạt quá thấp", HighMessage: "Dòng điện Quạt quá cao"},
	"PUMPVoltage":  {Min: 200, Max: 250, Unit: "V", Label: "Điện áp Bơm (V)", LowMessage: "Điện áp AC quá thấp", HighMessage: "Điện áp AC quá cao"},
	"PUMPCurrent":  {Min: 0, Max: 20, Unit: "A", Label: "Dòng điện Bơm (A)", LowMessage: "Dòng điện quá thấp", HighMessage: "Dòng điện quá cao"},
	"WaterFlow":    {Min: 5, Max: 20, Unit: "m³/h", Label: "Lưu lượng nước (m³/h)", LowMessage: "Lưu lượng nước quá thấp", HighMessage: "Lưu lượng nước quá cao"},
	"PipePressure": {Min: 10, Max: 50, Unit: "bar", Label: "Áp suất đường ống (bar)", LowMessage: "Áp suất đường ống quá thấp", HighMessage: "Áp suất đường ống quá cao"},
}

// LookupMetricSpec returns the spec registered for name.
func LookupMetricSpec(name string) (MetricSpec, bool) {
	s, ok := metricSpecs[name]
	return s, ok
}

// MetricNames lists the registered numeric metrics in sorted order.
func MetricNames() []string {
	names := make([]string, 0, len(metricSpecs))
	for n := range metricSpecs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ClassifyRange checks a reading against the table. ok is false when the
// metric is unknown or the value lies within [Min, Max].
func ClassifyRange(name string, value float64) (RangeVerdict, bool) {
	spec, known := metricSpecs[name]
	if !known {
		return RangeVerdict{}, false
	}
	switch {
	case value < spec.Min:
		return RangeVerdict{Side: SideLow, Message: spec.LowMessage, Spec: spec}, true
	case value > spec.Max:
		return RangeVerdict{Side: SideHigh, Message: spec.HighMessage, Spec: spec}, true
	default:
		return RangeVerdict{}, false
	}
}
