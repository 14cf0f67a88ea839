package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Pollutant identifies one of the four criteria pollutants tracked by the dataset.
type Pollutant string

const (
	Ozone           Pollutant = "O3"
	CarbonMonoxide  Pollutant = "CO"
	SulfurDioxide   Pollutant = "SO2"
	NitrogenDioxide Pollutant = "NO2"
)

// Pollutants lists the pollutants in column order.
var Pollutants = []Pollutant{Ozone, CarbonMonoxide, SulfurDioxide, NitrogenDioxide}

// LongName returns the human-readable pollutant name, e.g. "Ozone (O3)".
func (p Pollutant) LongName() string {
	switch p {
	case Ozone:
		return "Ozone (O3)"
	case CarbonMonoxide:
		return "Carbon Monoxide (CO)"
	case SulfurDioxide:
		return "Sulfur Dioxide (SO2)"
	case NitrogenDioxide:
		return "Nitrogen Dioxide (NO2)"
	default:
		return string(p)
	}
}

// Statistic is one of the three per-pollutant measurements.
type Statistic string

const (
	StatMean     Statistic = "Mean"
	StatMaxValue Statistic = "1st Max Value"
	StatAQI      Statistic = "AQI"
)

var statistics = []Statistic{StatMean, StatMaxValue, StatAQI}

// Metric names a single pollutant measurement column, e.g. "O3 1st Max Value".
type Metric struct {
	Pollutant Pollutant
	Statistic Statistic
}

// Column returns the dataset header for the metric.
func (m Metric) Column() string {
	return fmt.Sprintf("%s %s", m.Pollutant, m.Statistic)
}

// NumMetrics is the number of regression targets.
const NumMetrics = 12

// Metrics lists the twelve targets in their fixed order.
var Metrics = func() [NumMetrics]Metric {
	var out [NumMetrics]Metric
	i := 0
	for _, p := range Pollutants {
		for _, s := range statistics {
			out[i] = Metric{Pollutant: p, Statistic: s}
			i++
		}
	}
	return out
}()

// MetricColumns returns the dataset headers of [Metrics] in order.
func MetricColumns() []string {
	cols := make([]string, NumMetrics)
	for i, m := range Metrics {
		cols[i] = m.Column()
	}
	return cols
}

// MetricIndex returns the position of a metric in [Metrics].
func MetricIndex(p Pollutant, s Statistic) int {
	for i, m := range Metrics {
		if m.Pollutant == p && m.Statistic == s {
			return i
		}
	}
	return -1
}

// Readings holds the twelve pollutant metrics of an observation or prediction,
// ordered like [Metrics].
type Readings [NumMetrics]float64

// Get returns the value of one metric.
func (r Readings) Get(p Pollutant, s Statistic) float64 {
	return r[MetricIndex(p, s)]
}

// AQI returns the sub-index of a single pollutant.
func (r Readings) AQI(p Pollutant) float64 {
	return r.Get(p, StatAQI)
}

// SubIndices returns the four AQI sub-indices in pollutant order.
func (r Readings) SubIndices() []float64 {
	out := make([]float64, len(Pollutants))
	for i, p := range Pollutants {
		out[i] = r.AQI(p)
	}
	return out
}

// OverallAQI is the maximum of the four AQI sub-indices.
func (r Readings) OverallAQI() float64 {
	return floats.Max(r.SubIndices())
}

// Map returns the readings keyed by column name.
func (r Readings) Map() map[string]float64 {
	out := make(map[string]float64, NumMetrics)
	for i, m := range Metrics {
		out[m.Column()] = r[i]
	}
	return out
}

// MarshalJSON encodes readings as an object keyed by column name.
func (r Readings) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// UnmarshalJSON decodes an object keyed by column name. Every metric must be present.
func (r *Readings) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var missing []string
	for i, metric := range Metrics {
		v, ok := m[metric.Column()]
		if !ok {
			missing = append(missing, metric.Column())
			continue
		}
		r[i] = v
	}
	if len(missing) > 0 {
		return fmt.Errorf("readings: missing %s", strings.Join(missing, ", "))
	}
	return nil
}
