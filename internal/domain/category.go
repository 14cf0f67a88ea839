package domain

import "strings"

// AQICategory is an EPA-style air quality band.
type AQICategory string

const (
	Good               AQICategory = "Good"
	Moderate           AQICategory = "Moderate"
	UnhealthySensitive AQICategory = "Unhealthy_Sensitive"
	Unhealthy          AQICategory = "Unhealthy"
	VeryUnhealthy      AQICategory = "Very_Unhealthy"
)

// Categories lists the five bands from cleanest to worst.
var Categories = []AQICategory{Good, Moderate, UnhealthySensitive, Unhealthy, VeryUnhealthy}

// Categorize maps an overall AQI value to its category. Each band is closed
// at its upper bound, so 50 is Good and 51 is Moderate. NaN falls through to
// Very_Unhealthy.
func Categorize(aqi float64) AQICategory {
	switch {
	case aqi <= 50:
		return Good
	case aqi <= 100:
		return Moderate
	case aqi <= 150:
		return UnhealthySensitive
	case aqi <= 200:
		return Unhealthy
	default:
		return VeryUnhealthy
	}
}

// Valid reports whether c is one of the five known categories.
func (c AQICategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// DisplayName replaces underscores with spaces, e.g. "Unhealthy Sensitive".
func (c AQICategory) DisplayName() string {
	return strings.ReplaceAll(string(c), "_", " ")
}

// Color returns the hex color conventionally used for the category.
func (c AQICategory) Color() string {
	switch c {
	case Good:
		return "#00E400"
	case Moderate:
		return "#FFFF00"
	case UnhealthySensitive:
		return "#FF7E00"
	case Unhealthy:
		return "#FF0000"
	case VeryUnhealthy:
		return "#8F3F97"
	default:
		return "#808080"
	}
}

// Band is a closed AQI range [Low, High] rendered in a single color.
type Band struct {
	Category AQICategory `json:"category"`
	Low      float64     `json:"low"`
	High     float64     `json:"high"`
	Color    string      `json:"color"`
}

// GaugeBands returns the gauge ranges 0-50-100-150-200-300.
func GaugeBands() []Band {
	bounds := []float64{0, 50, 100, 150, 200, 300}
	bands := make([]Band, len(Categories))
	for i, c := range Categories {
		bands[i] = Band{Category: c, Low: bounds[i], High: bounds[i+1], Color: c.Color()}
	}
	return bands
}
