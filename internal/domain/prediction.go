package domain

import (
	"strings"
	"time"
)

const (
	countySuffix = " County"
	citySuffix   = " City"
)

// Location identifies where a reading was taken or a prediction applies.
// County and City are stored without administrative suffixes.
type Location struct {
	State  string `json:"state"`
	County string `json:"county"`
	City   string `json:"city"`
}

// NormalizeCounty strips a trailing " County", e.g. "Los Angeles County" -> "Los Angeles".
func NormalizeCounty(s string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), countySuffix))
}

// NormalizeCity strips a trailing " City", e.g. "Los Angeles City" -> "Los Angeles".
func NormalizeCity(s string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), citySuffix))
}

// CountyDisplayName appends the " County" suffix shown to users.
func CountyDisplayName(county string) string {
	return county + countySuffix
}

// CityDisplayName appends the " City" suffix shown to users.
func CityDisplayName(city string) string {
	return city + citySuffix
}

// Normalize returns the location with whitespace trimmed and suffixes stripped.
func (l Location) Normalize() Location {
	return Location{
		State:  strings.TrimSpace(l.State),
		County: NormalizeCounty(l.County),
		City:   NormalizeCity(l.City),
	}
}

// Key joins the location fields with "|".
func (l Location) Key() string {
	return l.State + "|" + l.County + "|" + l.City
}

// PredictionResult is the outcome of one prediction request.
type PredictionResult struct {
	ID          string      `json:"id"`
	Location    Location    `json:"location"`
	Date        time.Time   `json:"date"`
	Metrics     Readings    `json:"pollutant_metrics"`
	OverallAQI  float64     `json:"overall_aqi"`
	Category    AQICategory `json:"category"`
	PredictedAt time.Time   `json:"predicted_at"`
}

// NewPredictionResult derives the overall AQI and category from the predicted
// metrics. OverallAQI is always the maximum of the four sub-indices.
func NewPredictionResult(id string, loc Location, date time.Time, metrics Readings) PredictionResult {
	overall := metrics.OverallAQI()
	return PredictionResult{
		ID:          id,
		Location:    loc,
		Date:        date,
		Metrics:     metrics,
		OverallAQI:  overall,
		Category:    Categorize(overall),
		PredictedAt: Now(),
	}
}

// EventKey identifies the prediction as "state|county|city|date".
func (p PredictionResult) EventKey() string {
	return p.Location.Key() + "|" + p.Date.Format(DateLayout)
}
