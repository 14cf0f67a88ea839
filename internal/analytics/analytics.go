// Package analytics derives the dashboard figures for a prediction: key
// indicators, pollutant breakdown, gauge bands and a downloadable report.
package analytics

import (
	"strings"
	"time"

	"github.com/couchcryptid/air-quality-service/internal/domain"
)

// RiskLevel buckets the overall AQI into three levels.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Risk returns High above 150, Medium above 100 and Low otherwise.
func Risk(overallAQI float64) RiskLevel {
	switch {
	case overallAQI > 150:
		return RiskHigh
	case overallAQI > 100:
		return RiskMedium
	default:
		return RiskLow
	}
}

// MetricValue is one predicted metric.
type MetricValue struct {
	Column string  `json:"column"`
	Value  float64 `json:"value"`
}

// SubIndex is one pollutant's AQI and the category it alone would imply.
type SubIndex struct {
	Pollutant domain.Pollutant   `json:"pollutant"`
	Name      string             `json:"name"`
	AQI       float64            `json:"aqi"`
	Category  domain.AQICategory `json:"category"`
}

// Summary is the analytics view of a prediction.
type Summary struct {
	Location         domain.Location    `json:"location"`
	Date             time.Time          `json:"date"`
	OverallAQI       float64            `json:"overall_aqi"`
	Category         domain.AQICategory `json:"category"`
	CategoryLabel    string             `json:"category_label"`
	Color            string             `json:"color"`
	AverageValue     float64            `json:"average_value"`
	PrimaryPollutant domain.Pollutant   `json:"primary_pollutant"`
	RiskLevel        RiskLevel          `json:"risk_level"`
	Breakdown        []MetricValue      `json:"breakdown"`
	SubIndices       []SubIndex         `json:"sub_indices"`
	Gauge            []domain.Band      `json:"gauge"`
}

// Summarize computes the key indicators of a prediction. The average and the
// primary pollutant are taken over all twelve metrics; the primary pollutant
// is the one owning the largest metric, first in column order on ties.
func Summarize(r domain.PredictionResult) Summary {
	s := Summary{
		Location:      r.Location,
		Date:          r.Date,
		OverallAQI:    r.OverallAQI,
		Category:      r.Category,
		CategoryLabel: r.Category.DisplayName(),
		Color:         r.Category.Color(),
		RiskLevel:     Risk(r.OverallAQI),
		Gauge:         domain.GaugeBands(),
	}

	sum := 0.0
	top := 0
	for i, m := range domain.Metrics {
		v := r.Metrics[i]
		sum += v
		if v > r.Metrics[top] {
			top = i
		}
		s.Breakdown = append(s.Breakdown, MetricValue{Column: m.Column(), Value: v})
	}
	s.AverageValue = sum / float64(domain.NumMetrics)
	s.PrimaryPollutant = domain.Metrics[top].Pollutant

	for _, p := range domain.Pollutants {
		aqi := r.Metrics.AQI(p)
		s.SubIndices = append(s.SubIndices, SubIndex{
			Pollutant: p,
			Name:      p.LongName(),
			AQI:       aqi,
			Category:  domain.Categorize(aqi),
		})
	}
	return s
}

// averageStatus grades the average metric for the report.
func averageStatus(avg float64) string {
	switch {
	case avg <= 50:
		return "Good"
	case avg <= 100:
		return "Moderate"
	default:
		return "Poor"
	}
}

// LocationLabel renders "City, State" with the " City" suffix the dashboard shows.
func (s Summary) LocationLabel() string {
	return strings.TrimSpace(domain.CityDisplayName(s.Location.City) + ", " + s.Location.State)
}
