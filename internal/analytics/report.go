package analytics

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/air-quality-service/internal/domain"
)

// Report renders the analytics report as plain text, the fallback for
// clients that cannot take [Summary.PDF]. guidance, when non-empty, is
// appended as the advice section.
func (s Summary) Report(guidance string) string {
	var b strings.Builder
	now := domain.Now()

	b.WriteString("AIR QUALITY ANALYTICS REPORT\n")
	b.WriteString(strings.Repeat("=", 28) + "\n\n")

	section(&b, "SUMMARY")
	table(&b, s.summaryRows(now))

	section(&b, "KEY PERFORMANCE INDICATORS")
	table(&b, s.kpiRows())

	section(&b, "POLLUTANT BREAKDOWN")
	table(&b, s.breakdownRows())

	section(&b, "CLASSIFICATION METHOD")
	b.WriteString(classificationMethod + "\n\n")

	if guidance != "" {
		section(&b, "ADVICE")
		b.WriteString(strings.TrimSpace(guidance) + "\n\n")
	}

	fmt.Fprintf(&b, "Generated by Air Quality Analytics System on %s\n", now.Format(generatedLayout))
	return b.String()
}

const classificationMethod = "The category follows the EPA AQI bands applied to the highest of the four " +
	"pollutant sub-indices: <=50 Good, <=100 Moderate, <=150 Unhealthy for " +
	"Sensitive Groups, <=200 Unhealthy, above 200 Very Unhealthy."

const generatedLayout = "2006-01-02 15:04:05"

func (s Summary) summaryRows(now time.Time) [][]string {
	return [][]string{
		{"Location", s.LocationLabel()},
		{"Forecast Date", s.Date.Format(domain.DateLayout)},
		{"Predicted AQI Category", s.CategoryLabel},
		{"Overall AQI", fmt.Sprintf("%.1f", s.OverallAQI)},
		{"Report Date", now.Format(domain.DateLayout)},
	}
}

func (s Summary) kpiRows() [][]string {
	return [][]string{
		{"Metric", "Value", "Status"},
		{"Average Value", fmt.Sprintf("%.1f", s.AverageValue), averageStatus(s.AverageValue)},
		{"Primary Pollutant", string(s.PrimaryPollutant), "Dominant"},
		{"Risk Level", string(s.RiskLevel), riskMarker(s.RiskLevel)},
		{"Classification", "EPA AQI thresholds", "Rule-based category"},
	}
}

func (s Summary) breakdownRows() [][]string {
	rows := [][]string{{"Pollutant", "Value"}}
	for _, m := range s.Breakdown {
		rows = append(rows, []string{m.Column, fmt.Sprintf("%.1f", m.Value)})
	}
	return rows
}

func section(b *strings.Builder, title string) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("-", len(title)) + "\n")
}

func table(w io.Writer, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func riskMarker(r RiskLevel) string {
	switch r {
	case RiskHigh:
		return "Warning"
	case RiskMedium:
		return "Caution"
	default:
		return "OK"
	}
}
