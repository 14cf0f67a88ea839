package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/air-quality-service/internal/domain"
)

// Required location and date columns.
const (
	ColDate   = "Date"
	ColState  = "State"
	ColCounty = "County"
	ColCity   = "City"
)

var missingLiterals = map[string]bool{"": true, "NaN": true, "nan": true, "NA": true, "N/A": true}

// Loader reads the dataset from local storage.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads and cleans the CSV at path, keeping rows dated in or after startYear.
// Unreadable files and missing columns fail with a [*domain.DataLoadError].
func (l *Loader) Load(path string, startYear int) (*Dataset, error) {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.DataLoadError{Path: path, Err: err}
	}
	defer f.Close()

	ds, err := Read(f, startYear)
	if err != nil {
		var loadErr *domain.DataLoadError
		if errors.As(err, &loadErr) {
			loadErr.Path = path
		}
		return nil, err
	}

	l.logger.Info("dataset loaded",
		"path", path,
		"start_year", startYear,
		"rows_read", ds.Stats.RowsRead,
		"duplicates_dropped", ds.Stats.DuplicatesDropped,
		"values_imputed", ds.Stats.ValuesImputed,
		"rows_retained", ds.Stats.RowsRetained,
		"duration", time.Since(start),
	)
	if len(ds.NonNumeric) > 0 {
		l.logger.Warn("non-numeric pollutant columns", "columns", ds.NonNumeric)
	}
	return ds, nil
}

// Read cleans a CSV stream. It is [Loader.Load] without the file handling.
func Read(r io.Reader, startYear int) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &domain.DataLoadError{Err: fmt.Errorf("%w: empty file", domain.ErrMissingColumn)}
		}
		return nil, &domain.DataLoadError{Err: fmt.Errorf("read header: %w", err)}
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, &domain.DataLoadError{Err: err}
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.DataLoadError{Err: fmt.Errorf("read row %d: %w", len(rows)+2, err)}
		}
		rows = append(rows, canonicalRow(rec, len(header), cols.metrics))
	}

	stats := Stats{RowsRead: len(rows)}
	rows = dropDuplicates(rows)
	stats.DuplicatesDropped = stats.RowsRead - len(rows)

	values, numeric := parseMetrics(rows, cols.metrics)
	stats.ValuesImputed = imputeMedians(values, numeric)

	ds := &Dataset{StartYear: startYear}
	for i, row := range rows {
		raw := row[cols.date]
		if raw == "" {
			continue
		}
		date, err := domain.ParseDate(raw)
		if err != nil {
			return nil, &domain.DataLoadError{Err: fmt.Errorf("row %d: %w", i+2, err)}
		}
		if date.Year() < startYear {
			continue
		}
		rec := Record{
			Date: date,
			Location: domain.Location{
				State:  row[cols.state],
				County: row[cols.county],
				City:   row[cols.city],
			},
			Metrics: values[i],
		}
		rec.OverallAQI = rec.Metrics.OverallAQI()
		rec.Category = domain.Categorize(rec.OverallAQI)
		ds.Records = append(ds.Records, rec)
	}
	for j, isNumeric := range numeric {
		if isNumeric {
			continue
		}
		ds.NonNumeric = append(ds.NonNumeric, domain.Metrics[j].Column())
	}
	stats.RowsRetained = len(ds.Records)
	ds.Stats = stats
	ds.Encoder = fitEncoder(ds.Records)
	return ds, nil
}

type columns struct {
	date, state, county, city int
	metrics                   [domain.NumMetrics]int
}

func resolveColumns(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}

	var missing []string
	lookup := func(name string) int {
		i, ok := idx[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	var c columns
	c.date = lookup(ColDate)
	c.state = lookup(ColState)
	c.county = lookup(ColCounty)
	c.city = lookup(ColCity)
	for i, m := range domain.Metrics {
		c.metrics[i] = lookup(m.Column())
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("%w: %s", domain.ErrMissingColumn, strings.Join(missing, ", "))
	}
	return c, nil
}

// canonicalRow pads rec to width, trims cells, maps missing literals to "" and
// rewrites numeric pollutant cells in shortest form so that "1.0" and "1"
// compare equal during deduplication.
func canonicalRow(rec []string, width int, metricCols [domain.NumMetrics]int) []string {
	row := make([]string, max(width, len(rec)))
	for i, v := range rec {
		v = strings.TrimSpace(v)
		if missingLiterals[v] {
			v = ""
		}
		row[i] = v
	}
	for _, c := range metricCols {
		if row[c] == "" {
			continue
		}
		if f, err := strconv.ParseFloat(row[c], 64); err == nil {
			row[c] = strconv.FormatFloat(f, 'g', -1, 64)
		}
	}
	return row
}

// dropDuplicates keeps the first occurrence of every distinct row.
func dropDuplicates(rows [][]string) [][]string {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0]
	for _, row := range rows {
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

// parseMetrics converts the pollutant cells to floats, leaving missing and
// unparseable cells as NaN. numeric[j] is false when column j holds any
// non-missing value that is not a number.
func parseMetrics(rows [][]string, metricCols [domain.NumMetrics]int) ([]domain.Readings, [domain.NumMetrics]bool) {
	values := make([]domain.Readings, len(rows))
	var numeric [domain.NumMetrics]bool
	for j := range numeric {
		numeric[j] = true
	}
	for i, row := range rows {
		for j, c := range metricCols {
			cell := row[c]
			if cell == "" {
				values[i][j] = math.NaN()
				continue
			}
			f, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				numeric[j] = false
				values[i][j] = math.NaN()
				continue
			}
			values[i][j] = f
		}
	}
	return values, numeric
}

// imputeMedians fills NaN cells of numeric columns with the column median and
// returns the number of cells filled. A column with no values stays NaN.
func imputeMedians(values []domain.Readings, numeric [domain.NumMetrics]bool) int {
	filled := 0
	for j := range domain.NumMetrics {
		if !numeric[j] {
			continue
		}
		present := make([]float64, 0, len(values))
		for i := range values {
			if !math.IsNaN(values[i][j]) {
				present = append(present, values[i][j])
			}
		}
		if len(present) == len(values) || len(present) == 0 {
			continue
		}
		m := median(present)
		for i := range values {
			if math.IsNaN(values[i][j]) {
				values[i][j] = m
				filled++
			}
		}
	}
	return filled
}

// median sorts vals in place and returns the middle value, averaging the two
// middle values for even lengths.
func median(vals []float64) float64 {
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}
