// Package dataset loads and cleans the historical pollutant dataset.
//
// Cleaning runs in a fixed order: exact-duplicate rows are dropped, missing
// numeric cells are filled with the column median of the deduplicated rows,
// dates are parsed, and rows before the start year are discarded. Because
// medians are taken before the year filter, [Dataset.Since] on a dataset
// loaded from an earlier year yields exactly what loading with the later year
// would.
package dataset

import (
	"slices"
	"time"

	"github.com/couchcryptid/air-quality-service/internal/domain"
)

// Record is one cleaned observation.
type Record struct {
	Date       time.Time
	Location   domain.Location
	Metrics    domain.Readings
	OverallAQI float64
	Category   domain.AQICategory
	// CategoryCode is the label-encoded Category, see [CategoryEncoder].
	CategoryCode int
}

// Stats summarizes what cleaning did to the raw rows.
type Stats struct {
	RowsRead          int `json:"rows_read"`
	DuplicatesDropped int `json:"duplicates_dropped"`
	ValuesImputed     int `json:"values_imputed"`
	RowsRetained      int `json:"rows_retained"`
}

// Dataset is the cleaned table returned by [Loader.Load].
type Dataset struct {
	Records []Record
	Encoder *CategoryEncoder
	Stats   Stats
	// StartYear is the year filter the records satisfy.
	StartYear int
	// NonNumeric lists pollutant columns holding values that are not numbers.
	// Such columns are not imputed and their unparseable cells are NaN.
	NonNumeric []string
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.Records) }

// Since returns the records dated in or after year, with the category encoder
// refitted to them. Receivers already filtered to a later year return a copy
// of themselves.
func (d *Dataset) Since(year int) *Dataset {
	out := &Dataset{
		Stats:      d.Stats,
		StartYear:  max(year, d.StartYear),
		NonNumeric: slices.Clone(d.NonNumeric),
	}
	for _, r := range d.Records {
		if r.Date.Year() >= year {
			out.Records = append(out.Records, r)
		}
	}
	out.Stats.RowsRetained = len(out.Records)
	out.Encoder = fitEncoder(out.Records)
	return out
}

func fitEncoder(records []Record) *CategoryEncoder {
	cats := make([]domain.AQICategory, len(records))
	for i, r := range records {
		cats[i] = r.Category
	}
	enc := NewCategoryEncoder(cats)
	for i := range records {
		records[i].CategoryCode = enc.Encode(records[i].Category)
	}
	return enc
}
