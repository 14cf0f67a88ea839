package dataset

import (
	"slices"
	"sort"
	"time"

	"github.com/couchcryptid/air-quality-service/internal/domain"
)

// Locations is a browsable index of the states, counties and cities present
// in a dataset.
type Locations struct {
	counties map[string][]string
	cities   map[[2]string][]string
	states   []string
}

// NewLocations indexes the records' locations.
func NewLocations(records []Record) *Locations {
	counties := map[string]map[string]struct{}{}
	cities := map[[2]string]map[string]struct{}{}
	for _, r := range records {
		loc := r.Location
		if counties[loc.State] == nil {
			counties[loc.State] = map[string]struct{}{}
		}
		counties[loc.State][loc.County] = struct{}{}
		key := [2]string{loc.State, loc.County}
		if cities[key] == nil {
			cities[key] = map[string]struct{}{}
		}
		cities[key][loc.City] = struct{}{}
	}

	idx := &Locations{
		counties: make(map[string][]string, len(counties)),
		cities:   make(map[[2]string][]string, len(cities)),
	}
	for state, set := range counties {
		idx.states = append(idx.states, state)
		idx.counties[state] = sortedKeys(set)
	}
	sort.Strings(idx.states)
	for key, set := range cities {
		idx.cities[key] = sortedKeys(set)
	}
	return idx
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// States returns all states in name order.
func (l *Locations) States() []string { return slices.Clone(l.states) }

// Counties returns the counties of a state, or nil when the state is unknown.
func (l *Locations) Counties(state string) []string {
	return slices.Clone(l.counties[state])
}

// Cities returns the cities of a county. The county may carry its " County" suffix.
func (l *Locations) Cities(state, county string) []string {
	return slices.Clone(l.cities[[2]string{state, domain.NormalizeCounty(county)}])
}

// Contains reports whether the normalized location occurs in the dataset.
func (l *Locations) Contains(loc domain.Location) bool {
	loc = loc.Normalize()
	_, ok := slices.BinarySearch(l.cities[[2]string{loc.State, loc.County}], loc.City)
	return ok
}

// HistoryPoint is the mean overall AQI observed on one day.
type HistoryPoint struct {
	Date       time.Time `json:"date"`
	OverallAQI float64   `json:"overall_aqi"`
	Samples    int       `json:"samples"`
}

// History returns the daily mean overall AQI recorded for a state and city,
// from fromYear onward, ordered by date. The city may carry its " City" suffix.
func (d *Dataset) History(state, city string, fromYear int) []HistoryPoint {
	city = domain.NormalizeCity(city)
	type acc struct {
		sum float64
		n   int
	}
	byDate := map[time.Time]*acc{}
	for _, r := range d.Records {
		if r.Location.State != state || r.Location.City != city || r.Date.Year() < fromYear {
			continue
		}
		a := byDate[r.Date]
		if a == nil {
			a = &acc{}
			byDate[r.Date] = a
		}
		a.sum += r.OverallAQI
		a.n++
	}

	points := make([]HistoryPoint, 0, len(byDate))
	for date, a := range byDate {
		points = append(points, HistoryPoint{Date: date, OverallAQI: a.sum / float64(a.n), Samples: a.n})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points
}
