package model

import (
	"math"
	"math/rand"
	"time"

	"github.com/couchcryptid/air-quality-service/internal/dataset"
	"github.com/couchcryptid/air-quality-service/internal/domain"
)

// FeatureRow is the model input: three numeric date parts and three
// categorical location fields.
type FeatureRow struct {
	Year   int
	Month  int
	Day    int
	State  string
	County string
	City   string
}

// NewFeatureRow decomposes date and copies the location as given. Callers
// normalize the location first.
func NewFeatureRow(loc domain.Location, date time.Time) FeatureRow {
	return FeatureRow{
		Year:   date.Year(),
		Month:  int(date.Month()),
		Day:    date.Day(),
		State:  loc.State,
		County: loc.County,
		City:   loc.City,
	}
}

func (r FeatureRow) numeric() []float64 {
	return []float64{float64(r.Year), float64(r.Month), float64(r.Day)}
}

func (r FeatureRow) categorical() []string {
	return []string{r.State, r.County, r.City}
}

// featureTable splits records into feature rows and the twelve targets.
func featureTable(records []dataset.Record) ([]FeatureRow, [][]float64) {
	rows := make([]FeatureRow, len(records))
	targets := make([][]float64, len(records))
	for i, r := range records {
		rows[i] = NewFeatureRow(r.Location, r.Date)
		y := r.Metrics
		targets[i] = y[:]
	}
	return rows, targets
}

// trainTestSplit shuffles row indices with a seeded source and holds out
// ceil(testSize*n) of them. ok is false when either side would be empty.
func trainTestSplit(n int, testSize float64, seed int64) (train, test []int, ok bool) {
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest <= 0 || nTrain <= 0 {
		return nil, nil, false
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], true
}
