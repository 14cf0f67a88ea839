package dataset

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-service/internal/domain"
)

func loadTestDataset(t *testing.T, startYear int) *Dataset {
	t.Helper()
	data := csvOf(
		row("2016-03-01", "CA", "Los Angeles", "Los Angeles", "30", "5", "3", "20"),
		row("2021-05-01", "CA", "Los Angeles", "Los Angeles", "40", "5", "3", "20"),
		row("2021-05-01", "CA", "Los Angeles", "Los Angeles", "60", "5", "3", "20"),
		row("2021-05-02", "CA", "Los Angeles", "Pasadena", "80", "5", "3", "20"),
		row("2021-05-02", "CA", "Kern", "Bakersfield", "90", "5", "3", "20"),
		row("2022-01-01", "NY", "Kings", "Brooklyn", "25", "5", "3", "20"),
	)
	ds, err := Read(strings.NewReader(data), startYear)
	require.NoError(t, err)
	return ds
}

func TestLocations(t *testing.T) {
	idx := NewLocations(loadTestDataset(t, 2020).Records)

	assert.Equal(t, []string{"CA", "NY"}, idx.States())
	assert.Equal(t, []string{"Kern", "Los Angeles"}, idx.Counties("CA"))
	assert.Equal(t, []string{"Los Angeles", "Pasadena"}, idx.Cities("CA", "Los Angeles"))
	assert.Equal(t, []string{"Los Angeles", "Pasadena"}, idx.Cities("CA", "Los Angeles County"))
	assert.Nil(t, idx.Counties("TX"))

	assert.True(t, idx.Contains(domain.Location{State: "CA", County: "Los Angeles County", City: "Pasadena City"}))
	assert.False(t, idx.Contains(domain.Location{State: "CA", County: "Kern", City: "Pasadena"}))
}

func TestHistory(t *testing.T) {
	ds := loadTestDataset(t, 2015)

	points := ds.History("CA", "Los Angeles City", 2015)
	require.Len(t, points, 2)
	assert.Equal(t, time.Date(2016, 3, 1, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.Equal(t, 30.0, points[0].OverallAQI)
	assert.Equal(t, 50.0, points[1].OverallAQI)
	assert.Equal(t, 2, points[1].Samples)

	assert.Len(t, ds.History("CA", "Los Angeles", 2020), 1)
	assert.Empty(t, ds.History("CA", "Nowhere", 2015))
}
