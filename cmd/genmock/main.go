// Command genmock writes a synthetic US air pollution dataset in the same
// column layout as the published 2000-2023 file. Rows are seeded so the same
// flags always produce the same file, and a small share of rows are exact
// duplicates or carry blank pollutant cells to exercise the cleaning steps.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/us_air_pollution_mock.csv -rows 5000 -seed 42
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/air-quality-service/internal/domain"
)

type site struct {
	state, county, city, address string
	// base sub-index per pollutant in domain.Pollutants order.
	base [4]float64
}

var sites = []site{
	{"California", "Los Angeles", "Los Angeles", "1630 N Main St", [4]float64{55, 12, 3, 38}},
	{"California", "Kern", "Bakersfield", "5558 California Ave", [4]float64{68, 8, 4, 30}},
	{"Arizona", "Maricopa", "Phoenix", "1645 E Roosevelt St", [4]float64{52, 10, 5, 34}},
	{"Texas", "Harris", "Houston", "1262 1/2 Mae Dr", [4]float64{45, 9, 12, 32}},
	{"New York", "Bronx", "New York", "1 Pelham Pkwy", [4]float64{40, 11, 6, 42}},
	{"Illinois", "Cook", "Chicago", "1820 S 51st Ave", [4]float64{38, 9, 8, 40}},
	{"Colorado", "Denver", "Denver", "2105 Broadway", [4]float64{50, 14, 7, 36}},
	{"Pennsylvania", "Allegheny", "Pittsburgh", "Lawrenceville 301 39th St", [4]float64{36, 8, 18, 28}},
}

// scale converts a sub-index to plausible mean and daily-max concentrations.
var scale = [4]struct{ mean, max float64 }{
	{0.0006, 0.0008}, // O3 ppm
	{0.03, 0.05},     // CO ppm
	{0.12, 0.3},      // SO2 ppb
	{0.35, 0.6},      // NO2 ppb
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output CSV path")
	rows := flag.Int("rows", 5000, "number of distinct rows to generate")
	seed := flag.Uint64("seed", 42, "random seed")
	startYear := flag.Int("start-year", 2015, "first year of generated dates")
	endYear := flag.Int("end-year", 2023, "last year of generated dates")
	flag.Parse()

	if *out == "" || *rows <= 0 || *endYear < *startYear {
		flag.Usage()
		return fmt.Errorf("need -out, a positive -rows and -end-year >= -start-year")
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	stats, err := generate(f, *rows, *seed, *startYear, *endYear)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	log.Printf("wrote %s", *out)
	printStats(stats)
	return nil
}

type genStats struct {
	rows       int
	duplicates int
	blanks     int
	categories map[domain.AQICategory]int
	states     map[string]int
}

func generate(w io.Writer, rows int, seed uint64, startYear, endYear int) (genStats, error) {
	rnd := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	cw := csv.NewWriter(w)

	header := append([]string{"", "Date", "Address", "State", "County", "City"}, domain.MetricColumns()...)
	if err := cw.Write(header); err != nil {
		return genStats{}, err
	}

	stats := genStats{categories: map[domain.AQICategory]int{}, states: map[string]int{}}
	start := time.Date(startYear, 1, 1, 0, 0, 0, 0, time.UTC)
	days := int(time.Date(endYear+1, 1, 1, 0, 0, 0, 0, time.UTC).Sub(start).Hours() / 24)

	index := 0
	var prev []string
	for i := 0; i < rows; i++ {
		s := sites[rnd.IntN(len(sites))]
		date := start.AddDate(0, 0, rnd.IntN(days))
		// Summer ozone peak.
		season := 1 + 0.35*math.Sin(2*math.Pi*(float64(date.YearDay())-80)/365)

		var readings domain.Readings
		for p := range domain.Pollutants {
			aqi := s.base[p] * (0.55 + 0.9*rnd.Float64())
			if p == 0 {
				aqi *= season
			}
			aqi = math.Round(aqi)
			readings[p*3] = round(aqi*scale[p].mean*(0.8+0.4*rnd.Float64()), 6)
			readings[p*3+1] = round(aqi*scale[p].max*(0.8+0.4*rnd.Float64()), 3)
			readings[p*3+2] = aqi
		}

		rec := []string{"", date.Format(domain.DateLayout), s.address, s.state, s.county, s.city}
		for _, v := range readings {
			rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if rnd.Float64() < 0.01 {
			rec[6+rnd.IntN(domain.NumMetrics)] = ""
			stats.blanks++
		}

		rec[0] = strconv.Itoa(index)
		index++
		if err := cw.Write(rec); err != nil {
			return genStats{}, err
		}
		stats.rows++
		stats.categories[domain.Categorize(readings.OverallAQI())]++
		stats.states[s.state]++

		// Exact copy of the previous row, index column included.
		if prev != nil && rnd.Float64() < 0.02 {
			if err := cw.Write(prev); err != nil {
				return genStats{}, err
			}
			stats.duplicates++
		}
		prev = rec
	}

	cw.Flush()
	return stats, cw.Error()
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func printStats(s genStats) {
	fmt.Println("\n=== Generated dataset ===")
	fmt.Printf("Rows: %d (+%d exact duplicates, %d blank cells)\n", s.rows, s.duplicates, s.blanks)

	fmt.Print("Categories:")
	for _, c := range domain.Categories {
		fmt.Printf(" %s=%d", c, s.categories[c])
	}
	fmt.Println()

	states := make([]string, 0, len(s.states))
	for st := range s.states {
		states = append(states, st)
	}
	sort.Strings(states)
	fmt.Print("States:")
	for _, st := range states {
		fmt.Printf(" %s=%d", st, s.states[st])
	}
	fmt.Println()
}
