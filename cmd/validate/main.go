// Command validate runs the training pipeline against a dataset file and
// checks the result end to end: cleaning statistics, category labelling,
// the location index, the hold-out evaluation, and a round of predictions for
// locations seen in training.
//
// Usage:
//
//	go run ./cmd/validate -dataset data/us_air_pollution_2000_2023.csv -start-year 2020
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/air-quality-service/internal/dataset"
	"github.com/couchcryptid/air-quality-service/internal/domain"
	"github.com/couchcryptid/air-quality-service/internal/model"
	"github.com/couchcryptid/air-quality-service/internal/observability"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	// Keep at most 25 details per phase.
	if len(p.errors) < 25 {
		p.errors = append(p.errors, fmt.Sprintf(format, args...))
	}
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	path      string
	startYear int
	trees     int
	seed      int64
	minR2     float64
	samples   int
	logLevel  string
}

func main() {
	o, err := parseOptions(os.Args[1:])
	if err != nil {
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, o))
}

// parseOptions reads the flags. The defaults match the service's training
// configuration so a bare run scores the model that ships.
func parseOptions(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.StringVar(&o.path, "dataset", "", "path to the pollution CSV")
	fs.IntVar(&o.startYear, "start-year", 2020, "drop rows dated before this year")
	fs.IntVar(&o.trees, "trees", 100, "number of trees to fit")
	fs.Int64Var(&o.seed, "seed", 42, "random seed for the split and the forest")
	fs.Float64Var(&o.minR2, "min-r2", 0, "fail when the hold-out R² is below this value (0 disables)")
	fs.IntVar(&o.samples, "samples", 20, "records to re-predict after training")
	fs.StringVar(&o.logLevel, "log-level", "warn", "training log level")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if o.path == "" {
		fs.Usage()
		return o, errors.New("-dataset is required")
	}
	return o, nil
}

func run(ctx context.Context, o options) int {
	logger := observability.NewLogger(o.logLevel, "text")

	fmt.Println("=== Air Quality Pipeline Validation ===")
	fmt.Println()

	ds, err := dataset.NewLoader(logger).Load(o.path, o.startYear)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dataset: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCleaning(ds, o.startYear),
		validateCategories(ds),
		validateLocations(ds),
	}

	cfg := model.DefaultConfig()
	cfg.Forest.Trees = o.trees
	cfg.Forest.Seed = o.seed
	m, err := model.NewTrainer(cfg, logger).Train(ctx, ds)
	if err != nil {
		p := &phase{name: "Training"}
		p.errorf("%v", err)
		phases = append(phases, p)
	} else {
		phases = append(phases,
			validateEvaluation(m.Evaluation(), o.minR2),
			validatePredictions(m, ds, o.samples),
		)
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d read, %d duplicates dropped, %d values imputed, %d retained since %d\n",
		ds.Stats.RowsRead, ds.Stats.DuplicatesDropped, ds.Stats.ValuesImputed, ds.Len(), o.startYear)
	if m != nil {
		e := m.Evaluation()
		fmt.Printf("Model: %d trees, %d features, train %d / test %d rows, R² %.4f, RMSE %.4f, took %s\n",
			e.Trees, e.Features, e.TrainRows, e.TestRows, e.R2, e.RMSE, e.Duration.Round(time.Millisecond))
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateCleaning(ds *dataset.Dataset, startYear int) *phase {
	p := &phase{name: "Cleaning"}
	if ds.Len() == 0 {
		p.errorf("no rows dated %d or later", startYear)
	}
	if ds.Stats.RowsRead-ds.Stats.DuplicatesDropped < ds.Len() {
		p.errorf("retained %d rows from %d distinct", ds.Len(), ds.Stats.RowsRead-ds.Stats.DuplicatesDropped)
	}
	for _, col := range ds.NonNumeric {
		p.errorf("column %q holds non-numeric values", col)
	}
	for i, r := range ds.Records {
		if r.Date.Year() < startYear {
			p.errorf("record %d dated %s before %d", i, r.Date.Format(domain.DateLayout), startYear)
		}
		for j, v := range r.Metrics {
			if math.IsNaN(v) {
				p.errorf("record %d: %s is missing after imputation", i, domain.Metrics[j].Column())
			}
		}
	}
	return p
}

func validateCategories(ds *dataset.Dataset) *phase {
	p := &phase{name: "Category labelling"}
	for i, r := range ds.Records {
		if want := r.Metrics.OverallAQI(); r.OverallAQI != want {
			p.errorf("record %d: overall AQI %.1f, max sub-index %.1f", i, r.OverallAQI, want)
		}
		if want := domain.Categorize(r.OverallAQI); r.Category != want {
			p.errorf("record %d: category %s for AQI %.1f, want %s", i, r.Category, r.OverallAQI, want)
		}
		if c, ok := ds.Encoder.Decode(r.CategoryCode); !ok || c != r.Category {
			p.errorf("record %d: code %d decodes to %q, want %s", i, r.CategoryCode, c, r.Category)
		}
	}
	return p
}

func validateLocations(ds *dataset.Dataset) *phase {
	p := &phase{name: "Location index"}
	locs := dataset.NewLocations(ds.Records)
	if ds.Len() > 0 && len(locs.States()) == 0 {
		p.errorf("no states indexed")
	}
	for i, r := range ds.Records {
		if !locs.Contains(r.Location) {
			p.errorf("record %d: %s missing from the index", i, r.Location.Key())
		}
	}
	return p
}

func validateEvaluation(e model.Evaluation, minR2 float64) *phase {
	p := &phase{name: "Hold-out evaluation"}
	if e.TestRows == 0 {
		p.errorf("no hold-out rows")
	}
	if len(e.Targets) != domain.NumMetrics {
		p.errorf("%d target scores, want %d", len(e.Targets), domain.NumMetrics)
	}
	for _, v := range []float64{e.MAE, e.MSE, e.RMSE, e.R2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			p.errorf("non-finite score in %+v", e)
			break
		}
	}
	if minR2 != 0 && e.R2 < minR2 {
		p.errorf("R² %.4f below %.4f", e.R2, minR2)
	}
	return p
}

func validatePredictions(m *model.Model, ds *dataset.Dataset, samples int) *phase {
	p := &phase{name: "Predictions"}
	if ds.Len() == 0 || samples <= 0 {
		return p
	}
	step := max(1, ds.Len()/samples)
	for i := 0; i < ds.Len(); i += step {
		r := ds.Records[i]
		row := model.NewFeatureRow(r.Location, r.Date)
		if !m.Known(row) {
			// Held-out rows may name a city only seen in the test split.
			continue
		}
		out := m.Predict(row)
		for j, v := range out {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				p.errorf("record %d: %s predicted as %v", i, domain.Metrics[j].Column(), v)
			}
		}
	}
	return p
}
