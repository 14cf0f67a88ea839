package model

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/air-quality-service/internal/dataset"
	"github.com/couchcryptid/air-quality-service/internal/domain"
	"github.com/couchcryptid/air-quality-service/internal/forest"
)

// Config holds the training parameters.
type Config struct {
	Forest   forest.Config
	TestSize float64
}

// DefaultConfig holds out 20% of rows and fits 100 trees with seed 42.
func DefaultConfig() Config {
	return Config{Forest: forest.DefaultConfig(), TestSize: 0.2}
}

// Trainer fits models from cleaned datasets.
type Trainer struct {
	cfg    Config
	logger *slog.Logger
}

// NewTrainer creates a Trainer.
func NewTrainer(cfg Config, logger *slog.Logger) *Trainer {
	return &Trainer{cfg: cfg, logger: logger}
}

// Train splits ds into training and hold-out rows, fits the model on the
// training rows and scores it on the rest. Scores are reported, never gated
// on. Failures are [*domain.TrainingError]s.
func (t *Trainer) Train(ctx context.Context, ds *dataset.Dataset) (*Model, error) {
	if len(ds.NonNumeric) > 0 {
		return nil, &domain.TrainingError{Err: fmt.Errorf("%w: %s", domain.ErrNonNumericTarget, strings.Join(ds.NonNumeric, ", "))}
	}
	rows, targets := featureTable(ds.Records)
	if col := firstNaNColumn(targets); col != "" {
		return nil, &domain.TrainingError{Err: fmt.Errorf("%w: %s has no values", domain.ErrNonNumericTarget, col)}
	}

	trainIdx, testIdx, ok := trainTestSplit(len(rows), t.cfg.TestSize, t.cfg.Forest.Seed)
	if !ok {
		return nil, &domain.TrainingError{Err: fmt.Errorf("%w: %d rows cannot be split with test size %.2f",
			domain.ErrInsufficientRows, len(rows), t.cfg.TestSize)}
	}

	start := time.Now()
	t.logger.Info("training started",
		"train_rows", len(trainIdx),
		"test_rows", len(testIdx),
		"trees", t.cfg.Forest.Trees,
	)

	cats := make([][]string, len(trainIdx))
	for i, j := range trainIdx {
		cats[i] = rows[j].categorical()
	}
	m := &Model{encoder: FitOneHot(cats)}

	x := make([]forest.Sample, len(trainIdx))
	y := make([][]float64, len(trainIdx))
	for i, j := range trainIdx {
		x[i] = m.sample(rows[j])
		y[i] = targets[j]
	}
	f, err := forest.Fit(ctx, t.cfg.Forest, x, y)
	if err != nil {
		return nil, &domain.TrainingError{Err: err}
	}
	m.forest = f

	truth := make([][]float64, len(testIdx))
	preds := make([][]float64, len(testIdx))
	for i, j := range testIdx {
		truth[i] = targets[j]
		p := m.Predict(rows[j])
		preds[i] = p[:]
	}
	m.eval = evaluate(truth, preds)
	m.eval.TrainRows = len(trainIdx)
	m.eval.TestRows = len(testIdx)
	m.eval.Trees = f.Trees()
	m.eval.Features = 3 + m.encoder.Width()
	m.eval.Duration = time.Since(start)
	m.eval.TrainedAt = domain.Now()
	m.eval.Categories = map[string]int{
		dataset.ColState:  len(m.encoder.Categories(0)),
		dataset.ColCounty: len(m.encoder.Categories(1)),
		dataset.ColCity:   len(m.encoder.Categories(2)),
	}

	t.logger.Info("training finished",
		"mae", m.eval.MAE,
		"mse", m.eval.MSE,
		"rmse", m.eval.RMSE,
		"r2", m.eval.R2,
		"duration", m.eval.Duration,
	)
	return m, nil
}

func firstNaNColumn(targets [][]float64) string {
	for _, y := range targets {
		for o, v := range y {
			if math.IsNaN(v) {
				return domain.Metrics[o].Column()
			}
		}
	}
	return ""
}

// evaluate scores predictions per target and averages uniformly.
func evaluate(truth, preds [][]float64) Evaluation {
	var ev Evaluation
	if len(truth) == 0 {
		return ev
	}
	outputs := len(truth[0])
	n := float64(len(truth))
	want := make([]float64, len(truth))
	got := make([]float64, len(truth))
	for o := range outputs {
		for i := range truth {
			want[i] = truth[i][o]
			got[i] = preds[i][o]
		}
		mae := floats.Distance(got, want, 1) / n
		mse := math.Pow(floats.Distance(got, want, 2), 2) / n
		r2 := rSquared(got, want)

		ev.Targets = append(ev.Targets, TargetScore{
			Column: domain.Metrics[o].Column(),
			MAE:    mae,
			RMSE:   math.Sqrt(mse),
			R2:     r2,
		})
		ev.MAE += mae / float64(outputs)
		ev.MSE += mse / float64(outputs)
		ev.R2 += r2 / float64(outputs)
	}
	ev.RMSE = math.Sqrt(ev.MSE)
	return ev
}

// rSquared is 1 - SSres/SStot. A constant target scores 1 when predicted
// exactly and 0 otherwise.
func rSquared(got, want []float64) float64 {
	if len(want) < 2 || stat.Variance(want, nil) == 0 {
		if floats.Equal(got, want) {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(got, want, nil)
}
