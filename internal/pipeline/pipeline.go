package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/air-quality-service/internal/dataset"
	"github.com/couchcryptid/air-quality-service/internal/domain"
	"github.com/couchcryptid/air-quality-service/internal/model"
	"github.com/couchcryptid/air-quality-service/internal/observability"
)

// Fetcher makes sure the dataset exists locally.
type Fetcher interface {
	EnsureLocal(ctx context.Context, path string) (bool, error)
}

// DatasetLoader reads and cleans the dataset.
type DatasetLoader interface {
	Load(path string, startYear int) (*dataset.Dataset, error)
}

// Trainer fits a model from a cleaned dataset.
type Trainer interface {
	Train(ctx context.Context, ds *dataset.Dataset) (*model.Model, error)
}

// Config selects the dataset and the year windows.
type Config struct {
	DatasetPath string
	// StartYear filters the rows the model is trained on.
	StartYear int
	// HistoryStartYear filters the rows kept for historical analytics.
	HistoryStartYear int
}

// Snapshot is everything one training run produced. It is immutable.
type Snapshot struct {
	Model *model.Model
	// Dataset holds the cleaned rows from min(StartYear, HistoryStartYear).
	Dataset   *dataset.Dataset
	Locations *dataset.Locations
}

// Pipeline fetches, loads and trains once per process and then hands out the
// trained model. The service runs it once at startup; after a failure it stays
// unready and [Pipeline.Model] keeps returning [domain.ErrModelNotTrained].
type Pipeline struct {
	fetcher Fetcher
	loader  DatasetLoader
	trainer Trainer
	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	snapshot atomic.Pointer[Snapshot]
	ready    atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(f Fetcher, l DatasetLoader, t Trainer, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher: f,
		loader:  l,
		trainer: t,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a model has been trained, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("model has not been trained yet")
	}
	return nil
}

// Run trains the model at startup. It returns the training error, if any;
// the caller decides whether to keep serving.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "dataset", p.cfg.DatasetPath, "start_year", p.cfg.StartYear)
	_, err := p.EnsureTrained(ctx)
	if err != nil {
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
		p.logger.Error("training pipeline failed", "error", err)
		return err
	}
	return nil
}

// EnsureTrained returns the trained snapshot, running fetch, load and train
// on first use. Concurrent callers wait for the same run.
func (p *Pipeline) EnsureTrained(ctx context.Context) (*Snapshot, error) {
	if s := p.snapshot.Load(); s != nil {
		return s, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if s := p.snapshot.Load(); s != nil {
		return s, nil
	}

	s, err := p.train(ctx)
	if err != nil {
		return nil, err
	}
	p.snapshot.Store(s)
	p.ready.Store(true)
	p.metrics.ModelReady.Set(1)
	return s, nil
}

func (p *Pipeline) train(ctx context.Context) (*Snapshot, error) {
	if _, err := p.fetcher.EnsureLocal(ctx, p.cfg.DatasetPath); err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}

	loadStart := time.Now()
	wide, err := p.loader.Load(p.cfg.DatasetPath, p.loadYear())
	if err != nil {
		return nil, err
	}
	p.metrics.DatasetLoadDuration.Observe(time.Since(loadStart).Seconds())
	p.metrics.DuplicatesDropped.Add(float64(wide.Stats.DuplicatesDropped))
	p.metrics.ValuesImputed.Add(float64(wide.Stats.ValuesImputed))

	training := wide.Since(p.cfg.StartYear)
	p.metrics.DatasetRows.Set(float64(training.Len()))

	trainStart := time.Now()
	m, err := p.trainer.Train(ctx, training)
	if err != nil {
		return nil, err
	}
	p.metrics.TrainingDuration.Observe(time.Since(trainStart).Seconds())

	ev := m.Evaluation()
	p.metrics.ModelR2.Set(ev.R2)
	p.metrics.ModelRMSE.Set(ev.RMSE)
	p.logger.Info("model ready",
		"rows", training.Len(),
		"r2", ev.R2,
		"rmse", ev.RMSE,
		"duration", time.Since(loadStart),
	)

	return &Snapshot{
		Model:     m,
		Dataset:   wide,
		Locations: dataset.NewLocations(training.Records),
	}, nil
}

func (p *Pipeline) loadYear() int {
	if p.cfg.HistoryStartYear > 0 && p.cfg.HistoryStartYear < p.cfg.StartYear {
		return p.cfg.HistoryStartYear
	}
	return p.cfg.StartYear
}

// Snapshot returns the trained snapshot, or false before training completes.
func (p *Pipeline) Snapshot() (*Snapshot, bool) {
	s := p.snapshot.Load()
	return s, s != nil
}

// Model returns the trained model or [domain.ErrModelNotTrained].
func (p *Pipeline) Model() (*model.Model, error) {
	s := p.snapshot.Load()
	if s == nil {
		return nil, domain.ErrModelNotTrained
	}
	return s.Model, nil
}
