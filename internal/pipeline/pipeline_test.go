package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-service/internal/dataset"
	"github.com/couchcryptid/air-quality-service/internal/domain"
	"github.com/couchcryptid/air-quality-service/internal/model"
	"github.com/couchcryptid/air-quality-service/internal/observability"
	"github.com/couchcryptid/air-quality-service/internal/pipeline"
)

// --- mocks ---

type mockFetcher struct {
	err   error
	calls atomic.Int32
}

func (m *mockFetcher) EnsureLocal(_ context.Context, _ string) (bool, error) {
	m.calls.Add(1)
	return false, m.err
}

type mockLoader struct {
	csv   string
	err   error
	years []int
	mu    sync.Mutex
}

func (m *mockLoader) Load(_ string, startYear int) (*dataset.Dataset, error) {
	m.mu.Lock()
	m.years = append(m.years, startYear)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return dataset.Read(strings.NewReader(m.csv), startYear)
}

// flakyTrainer fails the first failures calls, then delegates to a real trainer.
type flakyTrainer struct {
	failures int32
	calls    atomic.Int32
	rows     atomic.Int32
	real     *model.Trainer
}

func (f *flakyTrainer) Train(ctx context.Context, ds *dataset.Dataset) (*model.Model, error) {
	n := f.calls.Add(1)
	f.rows.Store(int32(ds.Len()))
	if n <= f.failures {
		return nil, &domain.TrainingError{Err: domain.ErrInsufficientRows}
	}
	return f.real.Train(ctx, ds)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTrainer(failures int32) *flakyTrainer {
	cfg := model.DefaultConfig()
	cfg.Forest.Trees = 5
	return &flakyTrainer{failures: failures, real: model.NewTrainer(cfg, discardLogger())}
}

const header = "Date,State,County,City," +
	"O3 Mean,O3 1st Max Value,O3 AQI,CO Mean,CO 1st Max Value,CO AQI," +
	"SO2 Mean,SO2 1st Max Value,SO2 AQI,NO2 Mean,NO2 1st Max Value,NO2 AQI\n"

func testCSV() string {
	var b strings.Builder
	b.WriteString(header)
	for _, year := range []string{"2016", "2021", "2022"} {
		for _, day := range []string{"01", "02", "03", "04", "05"} {
			b.WriteString(year + "-06-" + day + ",CA,Los Angeles,Los Angeles,0.04,0.05,40,0.3,0.4,5,1,2,3,10,20," + day + "\n")
		}
	}
	return b.String()
}

func newPipeline(f *mockFetcher, l *mockLoader, tr *flakyTrainer, metrics *observability.Metrics) *pipeline.Pipeline {
	cfg := pipeline.Config{DatasetPath: "aq.csv", StartYear: 2020, HistoryStartYear: 2015}
	return pipeline.New(f, l, tr, cfg, discardLogger(), metrics)
}

// --- tests ---

func TestPipeline_Run_TrainsOnce(t *testing.T) {
	f := &mockFetcher{}
	l := &mockLoader{csv: testCSV()}
	tr := newTrainer(0)
	metrics := observability.NewMetricsForTesting()
	p := newPipeline(f, l, tr, metrics)

	_, err := p.Model()
	require.ErrorIs(t, err, domain.ErrModelNotTrained)
	require.Error(t, p.CheckReadiness(context.Background()))

	require.NoError(t, p.Run(context.Background()))

	require.NoError(t, p.CheckReadiness(context.Background()))
	m, err := p.Model()
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ModelReady))
	assert.Equal(t, 10.0, testutil.ToFloat64(metrics.DatasetRows))

	// Later calls reuse the trained snapshot.
	s1, err := p.EnsureTrained(context.Background())
	require.NoError(t, err)
	s2, err := p.EnsureTrained(context.Background())
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, int32(1), tr.calls.Load())
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestPipeline_TrainsOnStartYearAndKeepsHistory(t *testing.T) {
	l := &mockLoader{csv: testCSV()}
	tr := newTrainer(0)
	p := newPipeline(&mockFetcher{}, l, tr, observability.NewMetricsForTesting())

	s, err := p.EnsureTrained(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{2015}, l.years)
	assert.Equal(t, int32(10), tr.rows.Load())
	assert.Equal(t, 15, s.Dataset.Len())
	assert.Len(t, s.Dataset.History("CA", "Los Angeles", 2015), 15)
	assert.Equal(t, []string{"CA"}, s.Locations.States())

	got, ok := p.Snapshot()
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestPipeline_FailureIsNotCached(t *testing.T) {
	tr := newTrainer(1)
	p := newPipeline(&mockFetcher{}, &mockLoader{csv: testCSV()}, tr, observability.NewMetricsForTesting())

	err := p.Run(context.Background())
	var te *domain.TrainingError
	require.ErrorAs(t, err, &te)
	require.Error(t, p.CheckReadiness(context.Background()))
	_, ok := p.Snapshot()
	assert.False(t, ok)
	_, err = p.Model()
	require.ErrorIs(t, err, domain.ErrModelNotTrained, "a failed run is not retried by Model")
	assert.Equal(t, int32(1), tr.calls.Load())

	_, err = p.EnsureTrained(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), tr.calls.Load())
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_FetchAndLoadErrors(t *testing.T) {
	t.Run("fetch", func(t *testing.T) {
		fetchErr := &domain.DataLoadError{Path: "aq.csv", Err: errors.New("offline")}
		p := newPipeline(&mockFetcher{err: fetchErr}, &mockLoader{csv: testCSV()}, newTrainer(0), observability.NewMetricsForTesting())

		err := p.Run(context.Background())
		var le *domain.DataLoadError
		require.ErrorAs(t, err, &le)
	})

	t.Run("load", func(t *testing.T) {
		loadErr := &domain.DataLoadError{Path: "aq.csv", Err: domain.ErrMissingColumn}
		tr := newTrainer(0)
		p := newPipeline(&mockFetcher{}, &mockLoader{err: loadErr}, tr, observability.NewMetricsForTesting())

		err := p.Run(context.Background())
		require.ErrorIs(t, err, domain.ErrMissingColumn)
		assert.Equal(t, int32(0), tr.calls.Load())
	})
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newPipeline(&mockFetcher{}, &mockLoader{csv: testCSV()}, newTrainer(0), observability.NewMetricsForTesting())

	assert.NoError(t, p.Run(ctx))
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_ConcurrentCallersShareOneRun(t *testing.T) {
	tr := newTrainer(0)
	p := newPipeline(&mockFetcher{}, &mockLoader{csv: testCSV()}, tr, observability.NewMetricsForTesting())

	var wg sync.WaitGroup
	snaps := make([]*pipeline.Snapshot, 8)
	for i := range snaps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := p.EnsureTrained(context.Background())
			assert.NoError(t, err)
			snaps[i] = s
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("training did not finish")
	}

	for _, s := range snaps {
		assert.Same(t, snaps[0], s)
	}
	assert.Equal(t, int32(1), tr.calls.Load())
}
