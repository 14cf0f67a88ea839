// Package forest implements a multi-output random forest regressor.
//
// Each tree is grown on a bootstrap sample of the training rows. Features are
// either numeric columns, split on a threshold, or categorical groups given as
// integer codes and treated as one-hot indicators: a split on category c of a
// group sends rows whose code is c right and every other row left. A code of
// -1 (or any code unseen in training) therefore matches no indicator, which is
// the all-zero encoding. Splits minimize the summed variance of all outputs;
// leaves predict the mean output vector and the forest averages its trees.
package forest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Sample is one feature row.
type Sample struct {
	Numeric []float64
	// Codes holds one category code per categorical group; -1 is unknown.
	Codes []int
}

// Config controls tree growth.
type Config struct {
	Trees int
	// MaxDepth limits tree depth; 0 grows until leaves are pure or too small.
	MaxDepth int
	// MinSamplesSplit is the smallest node that may be split.
	MinSamplesSplit int
	// MaxFeatures is the fraction of candidate features drawn at each split;
	// 0 or 1 considers all of them.
	MaxFeatures float64
	// Bootstrap samples each tree's rows with replacement when true.
	Bootstrap bool
	Seed      int64
	// Workers bounds parallel tree fitting; 0 uses GOMAXPROCS.
	Workers int
}

// DefaultConfig mirrors a conventional random forest regressor: 100 fully
// grown bootstrapped trees that consider every feature at each split.
func DefaultConfig() Config {
	return Config{
		Trees:           100,
		MinSamplesSplit: 2,
		MaxFeatures:     1,
		Bootstrap:       true,
		Seed:            42,
	}
}

func (c Config) featuresPerSplit(n int) int {
	if c.MaxFeatures <= 0 || c.MaxFeatures >= 1 {
		return n
	}
	return max(1, int(math.Ceil(c.MaxFeatures*float64(n))))
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Forest is a fitted ensemble. It is safe for concurrent prediction.
type Forest struct {
	trees   []*node
	numeric int
	groups  int
	outputs int
}

// ErrNoSamples is returned when fitting without training rows.
var ErrNoSamples = errors.New("forest: no training samples")

// Fit grows cfg.Trees trees in parallel. Tree i draws its bootstrap sample
// and feature subsets from a source seeded with cfg.Seed+i, so results do not
// depend on scheduling. Fit returns ctx.Err() if ctx is canceled mid-way.
func Fit(ctx context.Context, cfg Config, x []Sample, y [][]float64) (*Forest, error) {
	if len(x) == 0 {
		return nil, ErrNoSamples
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("forest: %d samples but %d targets", len(x), len(y))
	}
	if cfg.Trees <= 0 {
		return nil, fmt.Errorf("forest: tree count must be positive, got %d", cfg.Trees)
	}
	cfg.MinSamplesSplit = max(cfg.MinSamplesSplit, 2)

	f := &Forest{
		trees:   make([]*node, cfg.Trees),
		numeric: len(x[0].Numeric),
		groups:  len(x[0].Codes),
		outputs: len(y[0]),
	}
	cardinality := make([]int, f.groups)
	for i := range x {
		if len(x[i].Numeric) != f.numeric || len(x[i].Codes) != f.groups {
			return nil, fmt.Errorf("forest: sample %d has %d numeric and %d categorical features, want %d and %d",
				i, len(x[i].Numeric), len(x[i].Codes), f.numeric, f.groups)
		}
		if len(y[i]) != f.outputs {
			return nil, fmt.Errorf("forest: target %d has %d outputs, want %d", i, len(y[i]), f.outputs)
		}
		for g, code := range x[i].Codes {
			cardinality[g] = max(cardinality[g], code+1)
		}
	}

	candidates := make([]candidate, 0, f.numeric)
	for j := range f.numeric {
		candidates = append(candidates, candidate{numeric: true, index: j})
	}
	for g, k := range cardinality {
		for code := range k {
			candidates = append(candidates, candidate{index: g, code: code})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())
	for t := range cfg.Trees {
		g.Go(func() error {
			rnd := rand.New(rand.NewSource(cfg.Seed + int64(t)))
			b := &builder{
				ctx:        gctx,
				x:          x,
				y:          y,
				outputs:    f.outputs,
				cfg:        cfg,
				candidates: candidates,
				rnd:        rnd,
			}
			root, err := b.build(sampleRows(len(x), cfg.Bootstrap, rnd), 0)
			if err != nil {
				return err
			}
			f.trees[t] = root
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

func sampleRows(n int, bootstrap bool, rnd *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		if bootstrap {
			idx[i] = rnd.Intn(n)
		} else {
			idx[i] = i
		}
	}
	return idx
}

// Predict averages the trees' leaf values for x.
func (f *Forest) Predict(x Sample) []float64 {
	out := make([]float64, f.outputs)
	for _, t := range f.trees {
		for o, v := range t.predict(x) {
			out[o] += v
		}
	}
	for o := range out {
		out[o] /= float64(len(f.trees))
	}
	return out
}

// Trees returns the ensemble size.
func (f *Forest) Trees() int { return len(f.trees) }
