package forest

import (
	"context"
	"math/rand"
	"sort"
)

// node is either a leaf (left == nil) holding the mean target of its samples,
// or an internal split.
type node struct {
	split       candidate
	threshold   float64
	left, right *node
	value       []float64
}

// candidate is a split feature: a numeric column, or one category of a
// one-hot encoded group.
type candidate struct {
	numeric bool
	index   int // numeric column or group
	code    int // category code; only for one-hot candidates
}

// goesRight reports which side of a split x falls on. Numeric splits send
// values above the threshold right; one-hot splits send the matching
// category right, so unknown codes always go left.
func (n *node) goesRight(x Sample) bool {
	if n.split.numeric {
		return x.Numeric[n.split.index] > n.threshold
	}
	return x.Codes[n.split.index] == n.split.code
}

func (n *node) predict(x Sample) []float64 {
	for n.left != nil {
		if n.goesRight(x) {
			n = n.right
		} else {
			n = n.left
		}
	}
	return n.value
}

type builder struct {
	ctx        context.Context
	x          []Sample
	y          [][]float64
	outputs    int
	cfg        Config
	candidates []candidate
	rnd        *rand.Rand
}

// stats holds per-output sums over a set of samples.
type stats struct {
	n     int
	sum   []float64
	sumSq []float64
}

func newStats(outputs int) stats {
	return stats{sum: make([]float64, outputs), sumSq: make([]float64, outputs)}
}

func (s *stats) add(y []float64) {
	s.n++
	for o, v := range y {
		s.sum[o] += v
		s.sumSq[o] += v * v
	}
}

// impurity is the summed per-output variance.
func (s *stats) impurity() float64 {
	if s.n == 0 {
		return 0
	}
	n := float64(s.n)
	total := 0.0
	for o := range s.sum {
		m := s.sum[o] / n
		total += s.sumSq[o]/n - m*m
	}
	return total
}

func (s *stats) mean() []float64 {
	out := make([]float64, len(s.sum))
	for o, v := range s.sum {
		out[o] = v / float64(s.n)
	}
	return out
}

// proxy ranks splits: maximizing sum_o (L_o^2/nL + R_o^2/nR) minimizes the
// weighted child variance.
func proxy(left []float64, nLeft int, right []float64, nRight int) float64 {
	score := 0.0
	for o := range left {
		score += left[o]*left[o]/float64(nLeft) + right[o]*right[o]/float64(nRight)
	}
	return score
}

const pureImpurity = 1e-12

func (b *builder) build(idx []int, depth int) (*node, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, err
	}

	total := newStats(b.outputs)
	for _, i := range idx {
		total.add(b.y[i])
	}
	leaf := &node{value: total.mean()}
	if len(idx) < b.cfg.MinSamplesSplit ||
		(b.cfg.MaxDepth > 0 && depth >= b.cfg.MaxDepth) ||
		total.impurity() <= pureImpurity {
		return leaf, nil
	}

	split, threshold, ok := b.bestSplit(idx, total)
	if !ok {
		return leaf, nil
	}

	n := &node{split: split, threshold: threshold}
	mid := partition(idx, func(i int) bool { return n.goesRight(b.x[i]) })
	var err error
	if n.left, err = b.build(idx[:mid], depth+1); err != nil {
		return nil, err
	}
	if n.right, err = b.build(idx[mid:], depth+1); err != nil {
		return nil, err
	}
	return n, nil
}

// partition reorders idx so that samples going left come first and returns
// the number of left samples.
func partition(idx []int, right func(int) bool) int {
	mid := 0
	for i, v := range idx {
		if !right(v) {
			idx[i], idx[mid] = idx[mid], idx[i]
			mid++
		}
	}
	return mid
}

func (b *builder) drawCandidates() []candidate {
	k := b.cfg.featuresPerSplit(len(b.candidates))
	if k >= len(b.candidates) {
		return b.candidates
	}
	out := make([]candidate, k)
	for i, j := range b.rnd.Perm(len(b.candidates))[:k] {
		out[i] = b.candidates[j]
	}
	return out
}

func (b *builder) bestSplit(idx []int, total stats) (candidate, float64, bool) {
	var (
		best      candidate
		threshold float64
		bestScore = -1.0
		found     bool
	)
	consider := func(c candidate, thr, score float64) {
		if !found || score > bestScore {
			best, threshold, bestScore, found = c, thr, score, true
		}
	}

	drawn := b.drawCandidates()
	codesByGroup := map[int][]int{}
	var groups []int
	for _, c := range drawn {
		if c.numeric {
			b.scanNumeric(idx, c, total, consider)
			continue
		}
		if _, seen := codesByGroup[c.index]; !seen {
			groups = append(groups, c.index)
		}
		codesByGroup[c.index] = append(codesByGroup[c.index], c.code)
	}
	for _, g := range groups {
		b.scanGroup(idx, g, codesByGroup[g], total, consider)
	}
	return best, threshold, found
}

// scanNumeric sweeps samples in value order, scoring a threshold halfway
// between each pair of distinct neighbouring values.
func (b *builder) scanNumeric(idx []int, c candidate, total stats, consider func(candidate, float64, float64)) {
	order := append([]int(nil), idx...)
	col := c.index
	sort.SliceStable(order, func(i, j int) bool {
		return b.x[order[i]].Numeric[col] < b.x[order[j]].Numeric[col]
	})

	left := make([]float64, b.outputs)
	right := make([]float64, b.outputs)
	for k := 0; k < len(order)-1; k++ {
		for o, v := range b.y[order[k]] {
			left[o] += v
		}
		cur, next := b.x[order[k]].Numeric[col], b.x[order[k+1]].Numeric[col]
		if cur == next {
			continue
		}
		for o := range right {
			right[o] = total.sum[o] - left[o]
		}
		nLeft := k + 1
		consider(c, cur+(next-cur)/2, proxy(left, nLeft, right, len(order)-nLeft))
	}
}

// scanGroup scores "category == code" splits for the drawn codes of one
// one-hot group.
func (b *builder) scanGroup(idx []int, group int, codes []int, total stats, consider func(candidate, float64, float64)) {
	wanted := make(map[int]bool, len(codes))
	for _, c := range codes {
		wanted[c] = true
	}
	byCode := map[int]*stats{}
	for _, i := range idx {
		code := b.x[i].Codes[group]
		if !wanted[code] {
			continue
		}
		s := byCode[code]
		if s == nil {
			st := newStats(b.outputs)
			s = &st
			byCode[code] = s
		}
		s.add(b.y[i])
	}

	left := make([]float64, b.outputs)
	for _, code := range codes {
		s := byCode[code]
		if s == nil || s.n == len(idx) {
			continue
		}
		for o := range left {
			left[o] = total.sum[o] - s.sum[o]
		}
		consider(candidate{index: group, code: code}, 0, proxy(left, len(idx)-s.n, s.sum, s.n))
	}
}
