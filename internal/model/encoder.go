package model

import (
	"slices"
)

// OneHotEncoder maps each categorical feature to the index of its value among
// the sorted categories seen during fitting. Unknown values encode as -1,
// the all-zero one-hot vector, instead of failing.
type OneHotEncoder struct {
	categories [][]string
}

// FitOneHot learns the categories of each column of rows.
func FitOneHot(rows [][]string) *OneHotEncoder {
	if len(rows) == 0 {
		return &OneHotEncoder{}
	}
	cats := make([][]string, len(rows[0]))
	for j := range cats {
		col := make([]string, len(rows))
		for i, r := range rows {
			col[i] = r[j]
		}
		slices.Sort(col)
		cats[j] = slices.Compact(col)
	}
	return &OneHotEncoder{categories: cats}
}

// Encode returns the category code of each value; unseen values yield -1.
func (e *OneHotEncoder) Encode(values []string) []int {
	codes := make([]int, len(e.categories))
	for j, cats := range e.categories {
		if j >= len(values) {
			codes[j] = -1
			continue
		}
		i, ok := slices.BinarySearch(cats, values[j])
		if !ok {
			i = -1
		}
		codes[j] = i
	}
	return codes
}

// Width is the length of the one-hot vector.
func (e *OneHotEncoder) Width() int {
	n := 0
	for _, cats := range e.categories {
		n += len(cats)
	}
	return n
}

// Categories returns the known categories of column j.
func (e *OneHotEncoder) Categories(j int) []string {
	return slices.Clone(e.categories[j])
}
