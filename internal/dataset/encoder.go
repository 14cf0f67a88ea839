package dataset

import (
	"slices"

	"github.com/couchcryptid/air-quality-service/internal/domain"
)

// CategoryEncoder assigns integer codes to the categories present in a
// dataset, ordered by name. It is kept for consumers that expect a
// label-encoded category column; the regression path does not use it.
type CategoryEncoder struct {
	Classes []domain.AQICategory
}

// NewCategoryEncoder fits an encoder to the distinct values of cats.
func NewCategoryEncoder(cats []domain.AQICategory) *CategoryEncoder {
	classes := slices.Clone(cats)
	slices.Sort(classes)
	return &CategoryEncoder{Classes: slices.Compact(classes)}
}

// Encode returns the code of c, or -1 when c was not seen during fitting.
func (e *CategoryEncoder) Encode(c domain.AQICategory) int {
	i, ok := slices.BinarySearch(e.Classes, c)
	if !ok {
		return -1
	}
	return i
}

// Decode returns the category with the given code.
func (e *CategoryEncoder) Decode(code int) (domain.AQICategory, bool) {
	if code < 0 || code >= len(e.Classes) {
		return "", false
	}
	return e.Classes[code], true
}
