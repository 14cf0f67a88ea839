package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-service/internal/dataset"
)

func TestGenerate_LoadsCleanly(t *testing.T) {
	var buf bytes.Buffer
	stats, err := generate(&buf, 400, 7, 2018, 2020)
	require.NoError(t, err)
	assert.Equal(t, 400, stats.rows)

	ds, err := dataset.Read(bytes.NewReader(buf.Bytes()), 2018)
	require.NoError(t, err)
	assert.Equal(t, 400+stats.duplicates, ds.Stats.RowsRead)
	assert.Equal(t, stats.duplicates, ds.Stats.DuplicatesDropped)
	assert.Equal(t, stats.blanks, ds.Stats.ValuesImputed)
	assert.Equal(t, 400, ds.Len())
	assert.Empty(t, ds.NonNumeric)
}

func TestGenerate_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	_, err := generate(&a, 50, 3, 2020, 2021)
	require.NoError(t, err)
	_, err = generate(&b, 50, 3, 2020, 2021)
	require.NoError(t, err)
	assert.Equal(t, a.String(), b.String())
}
