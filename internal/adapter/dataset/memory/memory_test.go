package memory_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/envreader/internal/adapter/dataset"
	"go.ngs.io/envreader/internal/adapter/dataset/datasettest"
	"go.ngs.io/envreader/internal/adapter/dataset/memory"
)

func TestSyntheticGrid(t *testing.T) {
	ds := datasettest.Memory(t, datasettest.CF(datasettest.Options{}))

	shape, err := ds.Shape("u")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 6, 11}, shape)

	v, err := ds.ReadFloat64At("u", []int{0, 1, 3, 5})
	require.NoError(t, err)
	assert.Equal(t, datasettest.Encode(0, 1, 3, 5), v)

	attrs, err := ds.Attributes("projection_stere")
	require.NoError(t, err)
	proj, ok := dataset.String(attrs, "proj4")
	require.True(t, ok)
	assert.Equal(t, datasettest.Proj4, proj)
}

func TestReadFloat64At(t *testing.T) {
	ds := memory.New().AddVariable("a", []int{2, 3}, []float64{0, 1, 2, 3, 4, 5})

	v, err := ds.ReadFloat64At("a", []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	_, err = ds.ReadFloat64At("a", []int{2, 0})
	require.Error(t, err)

	_, err = ds.ReadFloat64At("b", []int{0})
	require.ErrorIs(t, err, dataset.ErrNotFound)
}

func TestShortData(t *testing.T) {
	ds := memory.New().AddVariable("a", []int{2, 2}, []float64{1})
	_, err := ds.ReadFloat64At("a", []int{1, 1})
	require.Error(t, err)
}

func TestFailAttributes(t *testing.T) {
	boom := errors.New("boom")
	ds := memory.New().AddVariable("a", []int{1}, []float64{1}).FailAttributes("a", boom)

	_, err := ds.Attributes("a")
	require.ErrorIs(t, err, boom)
}

func TestReadFloat64sCopies(t *testing.T) {
	data := []float64{1, 2}
	ds := memory.New().AddVariable("a", []int{2}, data)

	out, err := ds.ReadFloat64s("a")
	require.NoError(t, err)
	out[0] = 99
	assert.Equal(t, 1.0, data[0])
}

func TestClose(t *testing.T) {
	ds := memory.New()
	assert.False(t, ds.Closed())
	require.NoError(t, ds.Close())
	assert.True(t, ds.Closed())
}
