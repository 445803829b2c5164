package datasettest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/envreader/internal/adapter/dataset"
)

// Opener opens a dataset file with a specific backend.
type Opener func(path string) (dataset.Dataset, error)

// RunBackend checks a file backend against the synthetic CF grid.
func RunBackend(t *testing.T, open Opener) {
	t.Helper()

	path := Write(t, filepath.Join(t.TempDir(), "grid.nc"), CF(Options{}))
	ds, err := open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })

	t.Run("variables", func(t *testing.T) {
		names, err := ds.Variables()
		require.NoError(t, err)
		assert.Equal(t, []string{"projection_stere", "time", "depth", "X", "Y", "u", "h", "mask"}, names)
	})

	t.Run("attributes", func(t *testing.T) {
		attrs, err := ds.Attributes("u")
		require.NoError(t, err)
		assert.Equal(t, []string{"standard_name", "grid_mapping", "units"}, attrs.Keys())
		name, ok := dataset.String(attrs, "standard_name")
		require.True(t, ok)
		assert.Equal(t, "eastward_current", name)

		attrs, err = ds.Attributes("projection_stere")
		require.NoError(t, err)
		proj, ok := dataset.String(attrs, "proj4")
		require.True(t, ok)
		assert.Equal(t, Proj4, proj)
	})

	t.Run("shape", func(t *testing.T) {
		shape, err := ds.Shape("u")
		require.NoError(t, err)
		assert.Equal(t, []int{3, 2, 6, 11}, shape)

		shape, err = ds.Shape("h")
		require.NoError(t, err)
		assert.Equal(t, []int{6, 11}, shape)
	})

	t.Run("read all", func(t *testing.T) {
		vals, err := ds.ReadFloat64s("time")
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 3600, 7200}, vals)

		vals, err = ds.ReadFloat64s("X")
		require.NoError(t, err)
		assert.Len(t, vals, 11)
		assert.InDelta(t, 10.0, vals[10], 1e-12)
	})

	t.Run("read element", func(t *testing.T) {
		v, err := ds.ReadFloat64At("u", []int{0, 1, 3, 5})
		require.NoError(t, err)
		assert.InDelta(t, Encode(0, 1, 3, 5), v, 1e-6)

		v, err = ds.ReadFloat64At("u", []int{2, 0, 5, 10})
		require.NoError(t, err)
		assert.InDelta(t, Encode(2, 0, 5, 10), v, 1e-6)

		v, err = ds.ReadFloat64At("h", []int{4, 7})
		require.NoError(t, err)
		assert.InDelta(t, 407.0, v, 1e-12)
	})

	t.Run("index out of range", func(t *testing.T) {
		_, err := ds.ReadFloat64At("u", []int{3, 0, 0, 0})
		require.Error(t, err)
		_, err = ds.ReadFloat64At("u", []int{0, 0})
		require.Error(t, err)
	})

	t.Run("missing variable", func(t *testing.T) {
		_, err := ds.Attributes("nope")
		require.ErrorIs(t, err, dataset.ErrNotFound)
		_, err = ds.Shape("nope")
		require.ErrorIs(t, err, dataset.ErrNotFound)
		_, err = ds.ReadFloat64At("nope", []int{0})
		require.ErrorIs(t, err, dataset.ErrNotFound)
	})
}
