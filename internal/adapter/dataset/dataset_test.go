package dataset_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/envreader/internal/adapter/dataset"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nul padded text", "km\x00\x00", "km"},
		{"bytes", []byte("m\x00"), "m"},
		{"float64", 2.5, []float64{2.5}},
		{"float32 slice", []float32{1, 2}, []float64{1, 2}},
		{"int16 slice", []int16{-1, 3}, []float64{-1, 3}},
		{"int8 scalar", int8(4), []float64{4}},
		{"unknown", struct{}{}, struct{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, dataset.Normalize(tt.in)); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMapAttributes(t *testing.T) {
	attrs := dataset.NewMapAttributes()
	attrs.Set("units", "km")
	attrs.Set("scale_factor", float32(0.5))
	attrs.Set("units", "m")

	assert.Equal(t, []string{"units", "scale_factor"}, attrs.Keys())

	units, ok := dataset.String(attrs, "units")
	require.True(t, ok)
	assert.Equal(t, "m", units)

	scale, ok := dataset.Float64(attrs, "scale_factor")
	require.True(t, ok)
	assert.Equal(t, 0.5, scale)

	_, ok = dataset.String(attrs, "scale_factor")
	assert.False(t, ok)
	_, ok = dataset.Float64(attrs, "units")
	assert.False(t, ok)
	_, ok = dataset.String(attrs, "absent")
	assert.False(t, ok)
}

func TestOffset(t *testing.T) {
	shape := []int{3, 2, 6, 11}

	off, err := dataset.Offset(shape, []int{0, 1, 3, 5})
	require.NoError(t, err)
	assert.Equal(t, 1*6*11+3*11+5, off)

	off, err = dataset.Offset([]int{}, []int{})
	require.NoError(t, err)
	assert.Equal(t, 0, off)

	_, err = dataset.Offset(shape, []int{0, 2, 0, 0})
	require.Error(t, err)
	_, err = dataset.Offset(shape, []int{0, -1, 0, 0})
	require.Error(t, err)
	_, err = dataset.Offset(shape, []int{0})
	require.Error(t, err)
}

func TestWiden(t *testing.T) {
	out, err := dataset.Widen([]int32{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, out)

	_, err = dataset.Widen("text")
	require.Error(t, err)
}

func TestSize(t *testing.T) {
	assert.Equal(t, 1, dataset.Size(nil))
	assert.Equal(t, 396, dataset.Size([]int{3, 2, 6, 11}))
}
