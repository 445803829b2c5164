package axis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesBounds(t *testing.T) {
	a, err := New([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 1)
	require.NoError(t, err)

	assert.Equal(t, 0.0, a.Min)
	assert.Equal(t, 10.0, a.Max)
	assert.Equal(t, 1.0, a.Step)
	assert.False(t, a.Descending)
	assert.Equal(t, 11, a.Len())
	assert.True(t, a.Uniform(1e-9))
}

func TestNew_KilometreScaling(t *testing.T) {
	raw := []float64{-2, -1, 0, 1}
	a, err := New(raw, 1000)
	require.NoError(t, err)

	assert.Equal(t, -2000.0, a.Min)
	assert.Equal(t, 1000.0, a.Max)
	assert.Equal(t, 1000.0, a.Step)
	// Input must not be modified.
	assert.Equal(t, []float64{-2, -1, 0, 1}, raw)
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"empty", nil},
		{"single", []float64{1}},
		{"zero step", []float64{1, 1, 2}},
		{"nan", []float64{0, 1, math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.values, 1)
			assert.Error(t, err)
		})
	}
}

func TestIndex_RoundsToNearest(t *testing.T) {
	a, err := New([]float64{0, 1, 2, 3, 4, 5}, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, a.Index(2.6))
	assert.Equal(t, 2, a.Index(2.4))
	assert.Equal(t, 0, a.Index(0))
	assert.Equal(t, 5, a.Index(5))
}

func TestIndex_RoundTripOnGridCoordinates(t *testing.T) {
	a, err := New([]float64{-500, -250, 0, 250, 500, 750, 1000}, 1)
	require.NoError(t, err)

	for i := 0; i < a.Len(); i++ {
		x := a.Min + float64(i)*a.Step
		assert.Equal(t, i, a.Index(x), "coordinate %v", x)
		assert.Equal(t, x, a.Coordinate(i))
	}
}

func TestIndex_DescendingAxis(t *testing.T) {
	a, err := New([]float64{60, 59.5, 59, 58.5}, 1)
	require.NoError(t, err)

	require.True(t, a.Descending)
	assert.Equal(t, 58.5, a.Min)
	assert.Equal(t, 60.0, a.Max)
	for i, v := range a.Values {
		assert.Equal(t, i, a.Index(v))
	}
	assert.Equal(t, 1, a.Index(59.4))
}

func TestContains(t *testing.T) {
	a, err := New([]float64{0, 1, 2}, 1)
	require.NoError(t, err)

	assert.True(t, a.Contains(0))
	assert.True(t, a.Contains(2))
	assert.False(t, a.Contains(-0.001))
	assert.False(t, a.Contains(2.001))
}

func TestNearest(t *testing.T) {
	asc, err := New([]float64{0, 1, 3, 7}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, asc.Nearest(2.6))
	assert.Equal(t, 3, asc.Nearest(100))
	assert.Equal(t, 0, asc.Nearest(-5))

	desc, err := New([]float64{7, 3, 1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, desc.Nearest(2.6))
	assert.Equal(t, 0, desc.Nearest(100))
	assert.Equal(t, 3, desc.Nearest(-5))
}

func TestUniform_DetectsIrregularSpacing(t *testing.T) {
	a, err := New([]float64{0, 1, 3, 7}, 1)
	require.NoError(t, err)
	assert.False(t, a.Uniform(1e-9))
}
