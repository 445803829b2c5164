package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/envreader/internal/domain"
	"go.ngs.io/envreader/internal/reader/cfgeneric"
)

func testSpec() GridSpec {
	return GridSpec{
		Proj4:  defaultProj4,
		NX:     6,
		NY:     5,
		DX:     2,
		X0:     -4,
		Y0:     -2,
		Levels: 2,
		Start:  time.Date(2015, 11, 16, 0, 0, 0, 0, time.UTC),
		Steps:  4,
		Step:   time.Hour,
	}
}

func TestGenerateIsReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "grid.nc")
	spec := testSpec()
	require.NoError(t, generate(path, spec))

	r, err := cfgeneric.Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{domain.EastwardCurrent, domain.NorthwardCurrent, domain.SeaFloorDepthBelowSeaLevel}, r.Variables())

	b := r.Bounds()
	assert.InDelta(t, -4000.0, b.XMin, 1e-6)
	assert.InDelta(t, 6000.0, b.XMax, 1e-6)
	assert.InDelta(t, 2000.0, b.DeltaX, 1e-6)

	ta := r.TimeAxis()
	assert.True(t, spec.Start.Equal(ta.Start))
	assert.Equal(t, time.Hour, ta.Step)
	assert.Len(t, ta.Times, 4)

	// The sea floor deepens towards the east.
	west, err := r.Sample([]string{domain.SeaFloorDepthBelowSeaLevel}, time.Time{}, []float64{-4000}, []float64{0}, nil)
	require.NoError(t, err)
	east, err := r.Sample([]string{domain.SeaFloorDepthBelowSeaLevel}, time.Time{}, []float64{6000}, []float64{0}, nil)
	require.NoError(t, err)
	assert.Greater(t, east[0], west[0])
}

func TestGenerateFields(t *testing.T) {
	spec := testSpec()
	f := generateFields(spec)

	assert.Len(t, f.u, 4*2*5*6)
	assert.Len(t, f.h, 5*6)
	assert.Equal(t, []float64{-4, -2, 0, 2, 4, 6}, f.x)
	assert.Equal(t, float64(spec.Start.Unix()), f.times[0])

	// Currents weaken with depth.
	assert.Less(t, abs32(f.u[5*6]), abs32(f.u[0]))
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*GridSpec){
		"small grid": func(g *GridSpec) { g.NX = 1 },
		"zero dx":    func(g *GridSpec) { g.DX = 0 },
		"no levels":  func(g *GridSpec) { g.Levels = 0 },
		"no steps":   func(g *GridSpec) { g.Steps = 0 },
		"zero step":  func(g *GridSpec) { g.Step = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			g := testSpec()
			mutate(&g)
			assert.Error(t, g.Validate())
		})
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
