package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/sirupsen/logrus"

	"go.ngs.io/envreader/internal/domain"
)

// GridSpec defines the projected grid and time axis of a generated file.
type GridSpec struct {
	Proj4   string
	NX, NY  int
	DX      float64 // km
	X0, Y0  float64 // km, lower left corner
	Levels  int
	Start   time.Time
	Steps   int
	Step    time.Duration
	NetCDF4 bool
}

const defaultProj4 = "+proj=lcc +lat_1=33 +lat_2=45 +lat_0=40 +lon_0=-97 +x_0=0 +y_0=0 +a=6370997 +b=6370997 +to_meter=1"

func main() {
	// Command line flags
	outPath := flag.String("out", "./data/synthetic_grid.nc", "Output NetCDF file")
	proj4 := flag.String("proj4", defaultProj4, "PROJ.4 string of the grid")
	nx := flag.Int("nx", 50, "Number of grid columns")
	ny := flag.Int("ny", 40, "Number of grid rows")
	dx := flag.Float64("dx", 4.0, "Grid spacing in km")
	x0 := flag.Float64("x0", -100.0, "Lower left x in km")
	y0 := flag.Float64("y0", -80.0, "Lower left y in km")
	levels := flag.Int("levels", 3, "Number of depth levels")
	steps := flag.Int("steps", 24, "Number of time steps")
	step := flag.Duration("step", time.Hour, "Time step")
	start := flag.String("start", "2015-11-16T00:00:00Z", "First time step (RFC3339)")
	nc4 := flag.Bool("netcdf4", false, "Write NetCDF-4 instead of classic format")

	flag.Parse()

	log := logrus.StandardLogger()

	t0, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		log.WithError(err).Fatal("Invalid start time")
	}

	spec := GridSpec{
		Proj4:   *proj4,
		NX:      *nx,
		NY:      *ny,
		DX:      *dx,
		X0:      *x0,
		Y0:      *y0,
		Levels:  *levels,
		Start:   t0.UTC(),
		Steps:   *steps,
		Step:    *step,
		NetCDF4: *nc4,
	}

	log.WithFields(logrus.Fields{
		"grid":   fmt.Sprintf("%d × %d", spec.NX, spec.NY),
		"dx_km":  spec.DX,
		"levels": spec.Levels,
		"steps":  spec.Steps,
	}).Info("Generating synthetic CF grid")

	if err := generate(*outPath, spec); err != nil {
		log.WithError(err).Fatal("Failed to generate grid")
	}

	// Estimate file size
	cells := spec.NX * spec.NY
	bytes := 2*spec.Steps*spec.Levels*cells*4 + cells*8
	log.WithFields(logrus.Fields{
		"path":    *outPath,
		"size_mb": fmt.Sprintf("%.1f", float64(bytes)/1024/1024),
	}).Info("Generation complete")
}

// Validate checks that the grid can be written and later read back.
func (g GridSpec) Validate() error {
	if g.NX < 2 || g.NY < 2 {
		return fmt.Errorf("grid must be at least 2 × 2, got %d × %d", g.NX, g.NY)
	}
	if g.DX <= 0 {
		return fmt.Errorf("dx must be > 0")
	}
	if g.Levels < 1 {
		return fmt.Errorf("levels must be >= 1")
	}
	if g.Steps < 1 {
		return fmt.Errorf("steps must be >= 1")
	}
	if g.Steps > 1 && g.Step <= 0 {
		return fmt.Errorf("step must be > 0")
	}
	return nil
}

// fields holds the generated variables in row-major order.
type fields struct {
	x, y, depth, times []float64
	u, v               []float32 // [time, depth, y, x]
	h                  []float64 // [y, x]
}

// generateFields builds a rotating current over a sloping sea floor.
func generateFields(g GridSpec) fields {
	f := fields{
		x:     make([]float64, g.NX),
		y:     make([]float64, g.NY),
		depth: make([]float64, g.Levels),
		times: make([]float64, g.Steps),
		u:     make([]float32, g.Steps*g.Levels*g.NY*g.NX),
		v:     make([]float32, g.Steps*g.Levels*g.NY*g.NX),
		h:     make([]float64, g.NY*g.NX),
	}
	for i := range f.x {
		f.x[i] = g.X0 + float64(i)*g.DX
	}
	for j := range f.y {
		f.y[j] = g.Y0 + float64(j)*g.DX
	}
	for k := range f.depth {
		f.depth[k] = float64(k) * 10
	}
	for n := range f.times {
		f.times[n] = float64(g.Start.Add(time.Duration(n) * g.Step).Unix())
	}

	width := float64(g.NX-1) * g.DX
	height := float64(g.NY-1) * g.DX
	for j := 0; j < g.NY; j++ {
		for i := 0; i < g.NX; i++ {
			// Depth increases offshore with a smooth ripple.
			fx := float64(i) / float64(g.NX-1)
			fy := float64(j) / float64(g.NY-1)
			f.h[j*g.NX+i] = 20 + 480*fx + 15*math.Sin(fy*math.Pi*2)
		}
	}

	idx := 0
	for n := 0; n < g.Steps; n++ {
		// Tidal-like rotation with a 12.42 hour period.
		hours := float64(n) * g.Step.Hours()
		phase := 2 * math.Pi * hours / 12.42
		for k := 0; k < g.Levels; k++ {
			decay := math.Exp(-float64(k) * 0.3)
			for j := 0; j < g.NY; j++ {
				for i := 0; i < g.NX; i++ {
					sx := math.Sin(float64(i) * g.DX * math.Pi / math.Max(width, g.DX))
					sy := math.Cos(float64(j) * g.DX * math.Pi / math.Max(height, g.DX))
					f.u[idx] = float32(0.5 * decay * math.Cos(phase) * (1 + 0.2*sx))
					f.v[idx] = float32(0.5 * decay * math.Sin(phase) * (1 + 0.2*sy))
					idx++
				}
			}
		}
	}
	return f
}

// generate writes a CF file with a proj4 grid mapping that cfgeneric can read.
func generate(path string, g GridSpec) error {
	if err := g.Validate(); err != nil {
		return err
	}
	f := generateFields(g)

	if dir := filepath.Dir(path); dir != "" {
		//nolint:gosec // G301: Standard output directory permissions.
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	mode := netcdf.CLOBBER
	if g.NetCDF4 {
		mode |= netcdf.NETCDF4
	}
	ds, err := netcdf.CreateFile(path, mode)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer ds.Close()

	// Create dimensions
	timeDim, err := ds.AddDim("time", uint64(g.Steps))
	if err != nil {
		return err
	}
	depthDim, err := ds.AddDim("depth", uint64(g.Levels))
	if err != nil {
		return err
	}
	yDim, err := ds.AddDim("Y", uint64(g.NY))
	if err != nil {
		return err
	}
	xDim, err := ds.AddDim("X", uint64(g.NX))
	if err != nil {
		return err
	}

	// Grid mapping
	gm, err := ds.AddVar("projection_lcc", netcdf.INT, nil)
	if err != nil {
		return err
	}
	if err := writeText(gm, "grid_mapping_name", "lambert_conformal_conic"); err != nil {
		return err
	}
	if err := writeText(gm, "proj4", g.Proj4); err != nil {
		return err
	}

	// Coordinate variables
	timeVar, err := ds.AddVar("time", netcdf.DOUBLE, []netcdf.Dim{timeDim})
	if err != nil {
		return err
	}
	if err := writeAttrs(timeVar, "time", "seconds since 1970-01-01 00:00:00", ""); err != nil {
		return err
	}
	depthVar, err := ds.AddVar("depth", netcdf.DOUBLE, []netcdf.Dim{depthDim})
	if err != nil {
		return err
	}
	if err := writeAttrs(depthVar, "depth", "m", ""); err != nil {
		return err
	}
	xVar, err := ds.AddVar("X", netcdf.DOUBLE, []netcdf.Dim{xDim})
	if err != nil {
		return err
	}
	if err := writeAttrs(xVar, "projection_x_coordinate", "km", ""); err != nil {
		return err
	}
	yVar, err := ds.AddVar("Y", netcdf.DOUBLE, []netcdf.Dim{yDim})
	if err != nil {
		return err
	}
	if err := writeAttrs(yVar, "projection_y_coordinate", "km", ""); err != nil {
		return err
	}

	// Data variables
	grid4D := []netcdf.Dim{timeDim, depthDim, yDim, xDim}
	uVar, err := ds.AddVar("u", netcdf.FLOAT, grid4D)
	if err != nil {
		return err
	}
	if err := writeAttrs(uVar, domain.EastwardCurrent, "m s-1", "projection_lcc"); err != nil {
		return err
	}
	vVar, err := ds.AddVar("v", netcdf.FLOAT, grid4D)
	if err != nil {
		return err
	}
	if err := writeAttrs(vVar, domain.NorthwardCurrent, "m s-1", "projection_lcc"); err != nil {
		return err
	}
	hVar, err := ds.AddVar("h", netcdf.DOUBLE, []netcdf.Dim{yDim, xDim})
	if err != nil {
		return err
	}
	if err := writeAttrs(hVar, domain.SeaFloorDepthBelowSeaLevel, "m", "projection_lcc"); err != nil {
		return err
	}

	if err := ds.EndDef(); err != nil {
		return err
	}

	if err := gm.WriteInt32s([]int32{0}); err != nil {
		return err
	}
	for _, w := range []struct {
		v    netcdf.Var
		data []float64
	}{
		{timeVar, f.times}, {depthVar, f.depth}, {xVar, f.x}, {yVar, f.y}, {hVar, f.h},
	} {
		if err := w.v.WriteFloat64s(w.data); err != nil {
			return err
		}
	}
	if err := uVar.WriteFloat32s(f.u); err != nil {
		return err
	}
	return vVar.WriteFloat32s(f.v)
}

func writeText(v netcdf.Var, key, value string) error {
	return v.Attr(key).WriteBytes([]byte(value))
}

func writeAttrs(v netcdf.Var, standardName, units, gridMapping string) error {
	if err := writeText(v, "standard_name", standardName); err != nil {
		return err
	}
	if units != "" {
		if err := writeText(v, "units", units); err != nil {
			return err
		}
	}
	if gridMapping != "" {
		return writeText(v, "grid_mapping", gridMapping)
	}
	return nil
}
