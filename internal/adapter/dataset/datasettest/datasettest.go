// Package datasettest builds synthetic CF datasets for tests, either in memory
// or as NetCDF files on disk.
package datasettest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/envreader/internal/adapter/dataset/memory"
)

// Proj4 is the projection string carried by the synthetic grid mapping.
const Proj4 = "+proj=utm +zone=32 +ellps=WGS84 +units=m +no_defs"

// Dim is a named dimension.
type Dim struct {
	Name string
	Len  int
}

// Attr is a variable attribute. Value is a string, float64 or []float64.
type Attr struct {
	Key   string
	Value any
}

// Var is a variable definition with row-major data.
type Var struct {
	Name    string
	Dims    []string
	Float32 bool
	Data    []float64
	Attrs   []Attr
}

// File describes a whole dataset.
type File struct {
	Dims []Dim
	Vars []Var
}

// Options tweak the synthetic CF grid.
type Options struct {
	XUnits string // "m" (default) or "km".
	Levels int    // Depth levels of 4-D variables, default 2.
}

// Encode returns the synthetic value stored at u[t, z, y, x].
func Encode(t, z, y, x int) float64 {
	return float64(10000*t + 1000*z + 100*y + x)
}

// CF returns a grid with x in [0,10] step 1, y in [0,5] step 1, three hourly
// time steps from the Unix epoch, and eastward_current mapped to "u" on a
// (time, depth, y, x) grid. sea_floor_depth_below_sea_level is mapped to "h".
// A "mask" variable carries grid_mapping without standard_name and must be skipped.
func CF(opts Options) File {
	if opts.XUnits == "" {
		opts.XUnits = "m"
	}
	if opts.Levels == 0 {
		opts.Levels = 2
	}
	nx, ny, nt, nz := 11, 6, 3, opts.Levels

	scale := 1.0
	if opts.XUnits == "km" {
		scale = 0.001
	}
	x := make([]float64, nx)
	for i := range x {
		x[i] = float64(i) * scale
	}
	y := make([]float64, ny)
	for i := range y {
		y[i] = float64(i) * scale
	}

	u := make([]float64, 0, nt*nz*ny*nx)
	for t := 0; t < nt; t++ {
		for z := 0; z < nz; z++ {
			for j := 0; j < ny; j++ {
				for i := 0; i < nx; i++ {
					u = append(u, Encode(t, z, j, i))
				}
			}
		}
	}
	h := make([]float64, 0, ny*nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			h = append(h, float64(100*j+i))
		}
	}
	mask := make([]float64, ny*nx)

	return File{
		Dims: []Dim{{"time", nt}, {"depth", nz}, {"y", ny}, {"x", nx}},
		Vars: []Var{
			{Name: "projection_stere", Attrs: []Attr{
				{"grid_mapping_name", "transverse_mercator"},
				{"proj4", Proj4},
			}},
			{Name: "time", Dims: []string{"time"}, Data: []float64{0, 3600, 7200}, Attrs: []Attr{
				{"standard_name", "time"},
				{"units", "seconds since 1970-01-01 00:00:00"},
			}},
			{Name: "depth", Dims: []string{"depth"}, Data: levels(nz), Attrs: []Attr{
				{"standard_name", "depth"},
			}},
			{Name: "X", Dims: []string{"x"}, Data: x, Attrs: []Attr{
				{"standard_name", "projection_x_coordinate"},
				{"units", opts.XUnits},
			}},
			{Name: "Y", Dims: []string{"y"}, Data: y, Attrs: []Attr{
				{"standard_name", "projection_y_coordinate"},
				{"units", opts.XUnits},
			}},
			{Name: "u", Dims: []string{"time", "depth", "y", "x"}, Float32: true, Data: u, Attrs: []Attr{
				{"standard_name", "eastward_current"},
				{"grid_mapping", "projection_stere"},
				{"units", "m s-1"},
			}},
			{Name: "h", Dims: []string{"y", "x"}, Data: h, Attrs: []Attr{
				{"standard_name", "sea_floor_depth_below_sea_level"},
				{"grid_mapping", "projection_stere"},
			}},
			{Name: "mask", Dims: []string{"y", "x"}, Data: mask, Attrs: []Attr{
				{"grid_mapping", "projection_stere"},
			}},
		},
	}
}

func levels(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * 10
	}
	return out
}

func (f File) shape(v Var) ([]int, error) {
	shape := make([]int, 0, len(v.Dims))
	for _, name := range v.Dims {
		found := false
		for _, d := range f.Dims {
			if d.Name == name {
				shape = append(shape, d.Len)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("variable %s uses unknown dimension %s", v.Name, name)
		}
	}
	return shape, nil
}

// Memory builds the dataset in memory.
func Memory(t testing.TB, f File) *memory.Dataset {
	t.Helper()
	ds := memory.New()
	for _, v := range f.Vars {
		shape, err := f.shape(v)
		if err != nil {
			t.Fatalf("memory dataset: %v", err)
		}
		data := v.Data
		if len(v.Dims) == 0 && data == nil {
			data = []float64{0}
		}
		ds.AddVariable(v.Name, shape, data)
		for _, a := range v.Attrs {
			ds.SetAttribute(v.Name, a.Key, a.Value)
		}
	}
	return ds
}

// Write writes the dataset as a classic NetCDF file and returns its path.
func Write(t testing.TB, path string, f File) string {
	t.Helper()
	//nolint:gosec // G301: Standard test directory permissions.
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	nc, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		t.Fatalf("create nc: %v", err)
	}
	defer func() { _ = nc.Close() }()

	dims := make(map[string]netcdf.Dim, len(f.Dims))
	for _, d := range f.Dims {
		dim, err := nc.AddDim(d.Name, uint64(d.Len))
		if err != nil {
			t.Fatalf("add dim %s: %v", d.Name, err)
		}
		dims[d.Name] = dim
	}

	vars := make([]netcdf.Var, len(f.Vars))
	for i, v := range f.Vars {
		vdims := make([]netcdf.Dim, 0, len(v.Dims))
		for _, name := range v.Dims {
			vdims = append(vdims, dims[name])
		}
		typ := netcdf.DOUBLE
		switch {
		case len(v.Dims) == 0:
			typ = netcdf.INT
		case v.Float32:
			typ = netcdf.FLOAT
		}
		nv, err := nc.AddVar(v.Name, typ, vdims)
		if err != nil {
			t.Fatalf("add var %s: %v", v.Name, err)
		}
		for _, a := range v.Attrs {
			if err := writeAttr(nv.Attr(a.Key), a.Value); err != nil {
				t.Fatalf("write attr %s:%s: %v", v.Name, a.Key, err)
			}
		}
		vars[i] = nv
	}

	if err := nc.EndDef(); err != nil {
		t.Fatalf("enddef: %v", err)
	}

	for i, v := range f.Vars {
		if err := writeData(vars[i], v); err != nil {
			t.Fatalf("write %s: %v", v.Name, err)
		}
	}
	return path
}

func writeAttr(a netcdf.Attr, value any) error {
	switch val := value.(type) {
	case string:
		return a.WriteBytes([]byte(val))
	case float64:
		return a.WriteFloat64s([]float64{val})
	case []float64:
		return a.WriteFloat64s(val)
	default:
		return fmt.Errorf("unsupported attribute value %T", value)
	}
}

func writeData(nv netcdf.Var, v Var) error {
	switch {
	case len(v.Dims) == 0:
		return nv.WriteInt32s([]int32{0})
	case v.Float32:
		data := make([]float32, len(v.Data))
		for i, val := range v.Data {
			data[i] = float32(val)
		}
		return nv.WriteFloat32s(data)
	default:
		return nv.WriteFloat64s(v.Data)
	}
}
