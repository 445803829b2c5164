// Package native implements dataset.Dataset with a pure-Go NetCDF reader that
// understands both NetCDF-3 and NetCDF-4 (HDF5) files.
package native

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"go.ngs.io/envreader/internal/adapter/dataset"
)

// Dataset is a NetCDF file opened read-only.
//
// The library only slices along the first dimension, so element reads keep
// the most recent first-dimension slab of each variable. Consecutive points
// at the same time step then decode the slab once.
type Dataset struct {
	path string
	nc   api.Group
	mu   sync.Mutex // the group seeks a shared file handle.

	shapes map[string][]int
	slabs  map[string]cachedSlab
}

type cachedSlab struct {
	index int64
	data  reflect.Value
}

// dimensioner is implemented by the library's NetCDF-3 and HDF5 groups.
type dimensioner interface {
	GetDimension(name string) (uint64, bool)
}

// Open opens a NetCDF-3 or NetCDF-4 file.
func Open(path string) (*Dataset, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	return newDataset(path, nc), nil
}

func newDataset(path string, nc api.Group) *Dataset {
	return &Dataset{
		path:   path,
		nc:     nc,
		shapes: make(map[string][]int),
		slabs:  make(map[string]cachedSlab),
	}
}

// Path returns the file path the dataset was opened from.
func (d *Dataset) Path() string {
	return d.path
}

// Variables implements dataset.Dataset.
func (d *Dataset) Variables() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nc.ListVariables(), nil
}

func (d *Dataset) getter(name string) (api.VarGetter, error) {
	if !slices.Contains(d.nc.ListVariables(), name) {
		return nil, fmt.Errorf("%w: %s", dataset.ErrNotFound, name)
	}
	vg, err := d.nc.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}
	return vg, nil
}

// Attributes implements dataset.Dataset.
func (d *Dataset) Attributes(name string) (dataset.Attributes, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vg, err := d.getter(name)
	if err != nil {
		return nil, err
	}
	src := vg.Attributes()
	attrs := dataset.NewMapAttributes()
	if src == nil {
		return attrs, nil
	}
	for _, key := range src.Keys() {
		if val, ok := src.Get(key); ok {
			attrs.Set(key, val)
		}
	}
	return attrs, nil
}

// Shape implements dataset.Dataset.
func (d *Dataset) Shape(name string) ([]int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vg, err := d.getter(name)
	if err != nil {
		return nil, err
	}
	shape, err := d.shape(name, vg)
	if err != nil {
		return nil, err
	}
	return slices.Clone(shape), nil
}

// shape returns the cached shape of a variable. Callers hold d.mu.
func (d *Dataset) shape(name string, vg api.VarGetter) ([]int, error) {
	if shape, ok := d.shapes[name]; ok {
		return shape, nil
	}
	dims, _ := d.nc.(dimensioner)
	shape, err := shapeOf(vg, dims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	d.shapes[name] = shape
	return shape, nil
}

// shapeOf takes the first dimension from Len and the others from the group's
// dimension table, reading one slab only when a length is unknown.
func shapeOf(vg api.VarGetter, dims dimensioner) ([]int, error) {
	names := vg.Dimensions()
	if len(names) == 0 {
		return []int{}, nil
	}
	n := vg.Len()
	if n == 0 {
		shape := make([]int, len(names))
		return shape, nil
	}

	if dims != nil {
		shape := []int{int(n)}
		for _, dim := range names[1:] {
			l, ok := dims.GetDimension(dim)
			if !ok || l == 0 {
				shape = nil
				break
			}
			shape = append(shape, int(l))
		}
		if shape != nil {
			return shape, nil
		}
	}

	first, err := vg.GetSlice(0, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read first slab: %w", err)
	}
	shape := nestedShape(reflect.ValueOf(first))
	shape[0] = int(n)
	return shape, nil
}

// nestedShape walks the first element of nested slices down to the leaf slice.
func nestedShape(v reflect.Value) []int {
	var shape []int
	for v.Kind() == reflect.Slice {
		shape = append(shape, v.Len())
		if v.Len() == 0 || v.Type().Elem().Kind() != reflect.Slice {
			break
		}
		v = v.Index(0)
	}
	return shape
}

// ReadFloat64s implements dataset.Dataset.
func (d *Dataset) ReadFloat64s(name string) ([]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vg, err := d.getter(name)
	if err != nil {
		return nil, err
	}
	vals, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	out, err := flatten(reflect.ValueOf(vals), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// ReadFloat64At implements dataset.Dataset.
// Only the slab along the first dimension that holds the element is read.
func (d *Dataset) ReadFloat64At(name string, index []int) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vg, err := d.getter(name)
	if err != nil {
		return 0, err
	}
	shape, err := d.shape(name, vg)
	if err != nil {
		return 0, err
	}
	if _, err := dataset.Offset(shape, index); err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}

	if len(index) == 0 {
		vals, err := vg.Values()
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", name, err)
		}
		return scalar(reflect.ValueOf(vals))
	}

	v, err := d.slab(name, vg, int64(index[0]))
	if err != nil {
		return 0, err
	}
	// The slab keeps the first dimension with length one.
	idx := append([]int{0}, index[1:]...)
	for _, i := range idx {
		if v.Kind() != reflect.Slice || i >= v.Len() {
			return 0, fmt.Errorf("%s: index %v does not match data layout", name, index)
		}
		v = v.Index(i)
	}
	return scalar(v)
}

// slab returns the first-dimension slab i of a variable, reusing the last one
// read. Callers hold d.mu.
func (d *Dataset) slab(name string, vg api.VarGetter, i int64) (reflect.Value, error) {
	if s, ok := d.slabs[name]; ok && s.index == i {
		return s.data, nil
	}
	data, err := vg.GetSlice(i, i+1)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	v := reflect.ValueOf(data)
	d.slabs[name] = cachedSlab{index: i, data: v}
	return v, nil
}

func flatten(v reflect.Value, out []float64) ([]float64, error) {
	if v.Kind() != reflect.Slice {
		f, err := scalar(v)
		if err != nil {
			return nil, err
		}
		return append(out, f), nil
	}
	if v.Type().Elem().Kind() != reflect.Slice {
		vals, err := dataset.Widen(v.Interface())
		if err != nil {
			return nil, err
		}
		return append(out, vals...), nil
	}
	for i := 0; i < v.Len(); i++ {
		var err error
		if out, err = flatten(v.Index(i), out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scalar(v reflect.Value) (float64, error) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	case reflect.Slice:
		if v.Len() == 1 {
			return scalar(v.Index(0))
		}
	}
	return 0, fmt.Errorf("unsupported type: %s", v.Type())
}

// Close implements dataset.Dataset.
func (d *Dataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nc.Close()
	clear(d.slabs)
	return nil
}
