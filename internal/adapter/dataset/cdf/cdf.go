// Package cdf implements dataset.Dataset for NetCDF-3 classic files in pure Go,
// without the netCDF-C library.
package cdf

import (
	"fmt"
	"os"
	"sync"

	"github.com/ctessum/cdf"

	"go.ngs.io/envreader/internal/adapter/dataset"
)

// Dataset is a NetCDF-3 file opened read-only.
type Dataset struct {
	path string
	file *os.File
	cf   *cdf.File
	size int64
	mu   sync.Mutex
}

// Open opens a NetCDF-3 classic or 64-bit offset file.
func Open(path string) (*Dataset, error) {
	//nolint:gosec // G304: Path is provided by the operator.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat NetCDF file: %w", err)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to read NetCDF header: %w", err)
	}
	return &Dataset{path: path, file: f, cf: cf, size: info.Size()}, nil
}

// Path returns the file path the dataset was opened from.
func (d *Dataset) Path() string {
	return d.path
}

// Variables implements dataset.Dataset.
func (d *Dataset) Variables() ([]string, error) {
	return d.cf.Header.Variables(), nil
}

// Attributes implements dataset.Dataset.
func (d *Dataset) Attributes(name string) (dataset.Attributes, error) {
	if _, err := d.Shape(name); err != nil {
		return nil, err
	}
	attrs := dataset.NewMapAttributes()
	for _, key := range d.cf.Header.Attributes(name) {
		attrs.Set(key, d.cf.Header.GetAttribute(name, key))
	}
	return attrs, nil
}

// Shape implements dataset.Dataset.
// The record dimension is reported with the number of records in the file.
func (d *Dataset) Shape(name string) ([]int, error) {
	lengths := d.cf.Header.Lengths(name)
	if lengths == nil {
		if !d.exists(name) {
			return nil, fmt.Errorf("%w: %s", dataset.ErrNotFound, name)
		}
		return []int{}, nil
	}
	shape := append([]int(nil), lengths...)
	if d.cf.Header.IsRecordVariable(name) {
		shape[0] = int(d.cf.Header.NumRecs(d.size))
	}
	return shape, nil
}

func (d *Dataset) exists(name string) bool {
	for _, v := range d.cf.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

// ReadFloat64s implements dataset.Dataset.
func (d *Dataset) ReadFloat64s(name string) ([]float64, error) {
	shape, err := d.Shape(name)
	if err != nil {
		return nil, err
	}
	n := dataset.Size(shape)
	if n == 0 {
		return []float64{}, nil
	}
	end := make([]int, len(shape))
	for i, l := range shape {
		end[i] = l - 1
	}
	if len(shape) == 0 {
		end = nil
	}
	return d.read(name, nil, end, n)
}

// ReadFloat64At implements dataset.Dataset.
func (d *Dataset) ReadFloat64At(name string, index []int) (float64, error) {
	shape, err := d.Shape(name)
	if err != nil {
		return 0, err
	}
	if _, err := dataset.Offset(shape, index); err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if len(index) == 0 {
		index = nil
	}
	vals, err := d.read(name, index, index, 1)
	if err != nil {
		return 0, err
	}
	return vals[0], nil
}

func (d *Dataset) read(name string, begin, end []int, n int) ([]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := d.cf.Reader(name, begin, end)
	if r == nil {
		return nil, fmt.Errorf("%w: %s", dataset.ErrNotFound, name)
	}
	buf := r.Zero(n)
	if _, ok := buf.(string); ok {
		return nil, fmt.Errorf("%s: unsupported type: CHAR", name)
	}
	got, err := r.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if got < n {
		return nil, fmt.Errorf("failed to read %s: got %d of %d values", name, got, n)
	}
	return dataset.Widen(buf)
}

// Close implements dataset.Dataset.
func (d *Dataset) Close() error {
	return d.file.Close()
}
