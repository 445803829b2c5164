// Package memory provides an in-memory Dataset for synthetic grids.
package memory

import (
	"fmt"

	"go.ngs.io/envreader/internal/adapter/dataset"
)

type variable struct {
	shape   []int
	data    []float64
	attrs   *dataset.MapAttributes
	attrErr error
}

// Dataset is an in-memory dataset.Dataset.
// It is built with AddVariable before use and is not safe for concurrent mutation.
type Dataset struct {
	order  []string
	vars   map[string]*variable
	closed bool
}

// New creates an empty in-memory dataset.
func New() *Dataset {
	return &Dataset{vars: make(map[string]*variable)}
}

// AddVariable adds a variable with row-major data. Attributes are added with SetAttribute.
func (d *Dataset) AddVariable(name string, shape []int, data []float64) *Dataset {
	if _, ok := d.vars[name]; !ok {
		d.order = append(d.order, name)
	}
	d.vars[name] = &variable{
		shape: append([]int(nil), shape...),
		data:  data,
		attrs: dataset.NewMapAttributes(),
	}
	return d
}

// SetAttribute attaches an attribute to an existing variable.
func (d *Dataset) SetAttribute(name, key string, value any) *Dataset {
	if v, ok := d.vars[name]; ok {
		v.attrs.Set(key, value)
	}
	return d
}

// FailAttributes makes attribute lookups for a variable return err.
func (d *Dataset) FailAttributes(name string, err error) *Dataset {
	if v, ok := d.vars[name]; ok {
		v.attrErr = err
	}
	return d
}

// Closed reports whether Close has been called.
func (d *Dataset) Closed() bool {
	return d.closed
}

func (d *Dataset) lookup(name string) (*variable, error) {
	v, ok := d.vars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dataset.ErrNotFound, name)
	}
	return v, nil
}

// Variables implements dataset.Dataset.
func (d *Dataset) Variables() ([]string, error) {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out, nil
}

// Attributes implements dataset.Dataset.
func (d *Dataset) Attributes(name string) (dataset.Attributes, error) {
	v, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	if v.attrErr != nil {
		return nil, v.attrErr
	}
	return v.attrs, nil
}

// Shape implements dataset.Dataset.
func (d *Dataset) Shape(name string) ([]int, error) {
	v, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	return append([]int(nil), v.shape...), nil
}

// ReadFloat64s implements dataset.Dataset.
func (d *Dataset) ReadFloat64s(name string) ([]float64, error) {
	v, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(v.data))
	copy(out, v.data)
	return out, nil
}

// ReadFloat64At implements dataset.Dataset.
func (d *Dataset) ReadFloat64At(name string, index []int) (float64, error) {
	v, err := d.lookup(name)
	if err != nil {
		return 0, err
	}
	off, err := dataset.Offset(v.shape, index)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if off >= len(v.data) {
		return 0, fmt.Errorf("%s: data shorter than shape %v", name, v.shape)
	}
	return v.data[off], nil
}

// Close implements dataset.Dataset.
func (d *Dataset) Close() error {
	d.closed = true
	return nil
}
