// Package dataset defines the read-only handle over self-describing gridded
// datasets (NetCDF and friends) that readers discover and sample.
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a variable does not exist in a dataset.
var ErrNotFound = errors.New("variable not found")

// Dataset is the read-only handle a reader is built on.
type Dataset interface {
	// Variables lists variable names in file order.
	Variables() ([]string, error)

	// Attributes returns the attributes attached to a variable.
	Attributes(variable string) (Attributes, error)

	// Shape returns the dimension lengths of a variable.
	Shape(variable string) ([]int, error)

	// ReadFloat64s reads a whole variable converted to float64, in row-major order.
	ReadFloat64s(variable string) ([]float64, error)

	// ReadFloat64At reads a single element at an explicit index.
	ReadFloat64At(variable string, index []int) (float64, error)

	// Close releases the underlying handle.
	Close() error
}

// Attributes is a per-variable attribute lookup.
// Values are either string (text attributes) or []float64 (numeric attributes).
type Attributes interface {
	// Keys returns attribute names in file order.
	Keys() []string

	// Get looks up an attribute value.
	Get(key string) (any, bool)
}

// MapAttributes is an ordered in-memory Attributes implementation.
type MapAttributes struct {
	keys   []string
	values map[string]any
}

// NewMapAttributes creates an empty attribute set.
func NewMapAttributes() *MapAttributes {
	return &MapAttributes{values: make(map[string]any)}
}

// Set stores a value, normalizing numeric values to []float64.
func (m *MapAttributes) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = Normalize(value)
}

// Keys implements Attributes.
func (m *MapAttributes) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get implements Attributes.
func (m *MapAttributes) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// String returns a text attribute.
func String(attrs Attributes, key string) (string, bool) {
	v, ok := attrs.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Float64 returns the first element of a numeric attribute.
func Float64(attrs Attributes, key string) (float64, bool) {
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	f, ok := v.([]float64)
	if !ok || len(f) == 0 {
		return 0, false
	}
	return f[0], true
}

// Normalize converts attribute values read by a backend into string or []float64.
// Unknown types are returned unchanged.
func Normalize(v any) any {
	switch val := v.(type) {
	case string:
		// Text attributes are often NUL padded.
		return strings.TrimRight(val, "\x00")
	case []byte:
		return strings.TrimRight(string(val), "\x00")
	case []float64:
		return val
	case float64:
		return []float64{val}
	case []float32:
		return widen(val)
	case float32:
		return []float64{float64(val)}
	case []int64:
		return widen(val)
	case int64:
		return []float64{float64(val)}
	case []int32:
		return widen(val)
	case int32:
		return []float64{float64(val)}
	case []int16:
		return widen(val)
	case int16:
		return []float64{float64(val)}
	case []int8:
		return widen(val)
	case int8:
		return []float64{float64(val)}
	case []uint16:
		return widen(val)
	case []uint32:
		return widen(val)
	case int:
		return []float64{float64(val)}
	case []int:
		return widen(val)
	default:
		return v
	}
}

type number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func widen[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// Widen converts a numeric slice to []float64.
func Widen(v any) ([]float64, error) {
	switch val := v.(type) {
	case []float64:
		return val, nil
	case []float32:
		return widen(val), nil
	case []int64:
		return widen(val), nil
	case []int32:
		return widen(val), nil
	case []int16:
		return widen(val), nil
	case []int8:
		return widen(val), nil
	case []uint8:
		return widen(val), nil
	case []uint16:
		return widen(val), nil
	case []uint32:
		return widen(val), nil
	case []uint64:
		return widen(val), nil
	default:
		return nil, fmt.Errorf("unsupported data type: %T", v)
	}
}

// Size returns the number of elements of a shape.
func Size(shape []int) int {
	n := 1
	for _, l := range shape {
		n *= l
	}
	return n
}

// Offset returns the row-major offset of index within shape.
func Offset(shape, index []int) (int, error) {
	if len(index) != len(shape) {
		return 0, fmt.Errorf("index has %d dimensions, variable has %d", len(index), len(shape))
	}
	off := 0
	for i, idx := range index {
		if idx < 0 || idx >= shape[i] {
			return 0, fmt.Errorf("index %d out of range [0, %d) in dimension %d", idx, shape[i], i)
		}
		off = off*shape[i] + idx
	}
	return off, nil
}
