// Package netcdf implements dataset.Dataset on top of the netCDF-C library.
package netcdf

import (
	"fmt"
	"sync"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/sirupsen/logrus"

	"go.ngs.io/envreader/internal/adapter/dataset"
)

// Dataset is a NetCDF file opened read-only.
type Dataset struct {
	path string
	nc   netcdf.Dataset
	mu   sync.Mutex // netCDF-C is not safe for concurrent use.
	log  logrus.FieldLogger

	readAttr func(netcdf.Attr) (any, error)
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithLogger sets the logger used to report skipped attributes.
func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Dataset) {
		if log != nil {
			d.log = log
		}
	}
}

// Open opens a NetCDF file read-only.
func Open(path string, opts ...Option) (*Dataset, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	d := &Dataset{
		path:     path,
		nc:       nc,
		log:      logrus.StandardLogger(),
		readAttr: readAttr,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Path returns the file path the dataset was opened from.
func (d *Dataset) Path() string {
	return d.path
}

// Variables implements dataset.Dataset.
func (d *Dataset) Variables() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.nc.NVars()
	if err != nil {
		return nil, fmt.Errorf("failed to count variables: %w", err)
	}
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name, err := d.nc.VarN(i).Name()
		if err != nil {
			return nil, fmt.Errorf("failed to get name of variable %d: %w", i, err)
		}
		names = append(names, name)
	}
	return names, nil
}

// Attributes implements dataset.Dataset. Attributes of a type that cannot be
// read, such as NC_STRING, are logged and left out.
func (d *Dataset) Attributes(name string) (dataset.Attributes, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.variable(name)
	if err != nil {
		return nil, err
	}
	n, err := v.NAttrs()
	if err != nil {
		return nil, fmt.Errorf("failed to count attributes of %s: %w", name, err)
	}

	attrs := dataset.NewMapAttributes()
	for i := 0; i < n; i++ {
		a, err := v.AttrN(i)
		if err != nil {
			return nil, fmt.Errorf("failed to get attribute %d of %s: %w", i, name, err)
		}
		val, err := d.readAttr(a)
		if err != nil {
			d.log.WithFields(logrus.Fields{
				"variable":  name,
				"attribute": a.Name(),
				"error":     err,
			}).Warn("Skipping unreadable attribute")
			continue
		}
		attrs.Set(a.Name(), val)
	}
	return attrs, nil
}

// Shape implements dataset.Dataset.
func (d *Dataset) Shape(name string) ([]int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.variable(name)
	if err != nil {
		return nil, err
	}
	return shapeOf(v)
}

// ReadFloat64s implements dataset.Dataset.
func (d *Dataset) ReadFloat64s(name string) ([]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.variable(name)
	if err != nil {
		return nil, err
	}
	length, err := v.Len()
	if err != nil {
		return nil, fmt.Errorf("failed to get length of %s: %w", name, err)
	}
	return readAll(v, int(length))
}

// ReadFloat64At implements dataset.Dataset.
func (d *Dataset) ReadFloat64At(name string, index []int) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.variable(name)
	if err != nil {
		return 0, err
	}
	shape, err := shapeOf(v)
	if err != nil {
		return 0, err
	}
	if _, err := dataset.Offset(shape, index); err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}

	start := make([]uint64, len(index))
	count := make([]uint64, len(index))
	for i, idx := range index {
		//nolint:gosec // G115: indices validated against the variable shape above.
		start[i] = uint64(idx)
		count[i] = 1
	}
	return readOne(v, start, count)
}

// Close implements dataset.Dataset.
func (d *Dataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nc.Close()
}

func (d *Dataset) variable(name string) (netcdf.Var, error) {
	v, err := d.nc.Var(name)
	if err != nil {
		return netcdf.Var{}, fmt.Errorf("%w: %s: %v", dataset.ErrNotFound, name, err)
	}
	return v, nil
}

func shapeOf(v netcdf.Var) ([]int, error) {
	lens, err := v.LenDims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	shape := make([]int, len(lens))
	for i, l := range lens {
		shape[i] = int(l)
	}
	return shape, nil
}

// readAttr reads an attribute as string or []float64.
func readAttr(a netcdf.Attr) (any, error) {
	n, err := a.Len()
	if err != nil {
		return nil, err
	}
	t, err := a.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get attribute type: %w", err)
	}

	switch t {
	case netcdf.CHAR:
		buf := make([]byte, n)
		if err := a.ReadBytes(buf); err != nil {
			return nil, err
		}
		return dataset.Normalize(buf), nil
	case netcdf.DOUBLE:
		buf := make([]float64, n)
		if err := a.ReadFloat64s(buf); err != nil {
			return nil, err
		}
		return buf, nil
	case netcdf.FLOAT:
		buf := make([]float32, n)
		if err := a.ReadFloat32s(buf); err != nil {
			return nil, err
		}
		return dataset.Normalize(buf), nil
	case netcdf.INT:
		buf := make([]int32, n)
		if err := a.ReadInt32s(buf); err != nil {
			return nil, err
		}
		return dataset.Normalize(buf), nil
	case netcdf.SHORT:
		buf := make([]int16, n)
		if err := a.ReadInt16s(buf); err != nil {
			return nil, err
		}
		return dataset.Normalize(buf), nil
	case netcdf.BYTE:
		buf := make([]int8, n)
		if err := a.ReadInt8s(buf); err != nil {
			return nil, err
		}
		return dataset.Normalize(buf), nil
	case netcdf.UBYTE:
		buf := make([]uint8, n)
		if err := a.ReadUint8s(buf); err != nil {
			return nil, err
		}
		return dataset.Widen(buf)
	case netcdf.USHORT:
		buf := make([]uint16, n)
		if err := a.ReadUint16s(buf); err != nil {
			return nil, err
		}
		return dataset.Widen(buf)
	case netcdf.UINT:
		buf := make([]uint32, n)
		if err := a.ReadUint32s(buf); err != nil {
			return nil, err
		}
		return dataset.Widen(buf)
	case netcdf.INT64:
		buf := make([]int64, n)
		if err := a.ReadInt64s(buf); err != nil {
			return nil, err
		}
		return dataset.Widen(buf)
	case netcdf.UINT64:
		buf := make([]uint64, n)
		if err := a.ReadUint64s(buf); err != nil {
			return nil, err
		}
		return dataset.Widen(buf)
	default:
		return nil, fmt.Errorf("unsupported attribute type: %v", t)
	}
}

// readAll reads a whole variable as float64.
func readAll(v netcdf.Var, length int) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}

	switch t {
	case netcdf.DOUBLE:
		data := make([]float64, length)
		if err := v.ReadFloat64s(data); err != nil {
			return nil, err
		}
		return data, nil
	case netcdf.FLOAT:
		tmp := make([]float32, length)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, err
		}
		return dataset.Widen(tmp)
	case netcdf.INT:
		tmp := make([]int32, length)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, err
		}
		return dataset.Widen(tmp)
	case netcdf.SHORT:
		tmp := make([]int16, length)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, err
		}
		return dataset.Widen(tmp)
	case netcdf.BYTE:
		tmp := make([]int8, length)
		if err := v.ReadInt8s(tmp); err != nil {
			return nil, err
		}
		return dataset.Widen(tmp)
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
}

// readOne reads a single element through a one-element hyperslab.
func readOne(v netcdf.Var, start, count []uint64) (float64, error) {
	t, err := v.Type()
	if err != nil {
		return 0, fmt.Errorf("failed to get var type: %w", err)
	}

	switch t {
	case netcdf.DOUBLE:
		buf := make([]float64, 1)
		if err := v.ReadFloat64Slice(buf, start, count); err != nil {
			return 0, err
		}
		return buf[0], nil
	case netcdf.FLOAT:
		buf := make([]float32, 1)
		if err := v.ReadFloat32Slice(buf, start, count); err != nil {
			return 0, err
		}
		return float64(buf[0]), nil
	case netcdf.INT:
		buf := make([]int32, 1)
		if err := v.ReadInt32Slice(buf, start, count); err != nil {
			return 0, err
		}
		return float64(buf[0]), nil
	case netcdf.SHORT:
		buf := make([]int16, 1)
		if err := v.ReadInt16Slice(buf, start, count); err != nil {
			return 0, err
		}
		return float64(buf[0]), nil
	case netcdf.BYTE:
		buf := make([]int8, 1)
		if err := v.ReadInt8Slice(buf, start, count); err != nil {
			return 0, err
		}
		return float64(buf[0]), nil
	default:
		return 0, fmt.Errorf("unsupported var type: %v", t)
	}
}
