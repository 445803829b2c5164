// Package cfgeneric reads CF-convention gridded files whose grid mapping
// variable carries a proj4 string.
package cfgeneric

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"go.ngs.io/envreader/internal/adapter/axis"
	"go.ngs.io/envreader/internal/adapter/dataset"
	"go.ngs.io/envreader/internal/adapter/dataset/cdf"
	"go.ngs.io/envreader/internal/adapter/dataset/native"
	"go.ngs.io/envreader/internal/adapter/dataset/netcdf"
	"go.ngs.io/envreader/internal/domain"
	"go.ngs.io/envreader/internal/reader"
)

// DefaultLevelIndex is the vertical level sampled from 4-D variables.
const DefaultLevelIndex = 1

// Backend selects the library used to open files.
type Backend string

// Supported backends.
const (
	BackendNetCDF Backend = "netcdf" // netCDF-C through cgo.
	BackendCDF    Backend = "cdf"    // Pure Go, NetCDF-3 only.
	BackendNative Backend = "native" // Pure Go, NetCDF-3 and NetCDF-4.
)

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendNetCDF, BackendCDF, BackendNative:
		return b, nil
	case "":
		return BackendNetCDF, nil
	default:
		return "", fmt.Errorf("unknown dataset backend %q", s)
	}
}

type options struct {
	level   int
	backend Backend
	name    string
	log     logrus.FieldLogger
}

// Option configures the adapter.
type Option func(*options)

// WithLevelIndex sets the vertical level sampled from 4-D variables.
func WithLevelIndex(level int) Option {
	return func(o *options) { o.level = level }
}

// WithBackend sets the library used by Open.
func WithBackend(b Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithName sets the reader name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger used for discovery and sampling.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

func buildOptions(opts []Option) options {
	o := options{
		level:   DefaultLevelIndex,
		backend: BackendNetCDF,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open opens a file and builds a reader over it. The reader owns the file
// handle and closes it on Close. The reader is named after the file unless
// WithName is given.
func Open(path string, opts ...Option) (*reader.Reader, error) {
	o := buildOptions(opts)

	ds, err := openDataset(o.backend, path, o.log)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open %s: %v", domain.ErrConstruction, path, err)
	}

	r, err := build(ds, o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func openDataset(b Backend, path string, log logrus.FieldLogger) (dataset.Dataset, error) {
	switch b {
	case BackendNetCDF:
		return netcdf.Open(path, netcdf.WithLogger(log))
	case BackendCDF:
		return cdf.Open(path)
	case BackendNative:
		return native.Open(path)
	default:
		return nil, fmt.Errorf("unknown dataset backend %q", b)
	}
}

// New builds a reader over an already opened dataset. The reader takes
// ownership of ds, which is closed if construction fails.
func New(ds dataset.Dataset, opts ...Option) (*reader.Reader, error) {
	return build(ds, buildOptions(opts))
}

// pather is implemented by file-backed datasets.
type pather interface {
	Path() string
}

func build(ds dataset.Dataset, o options) (*reader.Reader, error) {
	if o.name == "" {
		o.name = "cfgeneric"
		if p, ok := ds.(pather); ok {
			o.name = filepath.Base(p.Path())
		}
	}
	r, err := assemble(ds, o)
	if err != nil {
		_ = ds.Close()
		return nil, err
	}
	return r, nil
}

func assemble(ds dataset.Dataset, o options) (*reader.Reader, error) {
	if o.level < 0 {
		return nil, fmt.Errorf("%w: negative level index %d", domain.ErrConstruction, o.level)
	}

	meta, err := reader.Discover(ds, o.log)
	if err != nil {
		return nil, err
	}

	s := &Sampler{
		ds:       ds,
		level:    o.level,
		variable: make(map[string]layout, len(meta.Variables)),
	}
	for std, name := range meta.Variables {
		l, err := describe(ds, name)
		if err == nil {
			err = l.fits(meta.X, meta.Y)
		}
		if err != nil {
			o.log.WithFields(logrus.Fields{
				"variable":      name,
				"standard_name": std,
				"error":         err,
			}).Warn("Dropping variable with unreadable layout")
			delete(meta.Variables, std)
			continue
		}
		s.variable[name] = l
	}

	return reader.New(meta, s, reader.WithName(o.name), reader.WithLogger(o.log))
}

// layout is the shape and CF packing of one dataset variable.
type layout struct {
	shape  []int
	scale  float64
	offset float64
	fill   []float64
}

func describe(ds dataset.Dataset, name string) (layout, error) {
	shape, err := ds.Shape(name)
	if err != nil {
		return layout{}, err
	}
	attrs, err := ds.Attributes(name)
	if err != nil {
		return layout{}, err
	}

	l := layout{shape: shape, scale: 1}
	if v, ok := dataset.Float64(attrs, "scale_factor"); ok {
		l.scale = v
	}
	if v, ok := dataset.Float64(attrs, "add_offset"); ok {
		l.offset = v
	}
	for _, key := range []string{"_FillValue", "missing_value"} {
		if v, ok := attrs.Get(key); ok {
			if f, ok := v.([]float64); ok {
				l.fill = append(l.fill, f...)
			}
		}
	}
	return l, nil
}

// fits checks that the trailing (y, x) dimensions match the grid axes.
func (l layout) fits(x, y axis.Axis) error {
	n := len(l.shape)
	if n < 2 {
		return fmt.Errorf("variable has %d dimensions, want at least 2", n)
	}
	if l.shape[n-2] != y.Len() || l.shape[n-1] != x.Len() {
		return fmt.Errorf("grid %d × %d does not match axes %d × %d", l.shape[n-2], l.shape[n-1], y.Len(), x.Len())
	}
	return nil
}

// unpack converts a stored value into a physical value. Fill values become NaN.
func (l layout) unpack(raw float64) float64 {
	for _, f := range l.fill {
		if raw == f {
			return math.NaN()
		}
	}
	return raw*l.scale + l.offset
}

// Sampler indexes a CF dataset. Static variables are read at [y, x], 4-D
// variables at [time, level, y, x] and 3-D variables at [time, y, x].
type Sampler struct {
	ds       dataset.Dataset
	level    int
	variable map[string]layout
}

// Sample implements reader.Sampler.
func (s *Sampler) Sample(req reader.Request) ([]float64, error) {
	l, ok := s.variable[req.Native]
	if !ok {
		return nil, &domain.VariableNotAvailableError{Name: req.Variable}
	}

	index, err := s.indexer(req, l.shape)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(req.XIndex))
	for i := range req.XIndex {
		raw, err := s.ds.ReadFloat64At(req.Native, index(req.YIndex[i], req.XIndex[i]))
		if err != nil {
			return nil, err
		}
		out[i] = l.unpack(raw)
	}
	return out, nil
}

func (s *Sampler) indexer(req reader.Request, shape []int) (func(iy, ix int) []int, error) {
	switch {
	case domain.IsStatic(req.Variable) || len(shape) == 2:
		if len(shape) != 2 {
			return nil, fmt.Errorf("static variable %s has %d dimensions, want 2", req.Native, len(shape))
		}
		return func(iy, ix int) []int { return []int{iy, ix} }, nil
	case len(shape) == 4:
		if s.level >= shape[1] {
			return nil, fmt.Errorf("level index %d out of range for %s with %d levels", s.level, req.Native, shape[1])
		}
		return func(iy, ix int) []int { return []int{req.TimeIndex, s.level, iy, ix} }, nil
	case len(shape) == 3:
		return func(iy, ix int) []int { return []int{req.TimeIndex, iy, ix} }, nil
	default:
		return nil, fmt.Errorf("unsupported variable rank %d for %s", len(shape), req.Native)
	}
}

// Close closes the dataset.
func (s *Sampler) Close() error {
	return s.ds.Close()
}
