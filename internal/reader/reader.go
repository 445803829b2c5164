// Package reader implements the common contract of gridded environment readers:
// metadata discovery, coordinate transformation, domain checks and
// nearest-neighbour sampling.
package reader

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"go.ngs.io/envreader/internal/adapter/projection"
	"go.ngs.io/envreader/internal/domain"
)

// Request is one resolved sample request handed to a Sampler.
type Request struct {
	Variable  string // Canonical name.
	Native    string // Dataset variable name.
	TimeIndex int
	YIndex    []int
	XIndex    []int
}

// Sampler reads values out of the underlying dataset at resolved indices.
// It returns one value per (YIndex[i], XIndex[i]) pair.
type Sampler interface {
	Sample(req Request) ([]float64, error)
}

// Bounds is the native extent of a grid.
type Bounds struct {
	XMin, XMax, DeltaX float64
	YMin, YMax, DeltaY float64
}

// Reader answers sample queries for one dataset.
// A Reader is immutable once constructed.
type Reader struct {
	name      string
	meta      GridMetadata
	projector *projection.Projector
	sampler   Sampler
	log       logrus.FieldLogger
}

// Option configures a Reader.
type Option func(*Reader)

// WithName sets the reader name. The default is "reader".
func WithName(name string) Option {
	return func(r *Reader) {
		if name != "" {
			r.name = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Reader) {
		if log != nil {
			r.log = log
		}
	}
}

// New builds a Reader from discovered metadata and a sampler. The projection is
// validated here so that a bad projection never reaches a query.
func New(meta GridMetadata, sampler Sampler, opts ...Option) (*Reader, error) {
	if sampler == nil {
		return nil, fmt.Errorf("%w: nil sampler", domain.ErrConstruction)
	}
	if meta.Projection == "" {
		return nil, &domain.MetadataError{What: "proj4 string"}
	}
	if len(meta.Time.Times) == 0 {
		return nil, &domain.MetadataError{What: "time values"}
	}
	p, err := projection.New(meta.Projection)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConstruction, err)
	}

	r := &Reader{
		name:      "reader",
		meta:      meta,
		projector: p,
		sampler:   sampler,
		log:       logrus.StandardLogger(),
	}
	r.meta.Variables = maps.Clone(meta.Variables)
	if r.meta.Variables == nil {
		r.meta.Variables = map[string]string{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Name returns the reader name.
func (r *Reader) Name() string {
	return r.name
}

// Projection returns the PROJ.4 string of the native grid.
func (r *Reader) Projection() string {
	return r.meta.Projection
}

// Variables returns the canonical variable names the reader can supply, sorted.
func (r *Reader) Variables() []string {
	return slices.Sorted(maps.Keys(r.meta.Variables))
}

// HasVariable reports whether the reader maps the canonical name.
func (r *Reader) HasVariable(name string) bool {
	_, ok := r.meta.Variables[name]
	return ok
}

// Bounds returns the native grid extent.
func (r *Reader) Bounds() Bounds {
	return Bounds{
		XMin: r.meta.X.Min, XMax: r.meta.X.Max, DeltaX: r.meta.X.Step,
		YMin: r.meta.Y.Min, YMax: r.meta.Y.Max, DeltaY: r.meta.Y.Step,
	}
}

// TimeAxis returns the time coverage.
func (r *Reader) TimeAxis() domain.TimeAxis {
	return r.meta.Time
}

// Metadata returns a copy of the discovered metadata.
func (r *Reader) Metadata() GridMetadata {
	m := r.meta
	m.Variables = maps.Clone(r.meta.Variables)
	m.X.Values = slices.Clone(r.meta.X.Values)
	m.Y.Values = slices.Clone(r.meta.Y.Values)
	m.Time.Times = slices.Clone(r.meta.Time.Times)
	return m
}

// TimeIndex returns the nearest time index to t and its timestamp.
func (r *Reader) TimeIndex(t time.Time) (int, time.Time) {
	return r.meta.Time.Index(t)
}

// Sample returns one value per (x[i], y[i]) for the first of variables at time t.
// A zero t selects the first time step. depth is accepted and ignored: samples
// come from a single fixed level.
func (r *Reader) Sample(variables []string, t time.Time, x, y, depth []float64) ([]float64, error) {
	if len(variables) == 0 {
		return nil, fmt.Errorf("%w: no variables requested", domain.ErrInvalidArgument)
	}
	for _, v := range variables {
		if !r.HasVariable(v) {
			return nil, &domain.VariableNotAvailableError{Name: v}
		}
	}

	if t.IsZero() {
		t = r.meta.Time.Start
	}
	if !r.meta.Time.Contains(t) {
		return nil, fmt.Errorf("%w: %s not in [%s, %s]", domain.ErrTimeOutOfRange,
			t.UTC().Format(time.RFC3339), r.meta.Time.Start.Format(time.RFC3339), r.meta.Time.End.Format(time.RFC3339))
	}

	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d x coordinates but %d y coordinates", domain.ErrInvalidArgument, len(x), len(y))
	}
	if err := r.checkSpace(x, y); err != nil {
		return nil, err
	}

	it, nearest := r.meta.Time.Index(t)
	req := Request{
		Variable:  variables[0],
		Native:    r.meta.Variables[variables[0]],
		TimeIndex: it,
		XIndex:    make([]int, len(x)),
		YIndex:    make([]int, len(y)),
	}
	for i := range x {
		req.XIndex[i] = r.meta.X.Index(x[i])
		req.YIndex[i] = r.meta.Y.Index(y[i])
	}

	r.log.WithFields(logrus.Fields{
		"reader":   r.name,
		"variable": req.Variable,
		"time":     nearest,
		"points":   len(x),
	}).Debug("Sampling")

	values, err := r.sampler.Sample(req)
	if err != nil {
		return nil, fmt.Errorf("failed to sample %s: %w", req.Variable, err)
	}
	return values, nil
}

func (r *Reader) checkSpace(x, y []float64) error {
	for i := range x {
		if !r.meta.X.Contains(x[i]) {
			return fmt.Errorf("%w: x=%g not in [%g, %g]", domain.ErrSpaceOutOfRange, x[i], r.meta.X.Min, r.meta.X.Max)
		}
		if !r.meta.Y.Contains(y[i]) {
			return fmt.Errorf("%w: y=%g not in [%g, %g]", domain.ErrSpaceOutOfRange, y[i], r.meta.Y.Min, r.meta.Y.Max)
		}
	}
	return nil
}

// XY2LonLat converts native coordinates to longitude/latitude.
func (r *Reader) XY2LonLat(x, y []float64) (lon, lat []float64, err error) {
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("%w: %d x coordinates but %d y coordinates", domain.ErrInvalidArgument, len(x), len(y))
	}
	lon = make([]float64, len(x))
	lat = make([]float64, len(x))
	for i := range x {
		if lon[i], lat[i], err = r.projector.Inverse(x[i], y[i]); err != nil {
			return nil, nil, err
		}
	}
	return lon, lat, nil
}

// LonLat2XY converts longitude/latitude to native coordinates.
func (r *Reader) LonLat2XY(lon, lat []float64) (x, y []float64, err error) {
	if len(lon) != len(lat) {
		return nil, nil, fmt.Errorf("%w: %d longitudes but %d latitudes", domain.ErrInvalidArgument, len(lon), len(lat))
	}
	x = make([]float64, len(lon))
	y = make([]float64, len(lon))
	for i := range lon {
		if x[i], y[i], err = r.projector.Forward(lon[i], lat[i]); err != nil {
			return nil, nil, err
		}
	}
	return x, y, nil
}

// String summarizes the reader for logs.
func (r *Reader) String() string {
	var b strings.Builder
	b.WriteString("===========================\n")
	fmt.Fprintf(&b, "Reader: %s\n", r.name)
	fmt.Fprintf(&b, "Projection: \n  %s\n", r.meta.Projection)
	fmt.Fprintf(&b, "  xmin: %f   xmax: %f   step: %f\n", r.meta.X.Min, r.meta.X.Max, r.meta.X.Step)
	fmt.Fprintf(&b, "  ymin: %f   ymax: %f   step: %f\n", r.meta.Y.Min, r.meta.Y.Max, r.meta.Y.Step)

	// Upper left, upper right, lower left, lower right.
	lon, lat, err := r.XY2LonLat(
		[]float64{r.meta.X.Min, r.meta.X.Max, r.meta.X.Min, r.meta.X.Max},
		[]float64{r.meta.Y.Max, r.meta.Y.Max, r.meta.Y.Min, r.meta.Y.Min},
	)
	b.WriteString("  Corners (lon, lat):\n")
	if err != nil {
		fmt.Fprintf(&b, "    unavailable: %v\n", err)
	} else {
		fmt.Fprintf(&b, "    (%6.2f, %6.2f)  (%6.2f, %6.2f)\n", lon[0], lat[0], lon[1], lat[1])
		fmt.Fprintf(&b, "    (%6.2f, %6.2f)  (%6.2f, %6.2f)\n", lon[2], lat[2], lon[3], lat[3])
	}

	b.WriteString("Available time range:\n")
	fmt.Fprintf(&b, "  start: %s   end: %s   step: %s\n",
		r.meta.Time.Start.Format(time.RFC3339), r.meta.Time.End.Format(time.RFC3339), r.meta.Time.Step)
	b.WriteString("Variables:\n")
	for _, v := range r.Variables() {
		fmt.Fprintf(&b, "  %s\n", v)
	}
	b.WriteString("===========================\n")
	return b.String()
}

// Close releases the sampler's dataset handle if it holds one.
func (r *Reader) Close() error {
	if c, ok := r.sampler.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
