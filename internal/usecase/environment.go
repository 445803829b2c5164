package usecase

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"go.ngs.io/envreader/internal/domain"
	"go.ngs.io/envreader/internal/reader"
	"go.ngs.io/envreader/internal/registry"
)

// GeographicProjection is the projection of request coordinates.
const GeographicProjection = "+proj=longlat +datum=WGS84"

// MaxPoints bounds the number of positions in one request.
const MaxPoints = 10000

// EnvironmentRequest asks for variables at geographic positions.
type EnvironmentRequest struct {
	Variables []string
	Lon       []float64
	Lat       []float64

	// Optional. A zero Time selects each reader's first time step.
	Time  time.Time
	Depth []float64
}

// EnvironmentResponse contains sampled values per variable.
type EnvironmentResponse struct {
	Time      string           `json:"time,omitempty"`
	Points    []Point          `json:"points"`
	Variables []VariableValues `json:"variables"`
}

// Point is a requested position.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// VariableValues holds one value per requested point. Missing data is null.
type VariableValues struct {
	Name        string     `json:"name"`
	Reader      string     `json:"reader"`
	NearestTime string     `json:"nearest_time,omitempty"`
	Values      []*float64 `json:"values"`
}

// ResolveResponse reports which reader serves which variable.
type ResolveResponse struct {
	Variables []string          `json:"variables"`
	Sources   map[string]string `json:"sources"`
}

// ReaderInfo describes an attached reader.
type ReaderInfo struct {
	Name       string      `json:"name"`
	Projection string      `json:"projection"`
	Variables  []string    `json:"variables"`
	Bounds     *BoundsInfo `json:"bounds,omitempty"`
	Time       *TimeInfo   `json:"time,omitempty"`
}

// BoundsInfo is the native grid extent of a reader.
type BoundsInfo struct {
	XMin   float64 `json:"x_min"`
	XMax   float64 `json:"x_max"`
	DeltaX float64 `json:"dx"`
	YMin   float64 `json:"y_min"`
	YMax   float64 `json:"y_max"`
	DeltaY float64 `json:"dy"`
}

// TimeInfo is the time coverage of a reader.
type TimeInfo struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Step  string `json:"step"`
	Count int    `json:"count"`
}

// gridded is implemented by readers that expose their grid.
type gridded interface {
	Bounds() reader.Bounds
	TimeAxis() domain.TimeAxis
}

type timeIndexer interface {
	TimeIndex(t time.Time) (int, time.Time)
}

// EnvironmentUseCase answers environment queries through a registry.
type EnvironmentUseCase struct {
	registry *registry.Registry
	log      logrus.FieldLogger
}

// NewEnvironmentUseCase creates a new environment use case.
func NewEnvironmentUseCase(reg *registry.Registry, log logrus.FieldLogger) *EnvironmentUseCase {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EnvironmentUseCase{registry: reg, log: log}
}

// Validate checks if the request is valid.
func (r *EnvironmentRequest) Validate() error {
	if len(r.Variables) == 0 {
		return fmt.Errorf("%w: at least one variable must be requested", domain.ErrInvalidArgument)
	}
	if len(r.Lon) == 0 || len(r.Lat) == 0 {
		return fmt.Errorf("%w: lon and lat must be provided", domain.ErrInvalidArgument)
	}
	if len(r.Lon) != len(r.Lat) {
		return fmt.Errorf("%w: got %d longitudes and %d latitudes", domain.ErrInvalidArgument, len(r.Lon), len(r.Lat))
	}
	if len(r.Lon) > MaxPoints {
		return fmt.Errorf("%w: too many points (%d), at most %d", domain.ErrInvalidArgument, len(r.Lon), MaxPoints)
	}
	for i := range r.Lon {
		if math.IsNaN(r.Lon[i]) || math.IsNaN(r.Lat[i]) {
			return fmt.Errorf("%w: coordinates must be numbers", domain.ErrInvalidArgument)
		}
		if r.Lat[i] < -90 || r.Lat[i] > 90 {
			return fmt.Errorf("%w: latitude must be between -90 and 90", domain.ErrInvalidArgument)
		}
		if r.Lon[i] < -180 || r.Lon[i] > 180 {
			return fmt.Errorf("%w: longitude must be between -180 and 180", domain.ErrInvalidArgument)
		}
	}
	return nil
}

// Execute samples every requested variable from the first reader serving it.
func (uc *EnvironmentUseCase) Execute(req EnvironmentRequest) (*EnvironmentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	res, err := uc.registry.ResolveEnvironment(req.Variables, GeographicProjection, req.Lon, req.Lat, req.Depth, req.Time)
	if err != nil {
		return nil, err
	}

	resp := &EnvironmentResponse{
		Points: make([]Point, len(req.Lon)),
	}
	if !req.Time.IsZero() {
		resp.Time = req.Time.UTC().Format(time.RFC3339)
	}
	for i := range req.Lon {
		resp.Points[i] = Point{Lon: req.Lon[i], Lat: req.Lat[i]}
	}

	seen := make(map[string]bool, len(res.Variables))
	for _, name := range res.Variables {
		if seen[name] {
			continue
		}
		seen[name] = true

		a, ok := uc.registry.ReaderFor(name)
		if !ok {
			return nil, &domain.MissingVariablesError{Names: []string{name}}
		}
		vv, err := uc.sample(a, name, req)
		if err != nil {
			return nil, err
		}
		resp.Variables = append(resp.Variables, vv)
	}
	return resp, nil
}

func (uc *EnvironmentUseCase) sample(a registry.Attached, name string, req EnvironmentRequest) (VariableValues, error) {
	x, y, err := a.Reader.LonLat2XY(req.Lon, req.Lat)
	if err != nil {
		return VariableValues{}, fmt.Errorf("reader %s: %w", a.Name, err)
	}
	// One variable per call: readers sample only the first requested name.
	vals, err := a.Reader.Sample([]string{name}, req.Time, x, y, req.Depth)
	if err != nil {
		return VariableValues{}, fmt.Errorf("reader %s: %w", a.Name, err)
	}

	vv := VariableValues{
		Name:   name,
		Reader: a.Name,
		Values: make([]*float64, len(vals)),
	}
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		vv.Values[i] = &vals[i]
	}
	if ti, ok := a.Reader.(timeIndexer); ok && !domain.IsStatic(name) {
		t := req.Time
		if t.IsZero() {
			if g, ok := a.Reader.(gridded); ok {
				t = g.TimeAxis().Start
			}
		}
		_, nearest := ti.TimeIndex(t)
		if !nearest.IsZero() {
			vv.NearestTime = nearest.UTC().Format(time.RFC3339)
		}
	}

	uc.log.WithFields(logrus.Fields{
		"variable": name,
		"reader":   a.Name,
		"points":   len(vals),
	}).Debug("Sampled variable")
	return vv, nil
}

// Resolve reports which reader would serve each variable.
func (uc *EnvironmentUseCase) Resolve(variables []string) (*ResolveResponse, error) {
	if len(variables) == 0 {
		return nil, fmt.Errorf("invalid request: %w: at least one variable must be requested", domain.ErrInvalidArgument)
	}
	res, err := uc.registry.ResolveEnvironment(variables, GeographicProjection, nil, nil, nil, time.Time{})
	if err != nil {
		return nil, err
	}
	return &ResolveResponse{Variables: res.Variables, Sources: res.Sources}, nil
}

// ListVariables returns every attached reader's variables in attach order,
// duplicates included.
func (uc *EnvironmentUseCase) ListVariables() []string {
	return slices.Collect(uc.registry.Variables())
}

// ListReaders describes the attached readers in attach order.
func (uc *EnvironmentUseCase) ListReaders() []ReaderInfo {
	attached := uc.registry.Readers()
	out := make([]ReaderInfo, len(attached))
	for i, a := range attached {
		info := ReaderInfo{
			Name:       a.Name,
			Projection: a.Reader.Projection(),
			Variables:  a.Reader.Variables(),
		}
		if g, ok := a.Reader.(gridded); ok {
			b := g.Bounds()
			info.Bounds = &BoundsInfo{
				XMin: b.XMin, XMax: b.XMax, DeltaX: b.DeltaX,
				YMin: b.YMin, YMax: b.YMax, DeltaY: b.DeltaY,
			}
			ta := g.TimeAxis()
			info.Time = &TimeInfo{
				Start: ta.Start.UTC().Format(time.RFC3339),
				End:   ta.End.UTC().Format(time.RFC3339),
				Step:  ta.Step.String(),
				Count: len(ta.Times),
			}
		}
		out[i] = info
	}
	return out
}
