// Package projection converts between a grid's native projected coordinates and
// geographic longitude/latitude.
package projection

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ctessum/geom/proj"
)

var (
	projParam   = regexp.MustCompile(`\+proj=\S+`)
	sphereParam = regexp.MustCompile(`\+R=(\S+)`)
)

// Projector holds forward and inverse transforms for one projection.
// It is safe for concurrent use.
type Projector struct {
	forward proj.Transformer // lon/lat -> x/y
	inverse proj.Transformer // x/y -> lon/lat

	// The transforms re-derive constants on the shared *proj.SR on every call.
	mu sync.Mutex
}

// New parses a PROJ.4 or WKT string. Unsupported projections fail here rather
// than on first use. Polar stereographic grids are handled here since the
// proj package has no transformer for them.
func New(spec string) (*Projector, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty projection")
	}
	// +R=<radius> is a sphere.
	spec = sphereParam.ReplaceAllString(spec, "+a=$1 +b=$1")

	sr, err := proj.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse projection %q: %w", spec, err)
	}
	if strings.EqualFold(sr.Name, "stere") {
		forward, inverse, err := polarStereographic(sr)
		if err != nil {
			return nil, fmt.Errorf("unsupported projection %q: %w", spec, err)
		}
		return &Projector{forward: forward, inverse: inverse}, nil
	}
	if _, _, err := sr.Transformers(); err != nil {
		return nil, fmt.Errorf("unsupported projection %q: %w", spec, err)
	}

	geo, err := proj.Parse(geographic(spec, sr))
	if err != nil {
		return nil, fmt.Errorf("failed to derive geographic reference: %w", err)
	}

	inverse, err := sr.NewTransform(geo)
	if err != nil {
		return nil, fmt.Errorf("failed to build inverse transform: %w", err)
	}
	forward, err := geo.NewTransform(sr)
	if err != nil {
		return nil, fmt.Errorf("failed to build forward transform: %w", err)
	}

	return &Projector{forward: forward, inverse: inverse}, nil
}

// geographic returns a longlat definition on the same ellipsoid as sr.
func geographic(spec string, sr *proj.SR) string {
	if strings.HasPrefix(spec, "+") {
		return projParam.ReplaceAllString(spec, "+proj=longlat")
	}
	if sr.A > 0 && sr.B > 0 {
		return fmt.Sprintf("+proj=longlat +a=%v +b=%v", sr.A, sr.B)
	}
	return "+proj=longlat +datum=WGS84"
}

// Inverse converts native x/y to longitude/latitude in degrees.
func (p *Projector) Inverse(x, y float64) (lon, lat float64, err error) {
	p.mu.Lock()
	lon, lat, err = p.inverse(x, y)
	p.mu.Unlock()
	if err != nil {
		return 0, 0, fmt.Errorf("inverse projection of (%g, %g): %w", x, y, err)
	}
	return lon, lat, nil
}

// Forward converts longitude/latitude in degrees to native x/y.
func (p *Projector) Forward(lon, lat float64) (x, y float64, err error) {
	p.mu.Lock()
	x, y, err = p.forward(lon, lat)
	p.mu.Unlock()
	if err != nil {
		return 0, 0, fmt.Errorf("forward projection of (%g, %g): %w", lon, lat, err)
	}
	return x, y, nil
}
