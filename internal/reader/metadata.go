package reader

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"go.ngs.io/envreader/internal/adapter/axis"
	"go.ngs.io/envreader/internal/adapter/dataset"
	"go.ngs.io/envreader/internal/domain"
)

// CF attribute names and markers used during discovery.
const (
	attrStandardName = "standard_name"
	attrGridMapping  = "grid_mapping"
	attrUnits        = "units"

	xCoordinate  = "projection_x_coordinate"
	yCoordinate  = "projection_y_coordinate"
	timeVariable = "time"
)

// GridMetadata is everything discovered about a dataset's grid.
type GridMetadata struct {
	Projection  string // PROJ.4 string
	GridMapping string // Variable carrying the projection attribute.
	X, Y        axis.Axis
	Time        domain.TimeAxis
	Variables   map[string]string // Canonical name -> dataset variable name.
}

// hasProj4Key returns the value of the first attribute whose name contains "proj4".
func hasProj4Key(attrs dataset.Attributes) (string, bool) {
	for _, key := range attrs.Keys() {
		if !strings.Contains(key, "proj4") {
			continue
		}
		if s, ok := dataset.String(attrs, key); ok {
			return s, true
		}
	}
	return "", false
}

// standardNameIs reports whether the standard_name attribute equals name.
func standardNameIs(attrs dataset.Attributes, name string) bool {
	s, ok := dataset.String(attrs, attrStandardName)
	return ok && s == name
}

type scanned struct {
	name  string
	attrs dataset.Attributes
}

// Discover introspects a dataset for its projection, grid axes, time axis and
// variable map. Failures reading a single variable's attributes are logged and
// that variable is skipped.
func Discover(ds dataset.Dataset, log logrus.FieldLogger) (GridMetadata, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	names, err := ds.Variables()
	if err != nil {
		return GridMetadata{}, fmt.Errorf("%w: failed to list variables: %v", domain.ErrConstruction, err)
	}

	vars := make([]scanned, 0, len(names))
	for _, name := range names {
		attrs, err := ds.Attributes(name)
		if err != nil {
			log.WithFields(logrus.Fields{
				"variable": name,
				"error":    err,
			}).Warn("Skipping variable with unreadable attributes")
			continue
		}
		vars = append(vars, scanned{name: name, attrs: attrs})
	}

	var meta GridMetadata

	for _, v := range vars {
		if p, ok := hasProj4Key(v.attrs); ok {
			meta.Projection = p
			meta.GridMapping = v.name
			break
		}
	}
	if meta.Projection == "" {
		return GridMetadata{}, &domain.MetadataError{What: "proj4 string"}
	}

	if meta.X, err = coordinateAxis(ds, vars, xCoordinate, "x-coordinate", log); err != nil {
		return GridMetadata{}, err
	}
	if meta.Y, err = coordinateAxis(ds, vars, yCoordinate, "y-coordinate", log); err != nil {
		return GridMetadata{}, err
	}

	if meta.Time, err = timeAxis(ds, vars, log); err != nil {
		return GridMetadata{}, err
	}

	meta.Variables = make(map[string]string)
	for _, v := range vars {
		gm, ok := dataset.String(v.attrs, attrGridMapping)
		if !ok || gm != meta.GridMapping {
			continue
		}
		std, ok := dataset.String(v.attrs, attrStandardName)
		if !ok || std == "" {
			continue
		}
		if prev, dup := meta.Variables[std]; dup {
			log.WithFields(logrus.Fields{
				"standard_name": std,
				"kept":          prev,
				"ignored":       v.name,
			}).Debug("Duplicate standard name")
			continue
		}
		meta.Variables[std] = v.name
	}

	return meta, nil
}

func coordinateAxis(ds dataset.Dataset, vars []scanned, marker, what string, log logrus.FieldLogger) (axis.Axis, error) {
	for _, v := range vars {
		if !standardNameIs(v.attrs, marker) {
			continue
		}
		factor := 1.0
		if u, ok := dataset.String(v.attrs, attrUnits); ok && u == "km" {
			factor = 1000
		}
		values, err := ds.ReadFloat64s(v.name)
		if err != nil {
			return axis.Axis{}, fmt.Errorf("%w: failed to read %s: %v", domain.ErrConstruction, v.name, err)
		}
		a, err := axis.New(values, factor)
		if err != nil {
			return axis.Axis{}, fmt.Errorf("%w: %s: %v", domain.ErrConstruction, v.name, err)
		}
		warnIrregular(log, v.name, a)
		return a, nil
	}
	return axis.Axis{}, &domain.MetadataError{What: what}
}

// warnIrregular logs axes whose spacing varies. Sampling still uses the
// uniform-step index, so the log reports how far it can drift from the
// nearest stored coordinate.
func warnIrregular(log logrus.FieldLogger, name string, a axis.Axis) {
	if a.Uniform(1e-6 * a.Step) {
		return
	}
	drift, offset := 0, 0.0
	for i, v := range a.Values {
		d := a.Index(v) - a.Nearest(v)
		if d < 0 {
			d = -d
		}
		drift = max(drift, d)
		offset = max(offset, math.Abs(v-a.Coordinate(i)))
	}
	log.WithFields(logrus.Fields{
		"variable":        name,
		"step":            a.Step,
		"max_index_drift": drift,
		"max_offset":      offset,
	}).Warn("Coordinate axis is not uniformly spaced")
}

func timeAxis(ds dataset.Dataset, vars []scanned, log logrus.FieldLogger) (domain.TimeAxis, error) {
	var tv *scanned
	for i := range vars {
		if vars[i].name == timeVariable {
			tv = &vars[i]
			break
		}
	}
	if tv == nil {
		for i := range vars {
			if standardNameIs(vars[i].attrs, timeVariable) {
				tv = &vars[i]
				break
			}
		}
	}
	if tv == nil {
		return domain.TimeAxis{}, &domain.MetadataError{What: "time variable"}
	}

	values, err := ds.ReadFloat64s(tv.name)
	if err != nil {
		return domain.TimeAxis{}, fmt.Errorf("%w: failed to read %s: %v", domain.ErrConstruction, tv.name, err)
	}
	if len(values) == 0 {
		return domain.TimeAxis{}, &domain.MetadataError{What: "time values"}
	}

	unit, epoch := time.Second, time.Unix(0, 0).UTC()
	if u, ok := dataset.String(tv.attrs, attrUnits); ok {
		if unit, epoch, err = ParseTimeUnits(u); err != nil {
			log.WithFields(logrus.Fields{
				"variable": tv.name,
				"units":    u,
				"error":    err,
			}).Warn("Unrecognized time units, assuming seconds since 1970-01-01")
			unit, epoch = time.Second, time.Unix(0, 0).UTC()
		}
	}

	times := make([]time.Time, len(values))
	for i, v := range values {
		t, err := offsetTime(epoch, v, unit)
		if err != nil {
			return domain.TimeAxis{}, fmt.Errorf("%w: time value %d: %v", domain.ErrConstruction, i, err)
		}
		times[i] = t
	}
	return domain.NewTimeAxis(times), nil
}

// maxOffsetSeconds keeps offsets well inside the range of Unix seconds.
const maxOffsetSeconds = 1e15

// offsetTime returns epoch + v units. The offset is split into whole seconds
// and nanoseconds so that it is not limited to the ±292 year range of a
// time.Duration.
func offsetTime(epoch time.Time, v float64, unit time.Duration) (time.Time, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, fmt.Errorf("%g is not finite", v)
	}
	secs := v * unit.Seconds()
	if math.Abs(secs) > maxOffsetSeconds {
		return time.Time{}, fmt.Errorf("offset of %g s is out of range", secs)
	}
	whole, frac := math.Modf(secs)
	nsec := int64(epoch.Nanosecond()) + int64(math.Round(frac*1e9))
	return time.Unix(epoch.Unix()+int64(whole), nsec).UTC(), nil
}

var timeUnitsPattern = regexp.MustCompile(`^\s*(\w+)\s+since\s+(.+?)\s*$`)

var epochLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2 15:4:5",
	"2006-1-2",
}

// ParseTimeUnits parses a CF time units string such as
// "hours since 1970-01-01 00:00:00" into a unit duration and a UTC epoch.
func ParseTimeUnits(units string) (time.Duration, time.Time, error) {
	m := timeUnitsPattern.FindStringSubmatch(units)
	if m == nil {
		return 0, time.Time{}, fmt.Errorf("not a '<unit> since <date>' string: %q", units)
	}

	var unit time.Duration
	switch strings.ToLower(m[1]) {
	case "seconds", "second", "secs", "sec", "s":
		unit = time.Second
	case "minutes", "minute", "mins", "min":
		unit = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		unit = time.Hour
	case "days", "day", "d":
		unit = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("unsupported time unit %q", m[1])
	}

	ref := strings.TrimSpace(m[2])
	ref = strings.TrimSuffix(ref, " UTC")
	ref = strings.TrimSuffix(ref, " GMT")
	ref = strings.TrimSuffix(ref, "Z")
	for _, layout := range epochLayouts {
		if t, err := time.Parse(layout, ref); err == nil {
			return unit, t.UTC(), nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("unparsable reference date %q", m[2])
}
