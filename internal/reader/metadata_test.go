package reader_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/envreader/internal/adapter/dataset/datasettest"
	"go.ngs.io/envreader/internal/domain"
	"go.ngs.io/envreader/internal/reader"
)

func TestDiscover(t *testing.T) {
	ds := datasettest.Memory(t, datasettest.CF(datasettest.Options{}))

	meta, err := reader.Discover(ds, nil)
	require.NoError(t, err)

	assert.Equal(t, datasettest.Proj4, meta.Projection)
	assert.Equal(t, "projection_stere", meta.GridMapping)

	assert.Equal(t, 0.0, meta.X.Min)
	assert.Equal(t, 10.0, meta.X.Max)
	assert.Equal(t, 1.0, meta.X.Step)
	assert.Equal(t, 0.0, meta.Y.Min)
	assert.Equal(t, 5.0, meta.Y.Max)
	assert.Equal(t, 1.0, meta.Y.Step)

	assert.Equal(t, time.Unix(0, 0).UTC(), meta.Time.Start)
	assert.Equal(t, time.Unix(7200, 0).UTC(), meta.Time.End)
	assert.Equal(t, time.Hour, meta.Time.Step)
	assert.Len(t, meta.Time.Times, 3)

	assert.Equal(t, map[string]string{
		"eastward_current":                "u",
		"sea_floor_depth_below_sea_level": "h",
	}, meta.Variables)
}

func TestDiscoverKilometres(t *testing.T) {
	ds := datasettest.Memory(t, datasettest.CF(datasettest.Options{XUnits: "km"}))

	meta, err := reader.Discover(ds, nil)
	require.NoError(t, err)

	// Coordinates stored as 0, 0.001, ... km become 0, 1, ... m.
	assert.InDelta(t, 10.0, meta.X.Max, 1e-9)
	assert.InDelta(t, 1.0, meta.X.Step, 1e-9)
	assert.InDelta(t, 5.0, meta.Y.Max, 1e-9)
}

func TestDiscoverFirstProj4Wins(t *testing.T) {
	ds := datasettest.Memory(t, datasettest.CF(datasettest.Options{}))
	ds.SetAttribute("u", "proj4_string", "+proj=longlat")

	meta, err := reader.Discover(ds, nil)
	require.NoError(t, err)
	assert.Equal(t, "projection_stere", meta.GridMapping)
	assert.Equal(t, datasettest.Proj4, meta.Projection)
}

func TestDiscoverMissingMetadata(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *datasettest.File)
		what   string
	}{
		{
			name:   "no projection",
			mutate: func(f *datasettest.File) { f.Vars[0].Attrs = f.Vars[0].Attrs[:1] },
			what:   "proj4 string",
		},
		{
			name:   "no x coordinate",
			mutate: func(f *datasettest.File) { f.Vars[3].Attrs = nil },
			what:   "x-coordinate",
		},
		{
			name:   "no y coordinate",
			mutate: func(f *datasettest.File) { f.Vars[4].Attrs = nil },
			what:   "y-coordinate",
		},
		{
			name:   "no time",
			mutate: func(f *datasettest.File) { f.Vars[1].Name = "ocean_time"; f.Vars[1].Attrs = nil },
			what:   "time variable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := datasettest.CF(datasettest.Options{})
			tt.mutate(&f)

			_, err := reader.Discover(datasettest.Memory(t, f), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMetadata)
			assert.ErrorIs(t, err, domain.ErrConstruction)

			var me *domain.MetadataError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, tt.what, me.What)
		})
	}
}

func TestDiscoverTimeByStandardName(t *testing.T) {
	f := datasettest.CF(datasettest.Options{})
	f.Vars[1].Name = "ocean_time"

	meta, err := reader.Discover(datasettest.Memory(t, f), nil)
	require.NoError(t, err)
	assert.Len(t, meta.Time.Times, 3)
}

func TestDiscoverTimeUnits(t *testing.T) {
	f := datasettest.CF(datasettest.Options{})
	f.Vars[1].Data = []float64{0, 1, 2}
	f.Vars[1].Attrs[1].Value = "hours since 2020-01-01 00:00:00"

	meta, err := reader.Discover(datasettest.Memory(t, f), nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), meta.Time.Start)
	assert.Equal(t, time.Date(2020, 1, 1, 2, 0, 0, 0, time.UTC), meta.Time.End)
	assert.Equal(t, time.Hour, meta.Time.Step)
}

func TestDiscoverTimeUnitsFarFromEpoch(t *testing.T) {
	tests := []struct {
		name       string
		units      string
		values     []float64
		start, end time.Time
		step       time.Duration
	}{
		{
			name:   "days since year one",
			units:  "days since 0001-01-01 00:00:00",
			values: []float64{738000, 738001},
			start:  time.Date(2021, 7, 30, 0, 0, 0, 0, time.UTC),
			end:    time.Date(2021, 7, 31, 0, 0, 0, 0, time.UTC),
			step:   24 * time.Hour,
		},
		{
			name:   "hours since 1700",
			units:  "hours since 1700-01-01",
			values: []float64{2800000, 2800001, 2800002},
			start:  time.Date(2019, 6, 4, 16, 0, 0, 0, time.UTC),
			end:    time.Date(2019, 6, 4, 18, 0, 0, 0, time.UTC),
			step:   time.Hour,
		},
		{
			name:   "fractional days",
			units:  "days since 1900-01-01",
			values: []float64{44000.5, 44000.75},
			start:  time.Date(2020, 6, 20, 12, 0, 0, 0, time.UTC),
			end:    time.Date(2020, 6, 20, 18, 0, 0, 0, time.UTC),
			step:   6 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := datasettest.CF(datasettest.Options{})
			f.Dims[0].Len = len(tt.values)
			f.Vars[1].Data = tt.values
			f.Vars[1].Attrs[1].Value = tt.units
			// Only the time axis matters here.
			f.Vars = f.Vars[:5]

			meta, err := reader.Discover(datasettest.Memory(t, f), nil)
			require.NoError(t, err)
			assert.True(t, tt.start.Equal(meta.Time.Start), "start %s", meta.Time.Start)
			assert.True(t, tt.end.Equal(meta.Time.End), "end %s", meta.Time.End)
			assert.Equal(t, tt.step, meta.Time.Step)
		})
	}
}

func TestDiscoverTimeOffsetOutOfRange(t *testing.T) {
	f := datasettest.CF(datasettest.Options{})
	f.Vars[1].Data = []float64{0, 1, 1e300}
	f.Vars[1].Attrs[1].Value = "days since 1970-01-01"

	_, err := reader.Discover(datasettest.Memory(t, f), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConstruction)
}

func TestDiscoverBadTimeUnitsFallsBack(t *testing.T) {
	f := datasettest.CF(datasettest.Options{})
	f.Vars[1].Attrs[1].Value = "fortnights after the flood"

	log, hook := test.NewNullLogger()
	meta, err := reader.Discover(datasettest.Memory(t, f), log)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(7200, 0).UTC(), meta.Time.End)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestDiscoverSwallowsAttributeFailures(t *testing.T) {
	ds := datasettest.Memory(t, datasettest.CF(datasettest.Options{}))
	ds.FailAttributes("h", errors.New("corrupt header"))

	log, hook := test.NewNullLogger()
	meta, err := reader.Discover(ds, log)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"eastward_current": "u"}, meta.Variables)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "h", hook.LastEntry().Data["variable"])
}

func TestDiscoverWarnsOnIrregularAxis(t *testing.T) {
	f := datasettest.CF(datasettest.Options{})
	f.Vars[3].Data = []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 12}

	log, hook := test.NewNullLogger()
	meta, err := reader.Discover(datasettest.Memory(t, f), log)
	require.NoError(t, err)
	assert.Equal(t, 12.0, meta.X.Max)

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "X", entry.Data["variable"])
	assert.Equal(t, 2, entry.Data["max_index_drift"])
	assert.Equal(t, 2.0, entry.Data["max_offset"])
}

func TestDiscoverSkipsIncompleteVariables(t *testing.T) {
	f := datasettest.CF(datasettest.Options{})
	// A variable on another grid mapping is ignored.
	f.Vars = append(f.Vars, datasettest.Var{
		Name: "v", Dims: []string{"y", "x"}, Data: make([]float64, 66),
		Attrs: []datasettest.Attr{
			{Key: "standard_name", Value: "northward_current"},
			{Key: "grid_mapping", Value: "other"},
		},
	})

	meta, err := reader.Discover(datasettest.Memory(t, f), nil)
	require.NoError(t, err)
	assert.NotContains(t, meta.Variables, "northward_current")
	assert.Len(t, meta.Variables, 2)
}

func TestParseTimeUnits(t *testing.T) {
	tests := []struct {
		in    string
		unit  time.Duration
		epoch time.Time
	}{
		{"seconds since 1970-01-01 00:00:00", time.Second, time.Unix(0, 0).UTC()},
		{"hours since 1900-01-01", time.Hour, time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"days since 2000-01-01T12:00:00Z", 24 * time.Hour, time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)},
		{"minutes since 2015-11-16 00:00:00 UTC", time.Minute, time.Date(2015, 11, 16, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			unit, epoch, err := reader.ParseTimeUnits(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.unit, unit)
			assert.True(t, tt.epoch.Equal(epoch), "epoch %s", epoch)
		})
	}

	for _, bad := range []string{"", "seconds", "weeks since 2000-01-01", "hours since yesterday"} {
		_, _, err := reader.ParseTimeUnits(bad)
		assert.Error(t, err, bad)
	}
}
