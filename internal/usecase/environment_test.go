package usecase_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/envreader/internal/adapter/dataset/datasettest"
	"go.ngs.io/envreader/internal/domain"
	"go.ngs.io/envreader/internal/reader"
	"go.ngs.io/envreader/internal/reader/cfgeneric"
	"go.ngs.io/envreader/internal/registry"
	"go.ngs.io/envreader/internal/usecase"
)

func setup(t *testing.T) (*usecase.EnvironmentUseCase, *reader.Reader) {
	t.Helper()
	log, _ := test.NewNullLogger()

	f := datasettest.CF(datasettest.Options{})
	// Mark one cell as missing.
	f.Vars[6].Data[0] = -1
	f.Vars[6].Attrs = append(f.Vars[6].Attrs, datasettest.Attr{Key: "_FillValue", Value: -1.0})

	r, err := cfgeneric.New(datasettest.Memory(t, f), cfgeneric.WithLogger(log))
	require.NoError(t, err)

	reg := registry.New(log)
	require.NoError(t, reg.Attach(r, registry.WithName("norkyst")))
	return usecase.NewEnvironmentUseCase(reg, log), r
}

func lonLat(t *testing.T, r *reader.Reader, x, y []float64) ([]float64, []float64) {
	t.Helper()
	lon, lat, err := r.XY2LonLat(x, y)
	require.NoError(t, err)
	return lon, lat
}

func TestExecute(t *testing.T) {
	uc, r := setup(t)
	lon, lat := lonLat(t, r, []float64{5.4, 0.3}, []float64{2.6, 0.2})

	resp, err := uc.Execute(usecase.EnvironmentRequest{
		Variables: []string{domain.EastwardCurrent, domain.SeaFloorDepthBelowSeaLevel, domain.EastwardCurrent},
		Lon:       lon,
		Lat:       lat,
		Time:      time.Unix(3600, 0),
	})
	require.NoError(t, err)

	assert.Equal(t, "1970-01-01T01:00:00Z", resp.Time)
	require.Len(t, resp.Points, 2)
	require.Len(t, resp.Variables, 2)

	u := resp.Variables[0]
	assert.Equal(t, domain.EastwardCurrent, u.Name)
	assert.Equal(t, "norkyst", u.Reader)
	assert.Equal(t, "1970-01-01T01:00:00Z", u.NearestTime)
	require.Len(t, u.Values, 2)
	require.NotNil(t, u.Values[0])
	assert.InDelta(t, datasettest.Encode(1, 1, 3, 5), *u.Values[0], 1e-9)

	h := resp.Variables[1]
	assert.Equal(t, domain.SeaFloorDepthBelowSeaLevel, h.Name)
	assert.Empty(t, h.NearestTime)
	require.NotNil(t, h.Values[0])
	assert.InDelta(t, 305.0, *h.Values[0], 1e-9)
	assert.Nil(t, h.Values[1], "fill value becomes null")
}

func TestExecuteOmittedTime(t *testing.T) {
	uc, r := setup(t)
	lon, lat := lonLat(t, r, []float64{1}, []float64{1})

	resp, err := uc.Execute(usecase.EnvironmentRequest{
		Variables: []string{domain.EastwardCurrent},
		Lon:       lon,
		Lat:       lat,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Time)
	assert.Equal(t, "1970-01-01T00:00:00Z", resp.Variables[0].NearestTime)
}

func TestExecuteErrors(t *testing.T) {
	uc, r := setup(t)
	lon, lat := lonLat(t, r, []float64{1}, []float64{1})

	tests := []struct {
		name string
		req  usecase.EnvironmentRequest
		want error
	}{
		{"no variables", usecase.EnvironmentRequest{Lon: lon, Lat: lat}, domain.ErrInvalidArgument},
		{"no points", usecase.EnvironmentRequest{Variables: []string{domain.EastwardCurrent}}, domain.ErrInvalidArgument},
		{"mismatched points", usecase.EnvironmentRequest{Variables: []string{domain.EastwardCurrent}, Lon: []float64{1, 2}, Lat: []float64{1}}, domain.ErrInvalidArgument},
		{"bad latitude", usecase.EnvironmentRequest{Variables: []string{domain.EastwardCurrent}, Lon: []float64{1}, Lat: []float64{91}}, domain.ErrInvalidArgument},
		{"bad longitude", usecase.EnvironmentRequest{Variables: []string{domain.EastwardCurrent}, Lon: []float64{181}, Lat: []float64{1}}, domain.ErrInvalidArgument},
		{"missing variable", usecase.EnvironmentRequest{Variables: []string{domain.XWind}, Lon: lon, Lat: lat}, domain.ErrMissingVariables},
		{"outside grid", usecase.EnvironmentRequest{Variables: []string{domain.EastwardCurrent}, Lon: []float64{9}, Lat: []float64{10}}, domain.ErrSpaceOutOfRange},
		{"outside time", usecase.EnvironmentRequest{Variables: []string{domain.EastwardCurrent}, Lon: lon, Lat: lat, Time: time.Unix(3600*5, 0)}, domain.ErrTimeOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolve(t *testing.T) {
	uc, _ := setup(t)

	resp, err := uc.Resolve([]string{domain.EastwardCurrent})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{domain.EastwardCurrent: "norkyst"}, resp.Sources)

	_, err = uc.Resolve([]string{domain.EastwardCurrent, domain.YWind})
	var mv *domain.MissingVariablesError
	require.ErrorAs(t, err, &mv)
	assert.Equal(t, []string{domain.YWind}, mv.Names)

	_, err = uc.Resolve(nil)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestListings(t *testing.T) {
	uc, _ := setup(t)

	assert.Equal(t, []string{domain.EastwardCurrent, domain.SeaFloorDepthBelowSeaLevel}, uc.ListVariables())

	readers := uc.ListReaders()
	require.Len(t, readers, 1)
	info := readers[0]
	assert.Equal(t, "norkyst", info.Name)
	assert.Equal(t, datasettest.Proj4, info.Projection)
	require.NotNil(t, info.Bounds)
	assert.Equal(t, 10.0, info.Bounds.XMax)
	require.NotNil(t, info.Time)
	assert.Equal(t, "1h0m0s", info.Time.Step)
	assert.Equal(t, 3, info.Time.Count)
}
