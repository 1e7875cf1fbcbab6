package httpapi_test

import (
	"encoding/json"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rtm0/nino34/internal/climate"
	"github.com/rtm0/nino34/internal/httpapi"
	"github.com/rtm0/nino34/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// latField has value = latitude at every time step and longitude.
func latField(t *testing.T, nt int) *climate.Field {
	t.Helper()
	lats := []float64{-10, 0, 10}
	lons := []float64{180, 190, 200}
	var vals []float64
	times := make([]time.Time, nt)
	for k := range times {
		times[k] = time.Date(1700, time.Month(k+1), 16, 0, 0, 0, 0, time.UTC)
		for _, la := range lats {
			for range lons {
				vals = append(vals, la)
			}
		}
	}
	f, err := climate.NewField("tas", "K", times, lats, lons, vals)
	require.NoError(t, err)
	return f
}

func newTestServer(t *testing.T, f *climate.Field) *httpapi.Server {
	t.Helper()
	ds := &httpapi.Dataset{}
	if f != nil {
		ds.Set(f)
	}
	return httpapi.NewServer(":0", ds, observability.NewMetricsForTesting(), slog.Default())
}

func get(srv *httpapi.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

type seriesBody struct {
	Kind   string `json:"kind"`
	Series struct {
		Region climate.Region `json:"region"`
		Points []struct {
			Time  string   `json:"time"`
			Value *float64 `json:"value"`
		} `json:"points"`
	} `json:"series"`
}

func values(t *testing.T, rec *httptest.ResponseRecorder) []float64 {
	t.Helper()
	var body seriesBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	var out []float64
	for _, p := range body.Series.Points {
		require.NotNil(t, p.Value)
		out = append(out, *p.Value)
	}
	return out
}

func TestHealthz(t *testing.T) {
	rec := get(newTestServer(t, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, get(newTestServer(t, nil), "/readyz").Code)
	assert.Equal(t, http.StatusOK, get(newTestServer(t, latField(t, 3)), "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(t, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRegions(t *testing.T) {
	rec := get(newTestServer(t, nil), "/v1/regions")
	require.Equal(t, http.StatusOK, rec.Code)
	var regions []climate.Region
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regions))
	assert.Contains(t, regions, climate.Nino34)
}

func TestIndex(t *testing.T) {
	rec := get(newTestServer(t, latField(t, 3)), "/v1/index/nino34")
	require.Equal(t, http.StatusOK, rec.Code)
	// Niño 3.4 selects lat 0 and lon 190, 200 of the synthetic grid.
	assert.Equal(t, []float64{0, 0, 0}, values(t, rec))
}

func TestIndexUnknownRegion(t *testing.T) {
	rec := get(newTestServer(t, latField(t, 3)), "/v1/index/atlantic")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndexNotLoaded(t *testing.T) {
	rec := get(newTestServer(t, nil), "/v1/index/nino34")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIndexAnomaly(t *testing.T) {
	rec := get(newTestServer(t, latField(t, 24)), "/v1/index/nino34?anomaly=true")
	require.Equal(t, http.StatusOK, rec.Code)
	var body seriesBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "anomaly", body.Kind)
	assert.Len(t, body.Series.Points, 24)
}

func TestAreaMean(t *testing.T) {
	srv := newTestServer(t, latField(t, 3))

	rec := get(srv, "/v1/area-mean?lat_bottom=-5&lat_top=5&lon_left=185&lon_right=195")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []float64{0, 0, 0}, values(t, rec))

	rec = get(srv, "/v1/area-mean?lat_bottom=0&lat_top=90&lon_left=0&lon_right=360")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []float64{5, 5, 5}, values(t, rec))
}

func TestAreaMeanBadRequests(t *testing.T) {
	srv := newTestServer(t, latField(t, 3))
	for _, path := range []string{
		"/v1/area-mean?lat_bottom=-5&lat_top=5&lon_left=185",
		"/v1/area-mean?lat_bottom=x&lat_top=5&lon_left=185&lon_right=195",
		"/v1/area-mean?lat_bottom=1&lat_top=9&lon_left=185&lon_right=195",
		"/v1/area-mean?lat_bottom=5&lat_top=-5&lon_left=185&lon_right=195",
	} {
		assert.Equal(t, http.StatusBadRequest, get(srv, path).Code, path)
	}
}

func TestMap(t *testing.T) {
	srv := newTestServer(t, latField(t, 3))

	rec := get(srv, "/v1/map/2?width=300")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())

	assert.Equal(t, http.StatusBadRequest, get(srv, "/v1/map/3").Code)
	assert.Equal(t, http.StatusBadRequest, get(srv, "/v1/map/abc").Code)
	assert.Equal(t, http.StatusNotFound, get(srv, "/v1/map/0?region=atlantic").Code)
}
