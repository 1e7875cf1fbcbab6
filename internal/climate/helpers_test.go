package climate_test

import (
	"testing"
	"time"

	"github.com/rtm0/nino34/internal/climate"
	"github.com/stretchr/testify/require"
)

func monthly(n int) []time.Time {
	ts := make([]time.Time, n)
	for i := range ts {
		ts[i] = time.Date(1700, time.Month(i+1), 16, 0, 0, 0, 0, time.UTC)
	}
	return ts
}

func synthField(t *testing.T, nt int, lats, lons []float64, value func(t, i, j int) float64) *climate.Field {
	t.Helper()
	vals := make([]float64, 0, nt*len(lats)*len(lons))
	for k := 0; k < nt; k++ {
		for i := range lats {
			for j := range lons {
				vals = append(vals, value(k, i, j))
			}
		}
	}
	f, err := climate.NewField("tas", "K", monthly(nt), lats, lons, vals)
	require.NoError(t, err)
	return f
}

// latField is the 3x3x3 field whose value equals the latitude.
func latField(t *testing.T) *climate.Field {
	lats := []float64{-10, 0, 10}
	return synthField(t, 3, lats, []float64{180, 190, 200}, func(_, i, _ int) float64 { return lats[i] })
}
