package climate_test

import (
	"errors"
	"testing"

	"github.com/rtm0/nino34/internal/climate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAreaMean_SinglePointRegion(t *testing.T) {
	f := latField(t)
	s, err := climate.AreaMean(f, climate.Region{LatBottom: -5, LatTop: 5, LonLeft: 185, LonRight: 195})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, s.Values)
}

func TestAreaMean_WholeDomain(t *testing.T) {
	f := latField(t)
	s, err := climate.AreaMean(f, climate.Region{LatBottom: -90, LatTop: 90, LonLeft: 0, LonRight: 360})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, s.Values)
}

func TestAreaMean_GlobalMeanMatchesBruteForce(t *testing.T) {
	lats := []float64{-60, -30, 0, 30, 60}
	lons := []float64{0, 90, 180, 270}
	f := synthField(t, 4, lats, lons, func(k, i, j int) float64 { return 280 + float64(k*7+i*3-j) })

	s, err := climate.AreaMean(f, climate.Region{LatBottom: -90, LatTop: 90, LonLeft: 0, LonRight: 360})
	require.NoError(t, err)

	for k := 0; k < 4; k++ {
		var sum float64
		for i := range lats {
			for j := range lons {
				sum += f.At(k, i, j)
			}
		}
		assert.InDelta(t, sum/float64(len(lats)*len(lons)), s.Values[k], 1e-9)
	}
}

func TestAreaMean_CollapsedBoxEqualsRawValue(t *testing.T) {
	lats := []float64{-5, 0, 5}
	lons := []float64{190, 200, 210}
	f := synthField(t, 5, lats, lons, func(k, i, j int) float64 { return float64(100*k + 10*i + j) })

	s, err := climate.AreaMean(f, climate.Region{LatBottom: 5, LatTop: 5, LonLeft: 200, LonRight: 200})
	require.NoError(t, err)
	for k := 0; k < 5; k++ {
		assert.Equal(t, f.At(k, 2, 1), s.Values[k])
	}
}

func TestAreaMean_LengthEqualsTimeAxis(t *testing.T) {
	lats := []float64{-10, -5, 0, 5, 10}
	lons := []float64{180, 190, 200, 210}
	f := synthField(t, 7, lats, lons, func(k, i, j int) float64 { return float64(k + i + j) })

	for _, r := range []climate.Region{
		{LatBottom: -10, LatTop: 10, LonLeft: 180, LonRight: 210},
		{LatBottom: 0, LatTop: 0, LonLeft: 190, LonRight: 190},
		{LatBottom: -7, LatTop: 3, LonLeft: 185, LonRight: 205},
	} {
		s, err := climate.AreaMean(f, r)
		require.NoError(t, err)
		assert.Equal(t, 7, s.Len(), r.String())
		assert.Len(t, s.Times, 7)
	}
}

func TestAreaMean_SplitRegionIsLinear(t *testing.T) {
	lats := []float64{-6, -4, -2, 0, 2, 4, 6}
	lons := []float64{190, 195, 200, 205}
	f := synthField(t, 6, lats, lons, func(k, i, j int) float64 {
		return 290 + float64(k)*0.3 + float64(i*i)*0.7 - float64(j)*1.1
	})

	full := climate.Region{LatBottom: -6, LatTop: 6, LonLeft: 190, LonRight: 205}
	south := climate.Region{LatBottom: -6, LatTop: -1, LonLeft: 190, LonRight: 205}
	north := climate.Region{LatBottom: 0, LatTop: 6, LonLeft: 190, LonRight: 205}

	fs, err := climate.AreaMean(f, full)
	require.NoError(t, err)
	ss, err := climate.AreaMean(f, south)
	require.NoError(t, err)
	ns, err := climate.AreaMean(f, north)
	require.NoError(t, err)

	const nSouth, nNorth = 3 * 4, 4 * 4
	for k := range fs.Values {
		combined := (ss.Values[k]*nSouth + ns.Values[k]*nNorth) / (nSouth + nNorth)
		assert.InDelta(t, fs.Values[k], combined, 1e-9)
	}
}

func TestAreaMean_BoundsBetweenGridPoints(t *testing.T) {
	lats := []float64{-7.5, -2.5, 2.5, 7.5}
	lons := []float64{187.5, 192.5, 237.5, 242.5}
	f := synthField(t, 2, lats, lons, func(_, i, j int) float64 { return float64(10*i + j) })

	s, err := climate.EnsoMean(f)
	require.NoError(t, err)
	// lat -2.5, 2.5 and lon 192.5, 237.5
	want := (f.At(0, 1, 1) + f.At(0, 1, 2) + f.At(0, 2, 1) + f.At(0, 2, 2)) / 4
	assert.Equal(t, []float64{want, want}, s.Values)
	assert.Equal(t, climate.Nino34, s.Region)
}

func TestAreaMean_EmptyRegion(t *testing.T) {
	f := latField(t)
	_, err := climate.AreaMean(f, climate.Region{LatBottom: 1, LatTop: 9, LonLeft: 180, LonRight: 200})
	assert.True(t, errors.Is(err, climate.ErrEmptyRegion))

	_, err = climate.AreaMean(f, climate.Region{LatBottom: -10, LatTop: 10, LonLeft: 201, LonRight: 250})
	assert.True(t, errors.Is(err, climate.ErrEmptyRegion))
}

func TestAreaMean_InvalidRegion(t *testing.T) {
	f := latField(t)
	_, err := climate.AreaMean(f, climate.Region{LatBottom: 5, LatTop: -5, LonLeft: 180, LonRight: 200})
	assert.ErrorIs(t, err, climate.ErrInvalidRegion)

	_, err = climate.AreaMean(f, climate.Region{LatBottom: -5, LatTop: 5, LonLeft: 350, LonRight: 10})
	assert.ErrorIs(t, err, climate.ErrInvalidRegion)
}
