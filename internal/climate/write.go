package climate

import (
	"errors"
	"fmt"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
)

const seriesTimeUnits = "days since 1700-01-01 00:00:00"

// WriteSeries writes the series to a NetCDF classic file with a "time"
// coordinate and one variable named after the region.
func WriteSeries(filePath string, s *Series) (err error) {
	if s.Len() == 0 {
		return errors.New("empty series")
	}
	name := s.Region.Name
	if name == "" {
		name = "index"
	}

	cw, err := cdf.OpenWriter(filePath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cw.Close(); err == nil {
			err = cerr
		}
	}()

	globals, err := util.NewOrderedMap(
		[]string{"region", "lat_bottom", "lat_top", "lon_left", "lon_right"},
		map[string]any{
			"region":     name,
			"lat_bottom": s.Region.LatBottom,
			"lat_top":    s.Region.LatTop,
			"lon_left":   s.Region.LonLeft,
			"lon_right":  s.Region.LonRight,
		})
	if err != nil {
		return err
	}
	if err := cw.AddGlobalAttrs(globals); err != nil {
		return err
	}

	timeAttrs, err := util.NewOrderedMap(
		[]string{"units", "calendar"},
		map[string]any{"units": seriesTimeUnits, "calendar": "proleptic_gregorian"})
	if err != nil {
		return err
	}
	if err := cw.AddVar("time", api.Variable{
		Values:     daysSince1700(s.Times),
		Dimensions: []string{"time"},
		Attributes: timeAttrs,
	}); err != nil {
		return fmt.Errorf("write time: %w", err)
	}

	valAttrs, err := util.NewOrderedMap(
		[]string{"long_name"},
		map[string]any{"long_name": fmt.Sprintf("area mean over %s", s.Region)})
	if err != nil {
		return err
	}
	if err := cw.AddVar(name, api.Variable{
		Values:     append([]float64(nil), s.Values...),
		Dimensions: []string{"time"},
		Attributes: valAttrs,
	}); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func daysSince1700(ts []time.Time) []float64 {
	epoch := daysFromCivil(1700, 1, 1)
	out := make([]float64, len(ts))
	for i, t := range ts {
		t = t.UTC()
		secs := t.Hour()*3600 + t.Minute()*60 + t.Second()
		out[i] = float64(daysFromCivil(t.Year(), int(t.Month()), t.Day())-epoch) + float64(secs)/secsPerDay
	}
	return out
}

// daysFromCivil returns the proleptic Gregorian day number of a date
// relative to 1970-01-01.
func daysFromCivil(y, m, d int) int {
	if m <= 2 {
		y--
	}
	era := floorDiv(y, 400)
	yoe := y - era*400
	mp := (m + 9) % 12
	doy := (153*mp+2)/5 + d - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}
