package climate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// El Niño 3.4 box in the 0-360 longitude convention.
const (
	EnLatBottom = -5.0
	EnLatTop    = 5.0
	EnLonLeft   = 360.0 - 170
	EnLonRight  = 360.0 - 120
)

var (
	// ErrInvalidRegion is returned for boxes with reversed or non-finite
	// bounds.
	ErrInvalidRegion = errors.New("invalid region")
	// ErrUnknownRegion is returned by LookupRegion for unknown names.
	ErrUnknownRegion = errors.New("unknown region")
)

// Region is an axis-aligned latitude/longitude box. Longitudes use the
// 0-360 convention and the box does not wrap around the 0/360 meridian.
type Region struct {
	Name      string  `json:"name"`
	LatBottom float64 `json:"lat_bottom"`
	LatTop    float64 `json:"lat_top"`
	LonLeft   float64 `json:"lon_left"`
	LonRight  float64 `json:"lon_right"`
}

// Niño regions.
var (
	Nino34 = Region{Name: "nino34", LatBottom: EnLatBottom, LatTop: EnLatTop, LonLeft: EnLonLeft, LonRight: EnLonRight}
	Nino12 = Region{Name: "nino12", LatBottom: -10, LatTop: 0, LonLeft: 270, LonRight: 280}
	Nino3  = Region{Name: "nino3", LatBottom: -5, LatTop: 5, LonLeft: 210, LonRight: 270}
	Nino4  = Region{Name: "nino4", LatBottom: -5, LatTop: 5, LonLeft: 160, LonRight: 210}
)

var regions = map[string]Region{
	Nino34.Name: Nino34,
	Nino12.Name: Nino12,
	Nino3.Name:  Nino3,
	Nino4.Name:  Nino4,
}

// Regions returns the named regions sorted by name.
func Regions() []Region {
	rs := make([]Region, 0, len(regions))
	for _, r := range regions {
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].Name < rs[j].Name })
	return rs
}

// LookupRegion returns the named region. Names are case-insensitive and may
// contain dots, e.g. "Nino3.4".
func LookupRegion(name string) (Region, error) {
	key := strings.ToLower(strings.ReplaceAll(name, ".", ""))
	r, ok := regions[key]
	if !ok {
		return Region{}, fmt.Errorf("%w: %q", ErrUnknownRegion, name)
	}
	return r, nil
}

// Validate checks that the bounds are finite and ordered.
func (r Region) Validate() error {
	for _, v := range []float64{r.LatBottom, r.LatTop, r.LonLeft, r.LonRight} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s has non-finite bounds", ErrInvalidRegion, r)
		}
	}
	if r.LatBottom > r.LatTop {
		return fmt.Errorf("%w: %s: lat_bottom > lat_top", ErrInvalidRegion, r)
	}
	if r.LonLeft > r.LonRight {
		return fmt.Errorf("%w: %s: lon_left > lon_right", ErrInvalidRegion, r)
	}
	return nil
}

// Polygon returns the box corners as (lat, lon) pairs, counter-clockwise
// from the bottom-right corner.
func (r Region) Polygon() [4][2]float64 {
	return [4][2]float64{
		{r.LatBottom, r.LonRight},
		{r.LatTop, r.LonRight},
		{r.LatTop, r.LonLeft},
		{r.LatBottom, r.LonLeft},
	}
}

func (r Region) String() string {
	name := r.Name
	if name == "" {
		name = "region"
	}
	return fmt.Sprintf("%s[lat %g..%g, lon %g..%g]", name, r.LatBottom, r.LatTop, r.LonLeft, r.LonRight)
}
