package climate

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrEmptyRegion is returned when a region selects no grid points.
var ErrEmptyRegion = errors.New("region selects no grid points")

// AreaMean returns the unweighted mean of the field over the region at every
// time step. The mean is taken jointly over latitude and longitude.
func AreaMean(f *Field, r Region) (*Series, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	i0, i1 := f.Lats.Span(r.LatBottom, r.LatTop)
	j0, j1 := f.Lons.Span(r.LonLeft, r.LonRight)
	if i0 >= i1 || j0 >= j1 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRegion, r)
	}
	n := float64((i1 - i0) * (j1 - j0))

	vals := make([]float64, len(f.Times))
	for t := range vals {
		var sum float64
		for i := i0; i < i1; i++ {
			sum += floats.Sum(f.row(t, i)[j0:j1])
		}
		vals[t] = sum / n
	}
	return &Series{
		Region: r,
		Times:  f.Times,
		Values: vals,
	}, nil
}

// EnsoMean returns the mean temperature in the El Niño 3.4 region at every
// time step.
func EnsoMean(f *Field) (*Series, error) {
	return AreaMean(f, Nino34)
}
