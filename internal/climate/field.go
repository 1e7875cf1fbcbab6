// Package climate loads gridded surface-temperature fields and derives
// regional indices such as El Niño 3.4 from them.
package climate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeIndex is returned for a time index outside the field.
	ErrTimeIndex = errors.New("time index out of range")
	// ErrUnsupportedAxis is returned for coordinate axes that are not
	// strictly monotonic.
	ErrUnsupportedAxis = errors.New("unsupported coordinate axis")
)

// Field is a temperature field indexed by (time, latitude, longitude).
// Values are stored row-major: vals[(t*len(Lats)+i)*len(Lons)+j].
// A Field is never modified after construction.
type Field struct {
	Name  string
	Units string
	Times []time.Time
	Lats  Axis
	Lons  Axis

	vals []float64
}

// NewField creates a field from its coordinates and row-major values.
// The field takes ownership of vals.
func NewField(name, units string, times []time.Time, lats, lons []float64, vals []float64) (*Field, error) {
	if len(times) == 0 || len(lats) == 0 || len(lons) == 0 {
		return nil, fmt.Errorf("empty axis: time=%d lat=%d lon=%d", len(times), len(lats), len(lons))
	}
	la := append(Axis(nil), lats...)
	lo := append(Axis(nil), lons...)
	if !la.ascending() {
		return nil, fmt.Errorf("%w: latitude is not strictly ascending", ErrUnsupportedAxis)
	}
	if !lo.ascending() {
		return nil, fmt.Errorf("%w: longitude is not strictly ascending", ErrUnsupportedAxis)
	}
	if want := len(times) * len(lats) * len(lons); len(vals) != want {
		return nil, fmt.Errorf("field has %d values, want %d", len(vals), want)
	}
	return &Field{
		Name:  name,
		Units: units,
		Times: append([]time.Time(nil), times...),
		Lats:  la,
		Lons:  lo,
		vals:  vals,
	}, nil
}

// Shape returns the length of the time, latitude and longitude axes.
func (f *Field) Shape() (nt, nlat, nlon int) {
	return len(f.Times), len(f.Lats), len(f.Lons)
}

// At returns the value at time index t, latitude index i and longitude
// index j.
func (f *Field) At(t, i, j int) float64 {
	return f.vals[(t*len(f.Lats)+i)*len(f.Lons)+j]
}

// Slice returns the latitude-major grid at time index t. The returned slice
// aliases the field and must not be modified.
func (f *Field) Slice(t int) ([]float64, error) {
	if t < 0 || t >= len(f.Times) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrTimeIndex, t, len(f.Times))
	}
	n := len(f.Lats) * len(f.Lons)
	return f.vals[t*n : (t+1)*n : (t+1)*n], nil
}

func (f *Field) row(t, i int) []float64 {
	begin := (t*len(f.Lats) + i) * len(f.Lons)
	return f.vals[begin : begin+len(f.Lons)]
}

// Summary returns the summary information about the field suitable for
// logging.
func (f *Field) Summary() []any {
	return []any{
		"var", f.Name,
		"units", f.Units,
		"tsCnt", len(f.Times),
		"laCnt", len(f.Lats),
		"loCnt", len(f.Lons),
		"first", f.Times[0].Format("2006-01-02"),
		"last", f.Times[len(f.Times)-1].Format("2006-01-02"),
	}
}
