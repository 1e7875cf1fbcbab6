package climate

import (
	"math"
	"sort"
)

// Axis is a strictly ascending coordinate axis in degrees.
type Axis []float64

// Span returns the half-open index range [begin, end) of the coordinates c
// with lo <= c <= hi. The bounds do not have to be grid coordinates. The
// range is empty (begin >= end) when no coordinate lies within the bounds.
func (a Axis) Span(lo, hi float64) (begin, end int) {
	begin = sort.Search(len(a), func(i int) bool { return a[i] >= lo })
	end = sort.Search(len(a), func(i int) bool { return a[i] > hi })
	return begin, end
}

// Nearest returns the index of the coordinate closest to v.
func (a Axis) Nearest(v float64) int {
	i := sort.SearchFloat64s(a, v)
	switch {
	case i == 0:
		return 0
	case i == len(a):
		return len(a) - 1
	case v-a[i-1] <= a[i]-v:
		return i - 1
	default:
		return i
	}
}

func (a Axis) ascending() bool {
	for i := range a {
		if math.IsNaN(a[i]) || math.IsInf(a[i], 0) {
			return false
		}
		if i > 0 && a[i] <= a[i-1] {
			return false
		}
	}
	return true
}

func (a Axis) descending() bool {
	for i := 1; i < len(a); i++ {
		if a[i] >= a[i-1] {
			return false
		}
	}
	return true
}
