package climate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Series is a regional index: one value per time step of the field it was
// derived from.
type Series struct {
	Region Region
	Times  []time.Time
	Values []float64
}

// Len returns the number of time steps.
func (s *Series) Len() int {
	return len(s.Values)
}

// Anomalies returns the series minus its per-calendar-month climatology,
// the mean over all years of the values recorded in that month.
func (s *Series) Anomalies() (*Series, error) {
	if s.Len() == 0 {
		return nil, errors.New("empty series")
	}
	var byMonth [12][]float64
	for k, t := range s.Times {
		m := t.Month() - 1
		byMonth[m] = append(byMonth[m], s.Values[k])
	}
	var clim [12]float64
	for m, vs := range byMonth {
		if len(vs) > 0 {
			clim[m] = floats.Sum(vs) / float64(len(vs))
		}
	}
	out := make([]float64, s.Len())
	for k, t := range s.Times {
		out[k] = s.Values[k] - clim[t.Month()-1]
	}
	return &Series{Region: s.Region, Times: s.Times, Values: out}, nil
}

// RunningMean returns the centred running mean over an odd window. Values
// whose window does not fit inside the series are NaN.
func (s *Series) RunningMean(window int) (*Series, error) {
	if window < 1 || window%2 == 0 {
		return nil, fmt.Errorf("window must be odd and positive, got %d", window)
	}
	half := window / 2
	out := make([]float64, s.Len())
	for k := range out {
		if k < half || k+half >= s.Len() {
			out[k] = math.NaN()
			continue
		}
		out[k] = floats.Sum(s.Values[k-half:k+half+1]) / float64(window)
	}
	return &Series{Region: s.Region, Times: s.Times, Values: out}, nil
}

// ONI returns the Oceanic Niño Index style series: the three-month running
// mean of the anomalies.
func (s *Series) ONI() (*Series, error) {
	a, err := s.Anomalies()
	if err != nil {
		return nil, err
	}
	return a.RunningMean(3)
}

// Records converts the series to exportable records.
func (s *Series) Records() []Record {
	recs := make([]Record, 0, s.Len())
	for k, v := range s.Values {
		if math.IsNaN(v) {
			continue
		}
		recs = append(recs, Record{
			Timestamp: s.Times[k].UnixMilli(),
			Region:    s.Region.Name,
			Value:     v,
		})
	}
	return recs
}

// Phase is the sign of an ENSO episode.
type Phase string

const (
	ElNino Phase = "el_nino"
	LaNina Phase = "la_nina"
)

// Episode is a run of consecutive values beyond the threshold.
type Episode struct {
	Phase Phase     `json:"phase"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Peak  float64   `json:"peak"`
}

// Default episode classification parameters.
const (
	DefaultThreshold = 0.5
	DefaultMinRun    = 5
)

// Episodes finds runs of at least minRun consecutive values >= threshold
// (El Niño) or <= -threshold (La Niña). NaN values break a run.
func Episodes(s *Series, threshold float64, minRun int) []Episode {
	var eps []Episode
	begin := -1
	var phase Phase
	flush := func(end int) {
		if begin >= 0 && end-begin >= minRun {
			ep := Episode{Phase: phase, Start: s.Times[begin], End: s.Times[end-1]}
			if phase == ElNino {
				ep.Peak = floats.Max(s.Values[begin:end])
			} else {
				ep.Peak = floats.Min(s.Values[begin:end])
			}
			eps = append(eps, ep)
		}
		begin = -1
	}
	for k, v := range s.Values {
		var p Phase
		switch {
		case v >= threshold:
			p = ElNino
		case v <= -threshold:
			p = LaNina
		}
		if p == "" || p != phase {
			flush(k)
		}
		phase = p
		if p != "" && begin < 0 {
			begin = k
		}
	}
	flush(len(s.Values))
	return eps
}

// Kind selects which form of a regional index is reported.
type Kind string

const (
	KindMean    Kind = "mean"
	KindAnomaly Kind = "anomaly"
	KindONI     Kind = "oni"
)

// Derive returns the series in the requested form.
func (s *Series) Derive(kind Kind) (*Series, error) {
	switch kind {
	case KindMean, "":
		return s, nil
	case KindAnomaly:
		return s.Anomalies()
	case KindONI:
		return s.ONI()
	default:
		return nil, fmt.Errorf("unknown series kind %q", kind)
	}
}

type jsonPoint struct {
	Time  string   `json:"time"`
	Value *float64 `json:"value"`
}

// MarshalJSON encodes the series as its region and a list of points. NaN
// values are encoded as null.
func (s *Series) MarshalJSON() ([]byte, error) {
	pts := make([]jsonPoint, s.Len())
	for k, v := range s.Values {
		pts[k].Time = s.Times[k].Format("2006-01-02")
		if !math.IsNaN(v) {
			pts[k].Value = &v
		}
	}
	return json.Marshal(struct {
		Region Region      `json:"region"`
		Points []jsonPoint `json:"points"`
	}{s.Region, pts})
}
