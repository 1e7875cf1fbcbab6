package climate

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// DefaultRebaseStart is the start of a renormalized time axis.
var DefaultRebaseStart = time.Date(1700, time.January, 1, 0, 0, 0, 0, time.UTC)

// DefaultVariable is the CMIP name of near-surface air temperature.
const DefaultVariable = "tas"

// Options controls how Open reads a dataset.
type Options struct {
	// Variable is the data variable to read. Default: DefaultVariable.
	Variable string
	// RebaseStart is where a renormalized time axis starts. Default:
	// DefaultRebaseStart.
	RebaseStart time.Time
	// ForceRebase renormalizes the time axis even if it can be decoded.
	ForceRebase bool
	Logger      *slog.Logger
}

// Open reads a (time, lat, lon) field from a NetCDF file.
func Open(filePath string, opts Options) (*Field, error) {
	if opts.Variable == "" {
		opts.Variable = DefaultVariable
	}
	if opts.RebaseStart.IsZero() {
		opts.RebaseStart = DefaultRebaseStart
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	nc, err := netcdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer nc.Close()

	la, laName, err := coordValues(nc, "lat", "latitude")
	if err != nil {
		return nil, err
	}
	lo, loName, err := coordValues(nc, "lon", "longitude")
	if err != nil {
		return nil, err
	}
	raw, tName, err := coordValues(nc, "time")
	if err != nil {
		return nil, err
	}
	tvg, err := nc.GetVarGetter(tName)
	if err != nil {
		return nil, err
	}
	units := stringAttr(tvg.Attributes(), "units")
	calendar := stringAttr(tvg.Attributes(), "calendar")
	ts := resolveTimes(logger, raw, units, calendar, opts)

	vg, err := nc.GetVarGetter(opts.Variable)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", opts.Variable, err)
	}
	if dims := vg.Dimensions(); !slices.Equal(dims, []string{tName, laName, loName}) {
		return nil, fmt.Errorf("%w: variable %q has dimensions %v, want [%s %s %s]",
			ErrUnsupportedAxis, opts.Variable, dims, tName, laName, loName)
	}

	flipLa, err := checkAxis(laName, la)
	if err != nil {
		return nil, err
	}
	flipLo, err := checkAxis(loName, lo)
	if err != nil {
		return nil, err
	}
	fill, hasFill := fillValue(vg.Attributes())

	nla, nlo := len(la), len(lo)
	vals := make([]float64, len(ts)*nla*nlo)
	for t := range ts {
		grid, err := readStep(vg, t, nla, nlo)
		if err != nil {
			return nil, fmt.Errorf("variable %q at time index %d: %w", opts.Variable, t, err)
		}
		for i := 0; i < nla; i++ {
			di := i
			if flipLa {
				di = nla - 1 - i
			}
			for j := 0; j < nlo; j++ {
				dj := j
				if flipLo {
					dj = nlo - 1 - j
				}
				v := grid(i, j)
				if (hasFill && v == fill) || math.IsNaN(v) {
					return nil, fmt.Errorf("variable %q has a missing value at (%d, %d, %d)", opts.Variable, t, i, j)
				}
				vals[(t*nla+di)*nlo+dj] = v
			}
		}
	}
	if flipLa {
		slices.Reverse(la)
	}
	if flipLo {
		slices.Reverse(lo)
	}

	f, err := NewField(opts.Variable, stringAttr(vg.Attributes(), "units"), ts, la, lo, vals)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded", append([]any{"file", filePath}, f.Summary()...)...)
	return f, nil
}

func resolveTimes(logger *slog.Logger, raw []float64, units, calendar string, opts Options) []time.Time {
	if !opts.ForceRebase {
		ts, err := decodeTimes(raw, units, calendar)
		if err == nil && !inStandardRange(ts) {
			err = errOutOfRange
		}
		if err == nil {
			return ts
		}
		logger.Warn("rebasing time axis", "units", units, "calendar", calendar,
			"start", opts.RebaseStart.Format("2006-01-02"), "err", err)
	}
	return rebaseTimes(raw, units, opts.RebaseStart)
}

// coordValues returns the values of the first coordinate variable found
// under one of the given names.
func coordValues(nc api.Group, names ...string) ([]float64, string, error) {
	for _, name := range names {
		vg, err := nc.GetVarGetter(name)
		if err != nil {
			continue
		}
		v, err := vg.Values()
		if err != nil {
			return nil, "", fmt.Errorf("coordinate %q: %w", name, err)
		}
		vals, err := toFloat64s(v)
		if err != nil {
			return nil, "", fmt.Errorf("coordinate %q: %w", name, err)
		}
		if len(vals) == 0 {
			return nil, "", fmt.Errorf("coordinate %q is empty", name)
		}
		return vals, name, nil
	}
	return nil, "", fmt.Errorf("no coordinate variable named any of %v", names)
}

func toFloat64s(v any) ([]float64, error) {
	switch vs := v.(type) {
	case []float64:
		return slices.Clone(vs), nil
	case []float32:
		return convert(vs), nil
	case []int64:
		return convert(vs), nil
	case []int32:
		return convert(vs), nil
	case []int16:
		return convert(vs), nil
	default:
		return nil, fmt.Errorf("unsupported coordinate type %T", v)
	}
}

func convert[T float32 | int64 | int32 | int16](vs []T) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = float64(v)
	}
	return out
}

// checkAxis reports whether a strictly monotonic axis must be flipped to be
// ascending.
func checkAxis(name string, a Axis) (bool, error) {
	switch {
	case len(a) == 1 || a.ascending():
		return false, nil
	case a.descending():
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q is not strictly monotonic", ErrUnsupportedAxis, name)
	}
}

// readStep reads the 2D grid at time index t.
func readStep(vg api.VarGetter, t, nla, nlo int) (func(i, j int) float64, error) {
	begin := int64(t)
	v, err := vg.GetSlice(begin, begin+1)
	if err != nil {
		return nil, err
	}
	switch g := v.(type) {
	case [][][]float32:
		if err := checkGrid(g, nla, nlo); err != nil {
			return nil, err
		}
		return func(i, j int) float64 { return float64(g[0][i][j]) }, nil
	case [][][]float64:
		if err := checkGrid(g, nla, nlo); err != nil {
			return nil, err
		}
		return func(i, j int) float64 { return g[0][i][j] }, nil
	default:
		return nil, fmt.Errorf("unsupported data type %T", v)
	}
}

func checkGrid[T float32 | float64](g [][][]T, nla, nlo int) error {
	if len(g) != 1 || len(g[0]) != nla || len(g[0][0]) != nlo {
		return fmt.Errorf("grid shape does not match coordinates %dx%d", nla, nlo)
	}
	return nil
}

func stringAttr(attrs api.AttributeMap, key string) string {
	if attrs == nil {
		return ""
	}
	v, ok := attrs.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func fillValue(attrs api.AttributeMap) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	for _, key := range []string{"_FillValue", "missing_value"} {
		v, ok := attrs.Get(key)
		if !ok {
			continue
		}
		switch x := v.(type) {
		case float32:
			return float64(x), true
		case float64:
			return x, true
		case []float32:
			if len(x) > 0 {
				return float64(x[0]), true
			}
		case []float64:
			if len(x) > 0 {
				return x[0], true
			}
		}
	}
	return 0, false
}
