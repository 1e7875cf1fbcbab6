package climate

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Instants outside this range do not fit int64 nanoseconds since 1970 and
// are not accepted by most time series tooling.
var (
	minTime = time.Unix(0, math.MinInt64).UTC()
	maxTime = time.Unix(0, math.MaxInt64).UTC()
)

var errOutOfRange = errors.New("time axis outside the standard calendar range")

const secsPerDay = 86400

var unitSeconds = map[string]float64{
	"days": secsPerDay, "day": secsPerDay, "d": secsPerDay,
	"hours": 3600, "hour": 3600, "hrs": 3600, "hr": 3600, "h": 3600,
	"minutes": 60, "minute": 60, "mins": 60, "min": 60,
	"seconds": 1, "second": 1, "secs": 1, "sec": 1, "s": 1,
}

// timeUnits is a parsed CF "<unit> since <epoch>" attribute. The epoch is
// kept as calendar fields since it may not exist in the Gregorian calendar.
type timeUnits struct {
	secs             float64
	year, month, day int
	secOfDay         float64
}

func parseTimeUnits(s string) (timeUnits, error) {
	var u timeUnits
	fields := strings.Fields(strings.Replace(strings.TrimSpace(s), "T", " ", 1))
	if len(fields) < 3 || strings.ToLower(fields[1]) != "since" {
		return u, fmt.Errorf("malformed time units %q", s)
	}
	var ok bool
	if u.secs, ok = unitSeconds[strings.ToLower(fields[0])]; !ok {
		return u, fmt.Errorf("unknown time unit %q", fields[0])
	}
	date := strings.Split(fields[2], "-")
	if len(date) != 3 {
		return u, fmt.Errorf("malformed epoch date %q", fields[2])
	}
	var err error
	if u.year, err = strconv.Atoi(date[0]); err != nil {
		return u, fmt.Errorf("malformed epoch year %q", date[0])
	}
	if u.month, err = strconv.Atoi(date[1]); err != nil || u.month < 1 || u.month > 12 {
		return u, fmt.Errorf("malformed epoch month %q", date[1])
	}
	if u.day, err = strconv.Atoi(date[2]); err != nil || u.day < 1 || u.day > 31 {
		return u, fmt.Errorf("malformed epoch day %q", date[2])
	}
	if len(fields) > 3 {
		clock := strings.TrimSuffix(fields[3], "Z")
		mult := 3600.0
		for _, part := range strings.Split(clock, ":") {
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return u, fmt.Errorf("malformed epoch time %q", fields[3])
			}
			u.secOfDay += v * mult
			mult /= 60
		}
	}
	return u, nil
}

var (
	cumDaysNoLeap  = [13]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334, 365}
	cumDaysAllLeap = [13]int{0, 31, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335, 366}
)

// decodeTimes converts raw axis values into instants in the given CF
// calendar. The standard calendars are decoded as proleptic Gregorian.
func decodeTimes(vals []float64, units, calendar string) ([]time.Time, error) {
	u, err := parseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	var cum *[13]int
	switch strings.ToLower(calendar) {
	case "", "standard", "gregorian", "proleptic_gregorian":
	case "noleap", "365_day":
		cum = &cumDaysNoLeap
	case "all_leap", "366_day":
		cum = &cumDaysAllLeap
	default:
		return nil, fmt.Errorf("unsupported calendar %q", calendar)
	}

	ts := make([]time.Time, len(vals))
	for k, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite time value at index %d", k)
		}
		secs := v*u.secs + u.secOfDay
		days := math.Floor(secs / secsPerDay)
		rem := time.Duration((secs - days*secsPerDay) * float64(time.Second))
		if math.Abs(days) > 1e9 {
			return nil, errOutOfRange
		}
		var t time.Time
		if cum == nil {
			t = time.Date(u.year, time.Month(u.month), u.day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(days))
		} else {
			t = fixedYearDate(cum, u.year, u.month, u.day, int(days))
		}
		ts[k] = t.Add(rem)
	}
	return ts, nil
}

// fixedYearDate adds days to a date in a calendar whose years all have
// cum[12] days, returning the matching Gregorian calendar fields.
func fixedYearDate(cum *[13]int, year, month, day, days int) time.Time {
	yearLen := cum[12]
	total := year*yearLen + cum[month-1] + day - 1 + days
	y := floorDiv(total, yearLen)
	doy := total - y*yearLen
	m := 1
	for doy >= cum[m] {
		m++
	}
	return time.Date(y, time.Month(m), doy-cum[m-1]+1, 0, 0, 0, 0, time.UTC)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func inStandardRange(ts []time.Time) bool {
	for _, t := range ts {
		if t.Before(minTime) || t.After(maxTime) {
			return false
		}
	}
	return true
}

// monthsPerUnit covers CF calendar units, which have no fixed length in
// seconds.
var monthsPerUnit = map[string]float64{
	"months": 1, "month": 1,
	"years": 12, "year": 12, "common_years": 12, "common_year": 12,
}

// rebaseTimes builds n instants starting at start with the spacing of the
// raw axis. Monthly axes are stamped at month end minus 15 days. An axis
// whose unit is unknown is taken as monthly.
func rebaseTimes(vals []float64, units string, start time.Time) []time.Time {
	ts := make([]time.Time, len(vals))
	stepMonths := 1
	if len(vals) > 1 {
		delta := vals[1] - vals[0]
		unit := ""
		if fields := strings.Fields(units); len(fields) > 0 {
			unit = strings.ToLower(fields[0])
		}
		if secs, ok := unitSeconds[unit]; ok {
			stepSecs := delta * secs
			if stepSecs < 28*secsPerDay || stepSecs > 31*secsPerDay {
				return fixedStep(ts, start, stepSecs)
			}
		} else if m, ok := monthsPerUnit[unit]; ok {
			stepMonths = max(int(math.Round(delta*m)), 1)
		}
	}
	for i := range ts {
		monthEnd := time.Date(start.Year(), start.Month()+time.Month(i*stepMonths)+1, 0, 0, 0, 0, 0, time.UTC)
		ts[i] = monthEnd.AddDate(0, 0, -15)
	}
	return ts
}

func fixedStep(ts []time.Time, start time.Time, stepSecs float64) []time.Time {
	days := int(stepSecs / secsPerDay)
	rem := time.Duration((stepSecs - float64(days)*secsPerDay) * float64(time.Second))
	for i := range ts {
		ts[i] = start.AddDate(0, 0, i*days).Add(time.Duration(i) * rem)
	}
	return ts
}
