package launch

import (
	"fmt"
	"math"
	"time"
)

// Unit is a relative time bucket.
type Unit string

const (
	UnitSecond Unit = "second"
	UnitMinute Unit = "minute"
	UnitHour   Unit = "hour"
	UnitDay    Unit = "day"
	UnitMonth  Unit = "month"
	UnitYear   Unit = "year"
)

// Bucket picks the unit for the distance between then and now and returns
// the signed, rounded amount (negative for the past). Months are 30 days
// and years are 12 such months.
func Bucket(then, now time.Time) (int, Unit) {
	diff := now.Sub(then).Seconds()
	abs := math.Abs(diff)
	sign := -1.0
	if diff < 0 {
		sign = 1.0
	}

	steps := []struct {
		div   float64
		limit float64
		unit  Unit
	}{
		{1, 60, UnitSecond},
		{60, 60, UnitMinute},
		{60, 24, UnitHour},
		{24, 30, UnitDay},
		{30, 12, UnitMonth},
	}

	v := abs
	for _, s := range steps {
		v /= s.div
		if v < s.limit {
			return int(math.Round(v) * sign), s.unit
		}
	}
	v /= 12
	return int(math.Round(v) * sign), UnitYear
}

// RelativeTime renders the distance between then and now in English,
// using words such as "yesterday" where one exists.
func RelativeTime(then, now time.Time) string {
	n, unit := Bucket(then, now)
	return FormatRelative(n, unit)
}

// FormatRelative formats a signed amount of a unit.
func FormatRelative(n int, unit Unit) string {
	if s, ok := relativeWords[unit][n]; ok {
		return s
	}
	switch {
	case n < 0:
		return fmt.Sprintf("%d %s ago", -n, plural(unit, -n))
	default:
		return fmt.Sprintf("in %d %s", n, plural(unit, n))
	}
}

var relativeWords = map[Unit]map[int]string{
	UnitSecond: {0: "now"},
	UnitMinute: {0: "this minute"},
	UnitHour:   {0: "this hour"},
	UnitDay:    {-1: "yesterday", 0: "today", 1: "tomorrow"},
	UnitMonth:  {-1: "last month", 0: "this month", 1: "next month"},
	UnitYear:   {-1: "last year", 0: "this year", 1: "next year"},
}

func plural(u Unit, n int) string {
	if n == 1 {
		return string(u)
	}
	return string(u) + "s"
}
