package degreedays

import (
	"sort"
	"time"

	"github.com/akwarm/degree-days/internal/bmon"
)

// Base temperatures (deg F) for the two heating degree-day series.
const (
	base60 = 60.0
	base65 = 65.0
)

// MonthStart floors t to the first instant of its calendar month, UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// hoursInMonth returns days-in-month * 24 for the month starting at m.
func hoursInMonth(m time.Time) int {
	// day 0 of the next month is the last day of this one
	days := time.Date(m.Year(), m.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return days * 24
}

// Aggregate reduces hourly temperature readings to per-month degree-day
// totals and a coverage fraction. Readings are bucketed by calendar
// month; months with no readings are absent from the result (no forward
// fill). Within a month, the per-hour degree-day values are averaged
// over the hours present and scaled by the full hour count of the month,
// so missing hours are assumed to behave like the average of the hours
// that do have data rather than being zero-filled. Results are sorted by
// month ascending and labeled with the first day of the month.
func Aggregate(readings []bmon.Reading) []MonthSummary {
	type bucket struct {
		count int
		sum60 float64
		sum65 float64
	}

	buckets := make(map[time.Time]*bucket)
	for _, r := range readings {
		m := MonthStart(r.Timestamp)
		b := buckets[m]
		if b == nil {
			b = &bucket{}
			buckets[m] = b
		}
		b.count++
		if r.Value < base60 {
			b.sum60 += (base60 - r.Value) / 24.0
		}
		if r.Value < base65 {
			b.sum65 += (base65 - r.Value) / 24.0
		}
	}

	out := make([]MonthSummary, 0, len(buckets))
	for m, b := range buckets {
		hours := float64(hoursInMonth(m))
		n := float64(b.count)
		out = append(out, MonthSummary{
			Month:    m,
			HDD60:    b.sum60 / n * hours,
			HDD65:    b.sum65 / n * hours,
			Coverage: n / hours,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}
