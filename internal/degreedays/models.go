package degreedays

import (
	"time"
)

// MonthlyRecord is one persisted row of the degree-day dataset: heating
// degree-days for one station and one calendar month, at base 60 F and
// base 65 F. Month is the first day of the month, UTC. The dataset holds
// at most one row per (station, month).
type MonthlyRecord struct {
	Station string    `json:"station"`
	Month   time.Time `json:"month"`
	HDD60   float64   `json:"hdd60"`
	HDD65   float64   `json:"hdd65"`
}

// MonthSummary is the aggregation output for one calendar month before
// the coverage check. Coverage is the fraction of the month's hours that
// actually have data; it is never persisted.
type MonthSummary struct {
	Month    time.Time
	HDD60    float64
	HDD65    float64
	Coverage float64
}

// Stations returns the distinct stations present in rows, in
// first-encounter order.
func Stations(rows []MonthlyRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		if !seen[r.Station] {
			seen[r.Station] = true
			out = append(out, r.Station)
		}
	}
	return out
}

// LastMonth returns the most recent month recorded for station, and
// whether the station has any rows at all.
func LastMonth(rows []MonthlyRecord, station string) (time.Time, bool) {
	var last time.Time
	found := false
	for _, r := range rows {
		if r.Station != station {
			continue
		}
		if !found || r.Month.After(last) {
			last = r.Month
			found = true
		}
	}
	return last, found
}
