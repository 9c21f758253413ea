package degreedays

import (
	"context"
	"sort"
)

// StationResult is the outcome of updating a single station. A failed
// station carries its error here instead of aborting the run.
type StationResult struct {
	Station string
	Added   []MonthlyRecord
	Err     error
}

// Update fetches and stages new months for every station present in the
// existing dataset, one station at a time, in first-encounter order. A
// station whose fetch fails is logged and skipped; the dataset is left
// unchanged for that station and its stale last month gets it retried on
// the next run. The returned rows are the existing rows plus all
// accepted new months, sorted ascending by (station, month).
func (s *Service) Update(ctx context.Context, existing []MonthlyRecord) ([]MonthlyRecord, []StationResult) {
	stations := Stations(existing)
	results := make([]StationResult, 0, len(stations))

	var staged []MonthlyRecord
	for _, station := range stations {
		res := s.updateStation(ctx, station, existing)
		results = append(results, res)

		if res.Err != nil {
			s.logger.Error("station update failed", "station", station, "error", res.Err)
			continue
		}
		if len(res.Added) > 0 {
			s.logger.Info("station updated", "station", station, "newMonths", len(res.Added))
			staged = append(staged, res.Added...)
		}
	}

	merged := make([]MonthlyRecord, 0, len(existing)+len(staged))
	merged = append(merged, existing...)
	merged = append(merged, staged...)
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Station != merged[j].Station {
			return merged[i].Station < merged[j].Station
		}
		return merged[i].Month.Before(merged[j].Month)
	})
	return merged, results
}

func (s *Service) updateStation(ctx context.Context, station string, existing []MonthlyRecord) StationResult {
	last, ok := LastMonth(existing, station)
	if !ok {
		return StationResult{Station: station}
	}

	// Overshoot well past the end of the last recorded month (which may
	// contain a DST change); MonthlySummaries floors the anchor back to
	// the first of the following month.
	anchor := last.AddDate(0, 0, 32)

	summaries, err := s.MonthlySummaries(ctx, station, anchor)
	if err != nil {
		return StationResult{Station: station, Err: err}
	}

	var added []MonthlyRecord
	for _, m := range summaries {
		if m.Coverage > s.minCoverage {
			added = append(added, MonthlyRecord{
				Station: station,
				Month:   m.Month,
				HDD60:   m.HDD60,
				HDD65:   m.HDD65,
			})
		}
	}
	return StationResult{Station: station, Added: added}
}
