package degreedays

import (
	"context"
	"log/slog"
	"time"

	"github.com/akwarm/degree-days/internal/bmon"
)

// TemperatureSource is the part of the BMON client the service needs.
type TemperatureSource interface {
	Readings(ctx context.Context, sensorID string, start time.Time) ([]bmon.Reading, error)
}

// Service computes monthly degree-day summaries from a temperature
// source and merges accepted months into an existing dataset. It owns no
// state across calls.
type Service struct {
	source      TemperatureSource
	minCoverage float64
	logger      *slog.Logger
}

// NewService creates a Service. minCoverage is the fraction of a month's
// hours that must have data before the month is accepted (strictly
// greater-than).
func NewService(source TemperatureSource, minCoverage float64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:      source,
		minCoverage: minCoverage,
		logger:      logger,
	}
}

// MonthlySummaries returns degree-day summaries for station for every
// month from the month containing start through the most recent month
// the remote source has data for. The BMON sensor for a station's
// temperature is the station code with "_temp" appended.
func (s *Service) MonthlySummaries(ctx context.Context, station string, start time.Time) ([]MonthSummary, error) {
	readings, err := s.source.Readings(ctx, station+"_temp", MonthStart(start))
	if err != nil {
		return nil, err
	}
	return Aggregate(readings), nil
}
