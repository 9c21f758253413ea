package degreedays

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/akwarm/degree-days/internal/bmon"
)

type sourceCall struct {
	sensor string
	start  time.Time
}

// stubSource serves canned readings per sensor, filtered by start the
// way the real API is, and records every call it sees.
type stubSource struct {
	readings map[string][]bmon.Reading
	errs     map[string]error
	calls    []sourceCall
}

func (s *stubSource) Readings(ctx context.Context, sensorID string, start time.Time) ([]bmon.Reading, error) {
	s.calls = append(s.calls, sourceCall{sensor: sensorID, start: start})
	if err := s.errs[sensorID]; err != nil {
		return nil, err
	}
	var out []bmon.Reading
	for _, r := range s.readings[sensorID] {
		if !r.Timestamp.Before(start) {
			out = append(out, r)
		}
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestUpdateCoverageThreshold(t *testing.T) {
	existing := []MonthlyRecord{
		{Station: "PAED", Month: month(2018, time.February), HDD60: 1257.65, HDD65: 1397.65},
	}

	// March: 670 of 744 hours (0.90). April: 504 of 720 hours, which is
	// exactly 0.7 and must be rejected by the strict comparison.
	src := &stubSource{readings: map[string][]bmon.Reading{
		"PAED_temp": append(
			hourly(month(2018, time.March), 670, 30),
			hourly(month(2018, time.April), 504, 30)...,
		),
	}}

	svc := NewService(src, 0.7, testLogger())
	merged, results := svc.Update(context.Background(), existing)

	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("unexpected results: %+v", results)
	}
	if len(merged) != 2 {
		t.Fatalf("merged has %d rows, want 2 (Feb, Mar)", len(merged))
	}
	if !merged[1].Month.Equal(month(2018, time.March)) {
		t.Fatalf("second row month = %v, want March", merged[1].Month)
	}
	for _, r := range merged {
		if r.Month.Equal(month(2018, time.April)) {
			t.Fatal("April must not be merged at coverage exactly 0.7")
		}
	}

	// The fetch must start at the first day of the month after the last
	// recorded one, and ask for the station's temperature sensor.
	if len(src.calls) != 1 {
		t.Fatalf("expected 1 source call, got %d", len(src.calls))
	}
	if src.calls[0].sensor != "PAED_temp" {
		t.Fatalf("sensor = %q, want PAED_temp", src.calls[0].sensor)
	}
	if !src.calls[0].start.Equal(month(2018, time.March)) {
		t.Fatalf("start = %v, want 2018-03-01", src.calls[0].start)
	}
}

func TestUpdateFailureIsolation(t *testing.T) {
	existing := []MonthlyRecord{
		{Station: "PAXX", Month: month(2018, time.January), HDD60: 100, HDD65: 120},
		{Station: "PAYY", Month: month(2018, time.January), HDD60: 200, HDD65: 230},
	}

	src := &stubSource{
		readings: map[string][]bmon.Reading{
			"PAYY_temp": append(
				hourly(month(2018, time.February), 672, 30),
				hourly(month(2018, time.March), 744, 30)...,
			),
		},
		errs: map[string]error{
			"PAXX_temp": &bmon.RemoteError{Payload: json.RawMessage(`"no such sensor"`)},
		},
	}

	svc := NewService(src, 0.7, testLogger())
	merged, results := svc.Update(context.Background(), existing)

	if results[0].Err == nil {
		t.Fatal("expected error result for PAXX")
	}
	if results[1].Err != nil || len(results[1].Added) != 2 {
		t.Fatalf("PAYY result = %+v, want 2 added months", results[1])
	}

	var xRows, yRows int
	for _, r := range merged {
		switch r.Station {
		case "PAXX":
			xRows++
		case "PAYY":
			yRows++
		}
	}
	if xRows != 1 {
		t.Fatalf("PAXX has %d rows, want unchanged 1", xRows)
	}
	if yRows != 3 {
		t.Fatalf("PAYY has %d rows, want 3", yRows)
	}
}

func TestUpdateMergeOrdering(t *testing.T) {
	// Existing index order is B before A; output must be sorted by
	// station then month regardless.
	existing := []MonthlyRecord{
		{Station: "PBBB", Month: month(2018, time.January), HDD60: 1, HDD65: 2},
		{Station: "PAAA", Month: month(2018, time.January), HDD60: 3, HDD65: 4},
	}

	feb := hourly(month(2018, time.February), 672, 30)
	src := &stubSource{readings: map[string][]bmon.Reading{
		"PBBB_temp": feb,
		"PAAA_temp": feb,
	}}

	svc := NewService(src, 0.7, testLogger())
	merged, _ := svc.Update(context.Background(), existing)

	if len(merged) != 4 {
		t.Fatalf("merged has %d rows, want 4", len(merged))
	}
	for i := 1; i < len(merged); i++ {
		prev, cur := merged[i-1], merged[i]
		if prev.Station > cur.Station {
			t.Fatalf("stations out of order at %d: %s > %s", i, prev.Station, cur.Station)
		}
		if prev.Station == cur.Station && prev.Month.After(cur.Month) {
			t.Fatalf("months out of order at %d for %s", i, cur.Station)
		}
	}
	if merged[0].Station != "PAAA" || merged[3].Station != "PBBB" {
		t.Fatalf("unexpected station order: %s ... %s", merged[0].Station, merged[3].Station)
	}
}

func TestUpdateIdempotent(t *testing.T) {
	existing := []MonthlyRecord{
		{Station: "PAED", Month: month(2018, time.February), HDD60: 1257.65, HDD65: 1397.65},
	}
	src := &stubSource{readings: map[string][]bmon.Reading{
		"PAED_temp": hourly(month(2018, time.March), 744, 30),
	}}

	svc := NewService(src, 0.7, testLogger())

	first, _ := svc.Update(context.Background(), existing)
	second, results := svc.Update(context.Background(), first)

	if results[0].Err != nil {
		t.Fatalf("second run errored: %v", results[0].Err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("second run changed the dataset:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestUpdateNoNewMonthsIsNoop(t *testing.T) {
	existing := []MonthlyRecord{
		{Station: "PAMR", Month: month(2018, time.June), HDD60: 10, HDD65: 20},
	}
	src := &stubSource{readings: map[string][]bmon.Reading{}}

	svc := NewService(src, 0.7, testLogger())
	merged, results := svc.Update(context.Background(), existing)

	if results[0].Err != nil {
		t.Fatalf("empty remote data must not be an error: %v", results[0].Err)
	}
	if !reflect.DeepEqual(merged, existing) {
		t.Fatalf("dataset changed with no new data: %+v", merged)
	}
}

func TestStationsEncounterOrder(t *testing.T) {
	rows := []MonthlyRecord{
		{Station: "PBBB"},
		{Station: "PAAA"},
		{Station: "PBBB"},
		{Station: "PCCC"},
	}
	got := Stations(rows)
	want := []string{"PBBB", "PAAA", "PCCC"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Stations = %v, want %v", got, want)
	}
}

func TestLastMonth(t *testing.T) {
	rows := []MonthlyRecord{
		{Station: "PAED", Month: month(2018, time.March)},
		{Station: "PAED", Month: month(2018, time.February)},
	}
	last, ok := LastMonth(rows, "PAED")
	if !ok || !last.Equal(month(2018, time.March)) {
		t.Fatalf("LastMonth = %v, %v; want March, true", last, ok)
	}
	if _, ok := LastMonth(rows, "PAMR"); ok {
		t.Fatal("LastMonth should report absence for unknown station")
	}
}
