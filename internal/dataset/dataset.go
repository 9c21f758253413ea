// Package dataset persists the degree-day table as a compressed parquet
// file with a plain CSV mirror for downstream consumers.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/akwarm/degree-days/internal/degreedays"
)

// row is the parquet schema for one dataset row. Month is stored as unix
// seconds of the first instant of the month, UTC.
type row struct {
	Station string  `parquet:"station"`
	Month   int64   `parquet:"month"`
	HDD60   float64 `parquet:"hdd60"`
	HDD65   float64 `parquet:"hdd65"`
}

// Load reads the dataset. The file must already exist; the table is
// created externally, never by this program.
func Load(path string) ([]degreedays.MonthlyRecord, error) {
	rows, err := parquet.ReadFile[row](path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}

	records := make([]degreedays.MonthlyRecord, len(rows))
	for i, r := range rows {
		records[i] = degreedays.MonthlyRecord{
			Station: r.Station,
			Month:   time.Unix(r.Month, 0).UTC(),
			HDD60:   r.HDD60,
			HDD65:   r.HDD65,
		}
	}
	return records, nil
}

// Save rewrites the dataset and its CSV mirror. Each file is written to
// a temp file in the same directory and renamed into place, so a reader
// sees either the old or the new fully-written file.
func Save(path, csvPath string, records []degreedays.MonthlyRecord) error {
	rows := make([]row, len(records))
	for i, rec := range records {
		rows[i] = row{
			Station: rec.Station,
			Month:   rec.Month.UTC().Unix(),
			HDD60:   rec.HDD60,
			HDD65:   rec.HDD65,
		}
	}

	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, rows, parquet.Compression(&zstd.Codec{})); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write dataset %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename dataset: %w", err)
	}

	return writeMirror(csvPath, records)
}

func writeMirror(csvPath string, records []degreedays.MonthlyRecord) error {
	tmp := csvPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create mirror %s: %w", csvPath, err)
	}

	w := csv.NewWriter(f)
	writeErr := w.Write([]string{"station", "month", "hdd60", "hdd65"})
	for _, rec := range records {
		if writeErr != nil {
			break
		}
		writeErr = w.Write([]string{
			rec.Station,
			rec.Month.UTC().Format("2006-01-02"),
			strconv.FormatFloat(rec.HDD60, 'f', -1, 64),
			strconv.FormatFloat(rec.HDD65, 'f', -1, 64),
		})
	}
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("write mirror %s: %w", csvPath, writeErr)
	}

	if err := os.Rename(tmp, csvPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename mirror: %w", err)
	}
	return nil
}
