package measurement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Column names recognised in CSV headers.
const (
	ColAzimuth   = "azimuth"
	ColElevation = "elevation"
	ColRange     = "range"
	ColTimestamp = "timestamp"
	ColDoppler   = "doppler"
)

// ErrMissingColumn is returned when a required CSV column is absent.
var ErrMissingColumn = errors.New("missing required column")

// LoadCSVFile reads measurements from the CSV file at path.
func LoadCSVFile(path string) ([]Measurement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open measurements file: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV reads measurements from CSV data with a header row naming at least
// the azimuth, elevation, range and timestamp columns. Column order is free.
// A doppler column is optional; when absent every row gets DefaultDoppler.
// Rows are returned in file order.
func LoadCSV(r io.Reader) ([]Measurement, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read header: %w", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range []string{ColAzimuth, ColElevation, ColRange, ColTimestamp} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	dopplerIdx, hasDoppler := idx[ColDoppler]

	var out []Measurement
	row := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		field := func(col string) (float64, error) {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[col]]), 64)
			if err != nil {
				return 0, fmt.Errorf("row %d: failed to parse %s: %w", row, col, err)
			}
			return v, nil
		}

		var m Measurement
		if m.Azimuth, err = field(ColAzimuth); err != nil {
			return nil, err
		}
		if m.Elevation, err = field(ColElevation); err != nil {
			return nil, err
		}
		if m.Range, err = field(ColRange); err != nil {
			return nil, err
		}
		if m.Timestamp, err = field(ColTimestamp); err != nil {
			return nil, err
		}
		m.Doppler = DefaultDoppler
		if hasDoppler && strings.TrimSpace(rec[dopplerIdx]) != "" {
			if m.Doppler, err = field(ColDoppler); err != nil {
				return nil, err
			}
		}
		if !m.IsFinite() {
			return nil, fmt.Errorf("row %d: non-finite value in %+v", row, m)
		}
		out = append(out, m)
	}
	return out, nil
}

// WriteCSV writes measurements with a full header including doppler.
func WriteCSV(w io.Writer, ms []Measurement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColAzimuth, ColElevation, ColRange, ColTimestamp, ColDoppler}); err != nil {
		return err
	}
	for _, m := range ms {
		rec := []string{
			strconv.FormatFloat(m.Azimuth, 'g', -1, 64),
			strconv.FormatFloat(m.Elevation, 'g', -1, 64),
			strconv.FormatFloat(m.Range, 'g', -1, 64),
			strconv.FormatFloat(m.Timestamp, 'g', -1, 64),
			strconv.FormatFloat(m.Doppler, 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
