package nba

import (
	"encoding/csv"
	"fmt"
	"os"
)

// SaveCSV writes a result set to a CSV file, headers first.
func SaveCSV(rs *ResultSet, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create %s: %w", filename, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(rs.Headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	record := make([]string, len(rs.Headers))
	for _, row := range rs.Rows {
		for i := range record {
			if i < len(row) {
				record[i] = cellString(row[i])
			} else {
				record[i] = ""
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", filename, err)
	}
	return nil
}

// LoadCSV reads a CSV file written by SaveCSV back into a result set.
// All cells come back as strings.
func LoadCSV(filename string) (*ResultSet, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file", filename)
	}

	rs := &ResultSet{Headers: records[0]}
	for _, record := range records[1:] {
		row := make([]any, len(record))
		for i, cell := range record {
			row[i] = cell
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, nil
}
