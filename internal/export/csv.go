package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"jira-flow/internal/report"
)

// WriteCSV writes a header row followed by one line per record.
func WriteCSV(w io.Writer, t report.Table, comma rune) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	if comma != 0 {
		cw.Comma = comma
	}

	if err := cw.Write(t.Fields); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range t.Rows {
		if err := cw.Write(t.Strings(r)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return bw.Flush()
}

// ReadCSV reads a file written by WriteCSV back into a table of string values.
func ReadCSV(path string, comma rune) (report.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return report.Table{}, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(bufio.NewReader(f))
	if comma != 0 {
		cr.Comma = comma
	}
	records, err := cr.ReadAll()
	if err != nil {
		return report.Table{}, fmt.Errorf("failed to parse csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return report.Table{}, nil
	}

	t := report.Table{Fields: records[0]}
	for _, rec := range records[1:] {
		row := make(report.Record, len(t.Fields))
		for i, f := range t.Fields {
			if i < len(rec) {
				row[f] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
