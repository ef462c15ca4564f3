package export

import (
	"fmt"

	"jira-flow/internal/report"

	"github.com/xuri/excelize/v2"
)

const (
	sheetName     = "Report"
	maxColumnWide = 50
)

// WriteExcel writes t as a single-sheet workbook with a header row.
// Column widths approximate the longest value, capped at 50.
func WriteExcel(t report.Table, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(t.Fields))
	widths := make([]int, len(t.Fields))
	for i, name := range t.Fields {
		header[i] = name
		widths[i] = len(name)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for r, rec := range t.Rows {
		values := make([]any, len(t.Fields))
		for i, name := range t.Fields {
			v, ok := rec[name]
			if !ok || v == nil {
				v = ""
			}
			values[i] = v
			widths[i] = max(widths[i], len(report.Format(v)))
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheetName, col, col, float64(min(w+2, maxColumnWide))); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// ReadExcel reads the first sheet of a workbook written by WriteExcel.
func ReadExcel(path string) (report.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return report.Table{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return report.Table{}, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return report.Table{}, nil
	}

	t := report.Table{Fields: rows[0]}
	for _, rec := range rows[1:] {
		row := make(report.Record, len(t.Fields))
		for i, name := range t.Fields {
			row[name] = ""
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
