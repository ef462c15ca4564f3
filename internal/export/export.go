// Package export serializes report tables to CSV, Excel and Mermaid charts.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"jira-flow/internal/report"

	"github.com/rs/zerolog/log"
)

// Format selects the output file type.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// ErrUnknownFormat is returned for format names other than csv and excel.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates a format name. An empty name selects CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatExcel:
		return FormatExcel, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	if f == FormatExcel {
		return ".xlsx"
	}
	return ".csv"
}

// Write serializes t to path in the given format. comma is the CSV delimiter
// and is ignored for Excel.
func Write(t report.Table, path string, format Format, comma rune) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var err error
	switch format {
	case FormatExcel:
		err = WriteExcel(t, path)
	case FormatCSV, "":
		err = writeFileAtomic(path, func(f *os.File) error { return WriteCSV(f, t, comma) })
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return err
	}

	log.Info().Str("path", path).Int("rows", t.Len()).Str("format", string(format)).Msg("Report written")
	return nil
}

// writeFileAtomic writes through a temp file that is renamed into place.
func writeFileAtomic(path string, write func(f *os.File) error) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := write(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename output file: %w", err)
	}
	return nil
}
