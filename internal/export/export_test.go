package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jira-flow/internal/report"
	"jira-flow/internal/stats"
	"jira-flow/internal/timeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioCFD() stats.CFDResult {
	at := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02 15:04", s)
		return t
	}
	tl := timeline.Timeline{
		{Status: "Open", Timestamp: at("2025-11-01 09:00")},
		{Status: "In Progress", Timestamp: at("2025-11-02 09:00")},
		{Status: "Done", Timestamp: at("2025-11-04 09:00")},
	}
	end := at("2025-11-05 00:00")
	return stats.CalculateCFD([]timeline.Timeline{tl}, stats.CFDWindow{End: &end})
}

func TestCSVRoundTrip(t *testing.T) {
	table := report.CFDTable(scenarioCFD(), nil)
	path := filepath.Join(t.TempDir(), "out", "PROJ_CFD.csv")

	require.NoError(t, Write(table, path, FormatCSV, ','))

	back, err := ReadCSV(path, ',')
	require.NoError(t, err)
	assert.Equal(t, table.Fields, back.Fields)
	require.Len(t, back.Rows, len(table.Rows))
	for i, row := range table.Rows {
		for _, f := range table.Fields {
			assert.Equal(t, report.Format(row[f]), back.Rows[i][f], "row %d field %s", i, f)
		}
	}

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}

func TestWriteCSV_SemicolonAndMissingFields(t *testing.T) {
	table := report.Table{
		Fields: []string{"Key", "Transition", "Timestamp"},
		Rows: []report.Record{
			{"Key": "P-1", "Transition": "In Progress", "Timestamp": "02.11.2025 09:00:00"},
			{"Key": "P-2", "Transition": "Open"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table, ';'))

	want := "Key;Transition;Timestamp\nP-1;In Progress;02.11.2025 09:00:00\nP-2;Open;\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_QuotesDelimiters(t *testing.T) {
	table := report.Table{
		Fields: []string{"Component"},
		Rows:   []report.Record{{"Component": "a,b|"}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table, ','))
	assert.Equal(t, "Component\n\"a,b|\"\n", buf.String())
}

func TestExcelRoundTrip(t *testing.T) {
	table := report.Table{
		Fields: []string{"Key", "Open", "Resolution"},
		Rows: []report.Record{
			{"Key": "P-1", "Open": int64(86400000), "Resolution": "Fixed"},
			{"Key": "P-2", "Open": int64(1000)},
		},
	}
	path := filepath.Join(t.TempDir(), "PROJ_IssueTimes"+FormatExcel.Extension())

	require.NoError(t, Write(table, path, FormatExcel, 0))

	back, err := ReadExcel(path)
	require.NoError(t, err)
	assert.Equal(t, table.Fields, back.Fields)
	require.Len(t, back.Rows, 2)
	assert.Equal(t, "P-1", back.Rows[0]["Key"])
	assert.Equal(t, "86400000", back.Rows[0]["Open"])
	assert.Equal(t, "", back.Rows[1]["Resolution"])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	assert.Equal(t, ".csv", f.Extension())

	f, err = ParseFormat("excel")
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", f.Extension())

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestCFDChart(t *testing.T) {
	res := scenarioCFD()
	chart := CFDChart(res, []string{"Done", "In Progress", "Open"})

	assert.True(t, strings.HasPrefix(chart, "```mermaid\nxychart-beta\n"))
	assert.Contains(t, chart, `x-axis ["2025-11-01", "2025-11-02", "2025-11-03", "2025-11-04", "2025-11-05"]`)
	assert.Equal(t, 3, strings.Count(chart, "    line ["))
	// top band is the cumulative total: one issue every day
	assert.Contains(t, chart, "line [1, 1, 1, 1, 1]")
	// bottom band is Done only
	assert.Contains(t, chart, "line [0, 0, 0, 1, 1]")

	assert.Empty(t, CFDChart(stats.CFDResult{}, nil))
}

func TestCFDChart_SamplesLongRanges(t *testing.T) {
	start, _ := time.Parse("2006-01-02", "2025-01-06")
	tl := timeline.Timeline{{Status: "Open", Timestamp: start}}
	end := start.AddDate(0, 0, 139)
	res := stats.CalculateCFD([]timeline.Timeline{tl}, stats.CFDWindow{End: &end})

	chart := CFDChart(res, nil)
	assert.Contains(t, chart, `"2025-W02"`)
	assert.Contains(t, chart, "line [1, 1,")
}

func TestWriteCFDChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfd.md")
	require.NoError(t, WriteCFDChart(scenarioCFD(), nil, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Cumulative Flow")
}
