// Package report turns computed timelines and aggregates into flat export tables.
package report

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// DayLayout renders CFD dates.
	DayLayout = "02.01.2006"
	// TimestampLayout renders instants in IssueTimes and Transitions.
	TimestampLayout = "02.01.2006 15:04:05"
	// jiraLayout renders instants in the cycle-time table, matching the Jira API.
	jiraLayout = "2006-01-02T15:04:05.000-0700"
)

// Record is one flat row keyed by field name.
type Record map[string]any

// Table is an ordered field list plus the rows to serialize.
type Table struct {
	Fields []string
	Rows   []Record
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Strings returns the row values in field order, rendering missing fields as "".
func (t Table) Strings(r Record) []string {
	out := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		out[i] = Format(r[f])
	}
	return out
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

// Format renders a cell value as text.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return formatTime(x, TimestampLayout)
	default:
		return fmt.Sprint(x)
	}
}
