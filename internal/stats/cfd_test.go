package stats

import (
	"slices"
	"testing"
	"time"

	"jira-flow/internal/timeline"
)

func ptr(t time.Time) *time.Time { return &t }

func TestCalculateCFD(t *testing.T) {
	tl := timeline.Timeline{
		{Status: "Open", Timestamp: day("2025-11-01 09:00")},
		{Status: "In Progress", Timestamp: day("2025-11-02 10:00")},
		{Status: "Done", Timestamp: day("2025-11-04 11:00")},
	}

	res := CalculateCFD([]timeline.Timeline{tl}, CFDWindow{
		Start: ptr(day("2025-11-01")),
		End:   ptr(day("2025-11-05")),
	})

	want := []struct {
		date   string
		status string
	}{
		{"2025-11-01", "Open"},
		{"2025-11-02", "In Progress"},
		{"2025-11-03", "In Progress"},
		{"2025-11-04", "Done"},
		{"2025-11-05", "Done"},
	}
	if len(res.Days) != len(want) {
		t.Fatalf("got %d days, want %d", len(res.Days), len(want))
	}
	for i, w := range want {
		d := res.Days[i]
		if !d.Date.Equal(day(w.date)) {
			t.Errorf("day %d = %v, want %s", i, d.Date, w.date)
		}
		if len(d.Counts) != 1 || d.Counts[w.status] != 1 {
			t.Errorf("%s counts = %v, want {%s:1}", w.date, d.Counts, w.status)
		}
	}
}

func TestCalculateCFD_DerivedWindowAndPopulation(t *testing.T) {
	timelines := []timeline.Timeline{
		{
			{Status: "Open", Timestamp: day("2025-11-01 09:00")},
			{Status: "In Progress", Timestamp: day("2025-11-02 09:00")},
		},
		{
			{Status: "Open", Timestamp: day("2025-11-03 09:00")},
			// same-day transitions resolve to the chronologically last
			{Status: "In Progress", Timestamp: day("2025-11-03 10:00")},
			{Status: "Review", Timestamp: day("2025-11-03 17:00")},
		},
		nil,
	}

	res := CalculateCFD(timelines, CFDWindow{})

	// N+1 rows for an N-day span
	if len(res.Days) != 3 {
		t.Fatalf("got %d days, want 3", len(res.Days))
	}
	if got := res.Days[0].Counts; got["Open"] != 1 || len(got) != 1 {
		t.Errorf("day 1 = %v (unborn issues must not count)", got)
	}
	if got := res.Days[2].Counts; got["In Progress"] != 1 || got["Review"] != 1 || got["Open"] != 0 {
		t.Errorf("day 3 = %v", got)
	}

	if got := res.Statuses(); !slices.Equal(got, []string{"In Progress", "Open", "Review"}) {
		t.Errorf("Statuses() = %v", got)
	}
}

func TestCalculateCFD_EmptyDaysStillAppear(t *testing.T) {
	tl := timeline.Timeline{{Status: "Open", Timestamp: day("2025-11-05 09:00")}}

	res := CalculateCFD([]timeline.Timeline{tl}, CFDWindow{Start: ptr(day("2025-11-01"))})

	if len(res.Days) != 5 {
		t.Fatalf("got %d days, want 5", len(res.Days))
	}
	for _, d := range res.Days[:4] {
		if d.Counts == nil || len(d.Counts) != 0 {
			t.Errorf("%v should have an empty count map, got %v", d.Date, d.Counts)
		}
	}
	if res.Days[4].Counts["Open"] != 1 {
		t.Errorf("last day = %v", res.Days[4].Counts)
	}
}

func TestCalculateCFD_CountsConserved(t *testing.T) {
	timelines := []timeline.Timeline{
		{{Status: "A", Timestamp: day("2025-11-01 09:00")}, {Status: "B", Timestamp: day("2025-11-03 09:00")}},
		{{Status: "A", Timestamp: day("2025-11-01 12:00")}},
		{{Status: "B", Timestamp: day("2025-11-02 12:00")}, {Status: "C", Timestamp: day("2025-11-06 12:00")}},
	}
	res := CalculateCFD(timelines, CFDWindow{End: ptr(day("2025-11-08"))})

	for _, d := range res.Days {
		born := 0
		for _, tl := range timelines {
			if !DateOf(tl[0].Timestamp).After(d.Date) {
				born++
			}
		}
		total := 0
		for _, n := range d.Counts {
			total += n
		}
		if total != born {
			t.Errorf("%v: counted %d issues, %d born", d.Date, total, born)
		}
	}
}

func TestCalculateCFD_NoEntries(t *testing.T) {
	res := CalculateCFD([]timeline.Timeline{nil, {}}, CFDWindow{})
	if len(res.Days) != 0 {
		t.Errorf("expected empty result, got %d days", len(res.Days))
	}
}

func TestWindow_Subdivide(t *testing.T) {
	w := NewWindow(day("2025-11-01 15:00"), day("2025-11-03 01:00"), "day")
	buckets := w.Subdivide()
	if len(buckets) != 3 {
		t.Fatalf("got %d buckets, want 3", len(buckets))
	}
	if w.GenerateLabel(buckets[0]) != "2025-11-01" {
		t.Errorf("label = %s", w.GenerateLabel(buckets[0]))
	}

	weeks := NewWindow(day("2025-11-05"), day("2025-11-20"), "week")
	if got := weeks.Subdivide(); len(got) != 3 || got[0].Weekday() != time.Monday {
		t.Errorf("weekly buckets = %v", got)
	}
}
