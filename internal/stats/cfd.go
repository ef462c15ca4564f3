package stats

import (
	"slices"
	"time"

	"jira-flow/internal/timeline"
)

// CFDWindow bounds the simulated date range. A nil bound is derived from the data.
type CFDWindow struct {
	Start *time.Time
	End   *time.Time
}

// CFDDay holds the status population at the end of one calendar day.
type CFDDay struct {
	Date   time.Time
	Counts map[string]int
}

// CFDResult is the ascending list of simulated days.
type CFDResult struct {
	Days []CFDDay
}

// Statuses returns the sorted set of statuses present in any day.
func (r CFDResult) Statuses() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range r.Days {
		for s := range d.Counts {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	slices.Sort(out)
	return out
}

// CalculateCFD reconstructs the status population for every day in the window.
// For each day an issue counts under the status of its last entry dated on or
// before that day; issues with no entry yet are not counted.
func CalculateCFD(timelines []timeline.Timeline, window CFDWindow) CFDResult {
	var first, last time.Time
	for _, tl := range timelines {
		for _, e := range tl {
			d := DateOf(e.Timestamp)
			if first.IsZero() || d.Before(first) {
				first = d
			}
			if last.IsZero() || d.After(last) {
				last = d
			}
		}
	}
	if first.IsZero() {
		return CFDResult{}
	}
	if window.Start != nil {
		first = DateOf(*window.Start)
	}
	if window.End != nil {
		last = DateOf(*window.End)
	}

	// cursor[i] is the number of entries of timelines[i] dated on or before the current day
	cursor := make([]int, len(timelines))
	days := NewWindow(first, last, "day").Subdivide()
	result := CFDResult{Days: make([]CFDDay, 0, len(days))}

	for _, day := range days {
		counts := make(map[string]int)
		for i, tl := range timelines {
			for cursor[i] < len(tl) && !DateOf(tl[cursor[i]].Timestamp).After(day) {
				cursor[i]++
			}
			if cursor[i] == 0 {
				continue
			}
			counts[tl[cursor[i]-1].Status]++
		}
		result.Days = append(result.Days, CFDDay{Date: day, Counts: counts})
	}
	return result
}
