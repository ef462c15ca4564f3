package stats

import (
	"time"

	"jira-flow/internal/timeline"
	"jira-flow/internal/workflow"
)

// TimingOptions controls how elapsed time is measured.
type TimingOptions struct {
	// Workflow maps raw statuses to groups. Leave nil for timelines
	// that were already extracted with a workflow.
	Workflow     *workflow.Config
	BusinessDays bool
	Holidays     HolidaySet
	// Now closes the interval of the last entry. Zero means time.Now().
	Now time.Time
}

func (o TimingOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// span measures start..end in days. Business days include the end date
// when it is a later business day; calendar spans are clamped at zero.
func (o TimingOptions) span(start, end time.Time) float64 {
	if o.BusinessDays {
		return float64(BusinessDaysWithEnd(start, end, o.Holidays))
	}
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return d.Hours() / 24
}

// StatusTiming returns the days an issue spent in each status. Every entry
// accumulates until the next one; the last accumulates until opts.Now.
func StatusTiming(tl timeline.Timeline, opts TimingOptions) map[string]float64 {
	timing := make(map[string]float64)
	if len(tl) == 0 {
		return timing
	}
	now := opts.now()

	for i, e := range tl {
		end := now
		if i+1 < len(tl) {
			end = tl[i+1].Timestamp
		}
		timing[opts.Workflow.Lookup(e.Status)] += opts.span(e.Timestamp, end)
	}
	return timing
}
