package stats

import "time"

// CycleTimeDays measures created to resolved, or to opts.Now for unresolved issues.
// opts.Workflow is not used.
func CycleTimeDays(created time.Time, resolved *time.Time, opts TimingOptions) float64 {
	end := opts.now()
	if resolved != nil {
		end = *resolved
	}
	return opts.span(created, end)
}
