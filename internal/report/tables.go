package report

import (
	"slices"
	"strings"

	"jira-flow/internal/stats"
	"jira-flow/internal/timeline"
	"jira-flow/internal/workflow"

	"github.com/samber/lo"
)

// IssueTimesFields are the fixed leading columns of the IssueTimes layout.
var IssueTimesFields = []string{
	"Project", "Group", "Key", "Issuetype", "Status", "Created Date", "Component",
	"Category", "First Date", "Implementation Date", "Closed Date",
}

// CFDTable flattens a CFD result into one row per day. When statuses is empty
// the columns are the sorted statuses found in the data; otherwise they follow
// the given order and other statuses are not shown.
func CFDTable(res stats.CFDResult, statuses []string) Table {
	if len(res.Days) == 0 {
		return Table{}
	}
	if len(statuses) == 0 {
		statuses = res.Statuses()
	}

	t := Table{Fields: append([]string{"Day"}, statuses...)}
	for _, d := range res.Days {
		row := Record{"Day": d.Date.Format(DayLayout)}
		for _, s := range statuses {
			row[s] = d.Counts[s]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// IssueTimesTable builds the IssueTimes layout: fixed issue columns, one
// column per status with the time spent in milliseconds, then Resolution.
// Issues are expected to have been prepared with opts.Workflow.
func IssueTimesTable(issues []timeline.Issue, opts stats.TimingOptions) Table {
	wf := opts.Workflow
	// Timelines already carry group names.
	timingOpts := opts
	timingOpts.Workflow = nil

	var statusColumns []string
	rows := make([]Record, 0, len(issues))
	for _, issue := range issues {
		tl := issue.Timeline
		timing := stats.StatusTiming(tl, timingOpts)

		row := Record{
			"Project":             issue.Project,
			"Group":               "",
			"Key":                 issue.Key,
			"Issuetype":           issue.IssueType,
			"Status":              lookupNonEmpty(wf, issue.Status),
			"Created Date":        formatTime(issue.Created, TimestampLayout),
			"Component":           joinComponents(issue.Components),
			"Category":            issue.Resolution,
			"First Date":          "",
			"Implementation Date": "",
			"Closed Date":         "",
		}
		if len(tl) > 0 {
			row["First Date"] = formatTime(tl[0].Timestamp, TimestampLayout)
			if e, ok := lo.Find(tl, func(e timeline.Entry) bool { return isImplementation(wf, e.Status) }); ok {
				row["Implementation Date"] = formatTime(e.Timestamp, TimestampLayout)
			}
			if issue.Resolution != "" {
				last, _ := tl.Last()
				row["Closed Date"] = formatTime(last.Timestamp, TimestampLayout)
			}
		}
		for status, days := range timing {
			row[status] = int64(days * 86400000)
		}
		row["Resolution"] = issue.Resolution

		statusColumns = lo.Union(statusColumns, lo.Keys(timing))
		rows = append(rows, row)
	}

	slices.Sort(statusColumns)
	fields := slices.Concat(IssueTimesFields, statusColumns, []string{"Resolution"})
	return Table{Fields: fields, Rows: rows}
}

// TransitionsTable lists every timeline entry, including the creation entry.
func TransitionsTable(issues []timeline.Issue) Table {
	t := Table{Fields: []string{"Key", "Transition", "Timestamp"}}
	for _, issue := range issues {
		for _, e := range issue.Timeline {
			t.Rows = append(t.Rows, Record{
				"Key":        issue.Key,
				"Transition": e.Status,
				"Timestamp":  formatTime(e.Timestamp, TimestampLayout),
			})
		}
	}
	return t
}

// CycleTimeTable lists created-to-resolved durations in days.
// Issues without a creation timestamp are left out.
func CycleTimeTable(issues []timeline.Issue, opts stats.TimingOptions) Table {
	t := Table{Fields: []string{"id", "key", "created", "resolved", "cycle_time_days"}}
	for _, issue := range issues {
		if issue.Created.IsZero() {
			continue
		}
		resolved := ""
		if issue.Resolved != nil {
			resolved = issue.Resolved.Format(jiraLayout)
		}
		t.Rows = append(t.Rows, Record{
			"id":              issue.ID,
			"key":             issue.Key,
			"created":         issue.Created.Format(jiraLayout),
			"resolved":        resolved,
			"cycle_time_days": stats.CycleTimeDays(issue.Created, issue.Resolved, opts),
		})
	}
	return t
}

// ListTable is the KEY / SUMMARY listing shown when no report is requested.
func ListTable(issues []timeline.Issue) Table {
	t := Table{Fields: []string{"KEY", "SUMMARY"}}
	for _, issue := range issues {
		t.Rows = append(t.Rows, Record{"KEY": issue.Key, "SUMMARY": issue.Summary})
	}
	return t
}

func lookupNonEmpty(wf *workflow.Config, status string) string {
	if status == "" {
		return ""
	}
	return wf.Lookup(status)
}

// isImplementation matches the workflow's <Implementation> group exactly, so a
// group is picked by its marker and not by its name.
func isImplementation(wf *workflow.Config, status string) bool {
	if wf != nil {
		return status == wf.Implementation
	}
	return strings.Contains(strings.ToLower(status), "progress")
}

func joinComponents(components []string) string {
	if len(components) == 0 {
		return ""
	}
	return strings.Join(components, "|") + "|"
}
