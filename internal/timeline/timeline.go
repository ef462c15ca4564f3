package timeline

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"jira-flow/internal/jira"
	"jira-flow/internal/workflow"

	"github.com/rs/zerolog/log"
)

// DefaultInitialStatus is used when neither the changelog nor the issue names a status.
const DefaultInitialStatus = "Open"

// Entry is a single point in an issue's status history.
type Entry struct {
	Status    string
	Timestamp time.Time
}

// Timeline is the chronologically ordered status history of one issue.
// The first entry carries the status the issue was created in.
type Timeline []Entry

// Last returns the most recent entry. ok is false for an empty timeline.
func (tl Timeline) Last() (e Entry, ok bool) {
	if len(tl) == 0 {
		return Entry{}, false
	}
	return tl[len(tl)-1], true
}

// Issue binds the descriptive fields of a Jira issue to its timeline.
type Issue struct {
	ID         string
	Key        string
	Project    string
	Summary    string
	IssueType  string
	Status     string // raw current status
	Resolution string
	Components []string
	Created    time.Time
	Resolved   *time.Time
	Timeline   Timeline
}

type datedHistory struct {
	at     time.Time
	status *jira.ItemDTO
}

// Extract reconstructs the status timeline of an issue from its changelog.
// Issues without a parseable creation timestamp yield an empty timeline.
// When wf is non-nil every status is mapped to its workflow group.
func Extract(dto jira.IssueDTO, wf *workflow.Config) Timeline {
	created, err := jira.ParseTime(dto.Fields.Created)
	if err != nil {
		log.Debug().Str("key", dto.Key).Str("created", dto.Fields.Created).Msg("Skipping issue without creation timestamp")
		return nil
	}

	raw := dto.History()
	histories := make([]datedHistory, 0, len(raw))
	for i := range raw {
		h := &raw[i]
		var statusItem *jira.ItemDTO
		extra := 0
		for j := range h.Items {
			if !h.Items[j].IsStatus() {
				continue
			}
			if statusItem == nil {
				statusItem = &h.Items[j]
			} else {
				extra++
			}
		}
		if statusItem == nil {
			continue
		}
		at, err := jira.ParseTime(h.Created)
		if err != nil {
			log.Debug().Str("key", dto.Key).Str("created", h.Created).Msg("Skipping history with invalid timestamp")
			continue
		}
		if extra > 0 {
			log.Debug().Str("key", dto.Key).Int("ignored", extra).Msg("History carries several status items, using the first")
		}
		histories = append(histories, datedHistory{at: at, status: statusItem})
	}

	// Jira returns histories newest first on some versions.
	slices.SortStableFunc(histories, func(a, b datedHistory) int {
		return a.at.Compare(b.at)
	})

	// The current status only stands in for issues that never changed status.
	var initial string
	if len(histories) > 0 {
		initial = histories[0].status.FromString
	} else {
		initial = dto.Fields.Status.Name
	}
	if initial == "" {
		initial = DefaultInitialStatus
	}

	tl := make(Timeline, 0, len(histories)+1)
	tl = append(tl, Entry{Status: wf.Lookup(initial), Timestamp: created})
	for _, h := range histories {
		at := h.at
		if at.Before(created) {
			at = created
		}
		tl = append(tl, Entry{Status: wf.Lookup(h.status.ToString), Timestamp: at})
	}
	return tl
}

// Prepare extracts timelines for all issues. Issues whose timeline is empty
// are kept so they still appear in listings.
func Prepare(dtos []jira.IssueDTO, wf *workflow.Config) []Issue {
	issues := make([]Issue, 0, len(dtos))
	skipped := 0
	for _, dto := range dtos {
		issue := Issue{
			ID:         dto.ID,
			Key:        dto.Key,
			Project:    dto.ProjectKey(),
			Summary:    dto.Fields.Summary,
			IssueType:  dto.Fields.IssueType.Name,
			Status:     dto.Fields.Status.Name,
			Resolution: dto.ResolutionName(),
			Timeline:   Extract(dto, wf),
		}
		for _, c := range dto.Fields.Components {
			if c.Name != "" {
				issue.Components = append(issue.Components, c.Name)
			}
		}
		if t, err := jira.ParseTime(dto.Fields.Created); err == nil {
			issue.Created = t
		}
		if strings.TrimSpace(dto.Fields.ResolutionDate) != "" {
			if t, err := jira.ParseTime(dto.Fields.ResolutionDate); err == nil {
				issue.Resolved = &t
			}
		}
		if len(issue.Timeline) == 0 {
			skipped++
		}
		issues = append(issues, issue)
	}
	if skipped > 0 {
		log.Warn().Int("count", skipped).Msg("Issues without a creation timestamp have no timeline")
	}
	return issues
}

// Timelines returns the timelines of the given issues in order.
func Timelines(issues []Issue) []Timeline {
	out := make([]Timeline, len(issues))
	for i, issue := range issues {
		out[i] = issue.Timeline
	}
	return out
}

// SortByKey orders issues by project and numeric key suffix.
func SortByKey(issues []Issue) {
	slices.SortStableFunc(issues, func(a, b Issue) int {
		return cmp.Or(
			cmp.Compare(a.Project, b.Project),
			cmp.Compare(keyNumber(a.Key), keyNumber(b.Key)),
			cmp.Compare(a.Key, b.Key),
		)
	})
}

func keyNumber(key string) int {
	idx := strings.LastIndex(key, "-")
	n := 0
	for _, r := range key[idx+1:] {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
