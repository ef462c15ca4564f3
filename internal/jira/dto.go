package jira

import (
	"fmt"
	"strings"
	"time"
)

// SearchResponse is the top-level container for Jira search results.
type SearchResponse struct {
	StartAt    int        `json:"startAt"`
	MaxResults int        `json:"maxResults"`
	Total      int        `json:"total"`
	Issues     []IssueDTO `json:"issues"`
}

// IssueDTO represents a single issue in the Jira search response.
type IssueDTO struct {
	ID        string        `json:"id"`
	Key       string        `json:"key"`
	Fields    FieldsDTO     `json:"fields"`
	Changelog *ChangelogDTO `json:"changelog,omitempty"`
}

// NamedDTO is the {"name": ...} shape shared by status, issue type, resolution and component.
type NamedDTO struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// FieldsDTO contains the specific fields we care about.
type FieldsDTO struct {
	Summary        string     `json:"summary"`
	IssueType      NamedDTO   `json:"issuetype"`
	Status         NamedDTO   `json:"status"`
	Resolution     *NamedDTO  `json:"resolution"`
	ResolutionDate string     `json:"resolutiondate,omitempty"`
	Components     []NamedDTO `json:"components,omitempty"`
	Created        string     `json:"created"`
	Updated        string     `json:"updated,omitempty"`

	// Some exports nest the changelog under fields.
	Changelog *ChangelogDTO `json:"changelog,omitempty"`
}

// ChangelogDTO contains historical transitions.
type ChangelogDTO struct {
	Histories []HistoryDTO `json:"histories"`
}

// HistoryDTO is a single entry in the changelog.
type HistoryDTO struct {
	Created string    `json:"created"`
	Items   []ItemDTO `json:"items"`
}

// ItemDTO is a single field change within a history entry.
type ItemDTO struct {
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

// IsStatus reports whether the item records a status change.
func (i ItemDTO) IsStatus() bool {
	return strings.EqualFold(i.Field, "status")
}

// History returns the changelog histories, preferring the top-level changelog.
func (d IssueDTO) History() []HistoryDTO {
	if d.Changelog != nil {
		return d.Changelog.Histories
	}
	if d.Fields.Changelog != nil {
		return d.Fields.Changelog.Histories
	}
	return nil
}

// ResolutionName returns the resolution name or "" for unresolved issues.
func (d IssueDTO) ResolutionName() string {
	if d.Fields.Resolution == nil {
		return ""
	}
	return d.Fields.Resolution.Name
}

// ProjectKey derives the project key from the issue key ("PROJ" from "PROJ-123").
func (d IssueDTO) ProjectKey() string {
	if idx := strings.LastIndex(d.Key, "-"); idx > 0 {
		return d.Key[:idx]
	}
	return d.Key
}

var timeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// ParseTime parses Jira timestamps. The strict Jira format is tried first,
// followed by RFC 3339 and offset-less variants found in exports.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
