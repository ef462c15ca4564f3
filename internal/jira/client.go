package jira

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAuth is returned when Jira rejects the credentials (401/403).
	ErrAuth = errors.New("jira authentication failed")
	// ErrUnexpectedStatus is returned for non-retryable HTTP statuses.
	ErrUnexpectedStatus = errors.New("unexpected jira response status")
	// ErrInvalidInput is returned for offline exports that cannot be used.
	ErrInvalidInput = errors.New("invalid issue input")
)

// Source is where raw issues come from: the REST API, an export file or a cache.
type Source interface {
	FetchIssues(ctx context.Context, projectKey, jql string) ([]IssueDTO, error)
}

// Config holds the connection and pacing settings for the REST source.
type Config struct {
	BaseURL string
	User    string
	Token   string

	Timeout           time.Duration
	MaxRetries        int
	BackoffFactor     time.Duration
	PageSize          int
	Concurrency       int
	RequestsPerSecond float64
}

// DefaultJQL selects the unfinished issues of a project.
func DefaultJQL(projectKey string) string {
	return fmt.Sprintf("project=%s AND status!=Done", projectKey)
}
