package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:       baseURL,
		Timeout:       2 * time.Second,
		MaxRetries:    3,
		BackoffFactor: time.Millisecond,
		PageSize:      2,
		Concurrency:   2,
	}
}

func pageOf(start, size, total int) SearchResponse {
	resp := SearchResponse{StartAt: start, MaxResults: size, Total: total}
	for i := start; i < start+size && i < total; i++ {
		resp.Issues = append(resp.Issues, IssueDTO{
			ID:  strconv.Itoa(10000 + i),
			Key: "PROJ-" + strconv.Itoa(i+1),
			Fields: FieldsDTO{
				Created: "2025-11-01T09:00:00.000+0000",
				Status:  NamedDTO{Name: "Open"},
			},
		})
	}
	return resp
}

func TestHTTPClient_FetchIssues_Paginates(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/rest/api/2/search", r.URL.Path)
		assert.Equal(t, "changelog", r.URL.Query().Get("expand"))
		assert.Equal(t, "project=PROJ AND status!=Done", r.URL.Query().Get("jql"))

		start, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
		size, _ := strconv.Atoi(r.URL.Query().Get("maxResults"))
		_ = json.NewEncoder(w).Encode(pageOf(start, size, 5))
	}))
	defer srv.Close()

	issues, err := NewHTTPClient(testConfig(srv.URL)).FetchIssues(context.Background(), "PROJ", "")
	require.NoError(t, err)
	require.Len(t, issues, 5)
	for i, issue := range issues {
		assert.Equal(t, "PROJ-"+strconv.Itoa(i+1), issue.Key, "pages must be reassembled in order")
	}
	assert.Equal(t, int32(3), requests.Load())
}

func TestHTTPClient_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_ = json.NewEncoder(w).Encode(pageOf(0, 2, 1))
		}
	}))
	defer srv.Close()

	issues, err := NewHTTPClient(testConfig(srv.URL)).FetchIssues(context.Background(), "PROJ", "project=PROJ")
	require.NoError(t, err)
	assert.Len(t, issues, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPClient_ExhaustedRetriesReturnEmpty(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	issues, err := NewHTTPClient(testConfig(srv.URL)).FetchIssues(context.Background(), "PROJ", "")
	require.NoError(t, err)
	assert.NotNil(t, issues)
	assert.Empty(t, issues)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPClient_TransportErrorIsRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	cfg := testConfig(url)
	cfg.MaxRetries = 2
	issues, err := NewHTTPClient(cfg).FetchIssues(context.Background(), "PROJ", "")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestHTTPClient_NonRetryableStatuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"Unauthorized", http.StatusUnauthorized, ErrAuth},
		{"Forbidden", http.StatusForbidden, ErrAuth},
		{"BadRequest", http.StatusBadRequest, ErrUnexpectedStatus},
		{"NotFound", http.StatusNotFound, ErrUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewHTTPClient(testConfig(srv.URL)).FetchIssues(context.Background(), "PROJ", "")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int32(1), calls.Load(), "must not retry")
		})
	}
}

func TestHTTPClient_Authentication(t *testing.T) {
	tests := []struct {
		name      string
		user      string
		token     string
		checkAuth func(t *testing.T, r *http.Request)
	}{
		{
			name:  "Basic",
			user:  "alice",
			token: "secret",
			checkAuth: func(t *testing.T, r *http.Request) {
				u, p, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, "alice", u)
				assert.Equal(t, "secret", p)
			},
		},
		{
			name:  "BearerVerbatim",
			token: "Bearer abc123",
			checkAuth: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "Bearer abc123", r.Header.Get("Authorization"))
			},
		},
		{
			name:  "RawToken",
			token: "  raw-token ",
			checkAuth: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "raw-token", r.Header.Get("Authorization"))
			},
		},
		{
			name: "None",
			checkAuth: func(t *testing.T, r *http.Request) {
				assert.Empty(t, r.Header.Get("Authorization"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.checkAuth(t, r)
				_ = json.NewEncoder(w).Encode(SearchResponse{})
			}))
			defer srv.Close()

			cfg := testConfig(srv.URL + "/")
			cfg.User, cfg.Token = tt.user, tt.token
			_, err := NewHTTPClient(cfg).FetchIssues(context.Background(), "PROJ", "")
			require.NoError(t, err)
		})
	}
}

func TestHTTPClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHTTPClient(testConfig(srv.URL)).FetchIssues(ctx, "PROJ", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseTime(t *testing.T) {
	inputs := []string{
		"2025-11-01T10:00:00.000+0000",
		"2025-11-01T12:00:00.000+0200",
		"2025-11-01T10:00:00Z",
		"2025-11-01T10:00:00.123456Z",
		"2025-11-01T10:00:00+00:00",
	}
	want := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)
	for _, in := range inputs {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.True(t, got.Truncate(time.Second).Equal(want), "%s parsed as %v", in, got)
	}

	_, err := ParseTime("01.11.2025")
	assert.Error(t, err)
}

func TestIssueDTO_Helpers(t *testing.T) {
	dto := IssueDTO{
		Key: "MY-PROJ-42",
		Fields: FieldsDTO{
			Changelog: &ChangelogDTO{Histories: []HistoryDTO{{Created: "x"}}},
		},
	}
	assert.Equal(t, "MY-PROJ", dto.ProjectKey())
	assert.Equal(t, "", dto.ResolutionName())
	assert.Len(t, dto.History(), 1)

	dto.Changelog = &ChangelogDTO{}
	assert.Empty(t, dto.History(), "top-level changelog wins")
}
