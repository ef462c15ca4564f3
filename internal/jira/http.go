package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const searchFields = "summary,issuetype,status,resolution,resolutiondate,created,updated,components"

var errRetriesExhausted = errors.New("retries exhausted")

// retryableError marks transport failures, 429 and 5xx responses.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// HTTPClient fetches issues with their changelog from the Jira REST search API.
type HTTPClient struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPClient applies defaults to cfg and builds a client.
func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &HTTPClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, max(1, cfg.Concurrency)),
	}
}

// FetchIssues runs the JQL query (DefaultJQL when empty) and returns every page.
// When retries are exhausted a warning is logged and an empty result is returned.
func (c *HTTPClient) FetchIssues(ctx context.Context, projectKey, jql string) ([]IssueDTO, error) {
	if jql == "" {
		jql = DefaultJQL(projectKey)
	}
	log.Info().Str("project", projectKey).Msg("Requesting issues from Jira")
	log.Debug().Str("jql", jql).Str("base_url", c.cfg.BaseURL).Msg("Jira search details")

	issues, err := c.fetchAll(ctx, jql)
	if errors.Is(err, errRetriesExhausted) {
		log.Warn().Err(err).Str("project", projectKey).Msg("Giving up contacting Jira")
		return []IssueDTO{}, nil
	}
	if err != nil {
		return nil, err
	}
	log.Info().Int("count", len(issues)).Msg("Fetched issues from Jira")
	return issues, nil
}

func (c *HTTPClient) fetchAll(ctx context.Context, jql string) ([]IssueDTO, error) {
	first, err := c.searchPage(ctx, jql, 0)
	if err != nil {
		return nil, err
	}

	// the server may cap maxResults below the requested page size
	step := first.MaxResults
	if step <= 0 {
		step = len(first.Issues)
	}
	if step <= 0 || first.Total <= len(first.Issues) {
		return first.Issues, nil
	}

	var offsets []int
	for off := step; off < first.Total; off += step {
		offsets = append(offsets, off)
	}
	log.Debug().Int("total", first.Total).Int("pages", len(offsets)+1).Msg("Fetching remaining pages")

	pages := make([][]IssueDTO, len(offsets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i, off := range offsets {
		g.Go(func() error {
			page, err := c.searchPage(gctx, jql, off)
			if err != nil {
				return err
			}
			pages[i] = page.Issues
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	issues := first.Issues
	for _, p := range pages {
		issues = append(issues, p...)
	}
	return issues, nil
}

// searchPage fetches one page, retrying with exponential backoff.
func (c *HTTPClient) searchPage(ctx context.Context, jql string, startAt int) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("jql", jql)
	params.Set("startAt", strconv.Itoa(startAt))
	params.Set("maxResults", strconv.Itoa(c.cfg.PageSize))
	params.Set("fields", searchFields)
	params.Set("expand", "changelog")
	searchURL := fmt.Sprintf("%s/rest/api/2/search?%s", c.cfg.BaseURL, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.do(ctx, searchURL)
		if err == nil {
			return resp, nil
		}
		var retryable *retryableError
		if !errors.As(err, &retryable) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		if attempt == c.cfg.MaxRetries {
			break
		}

		backoff := c.cfg.BackoffFactor * time.Duration(1<<(attempt-1))
		log.Debug().Err(err).Int("attempt", attempt).Dur("backoff", backoff).Int("start_at", startAt).Msg("Jira request failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", errRetriesExhausted, c.cfg.MaxRetries, lastErr)
}

func (c *HTTPClient) do(ctx context.Context, searchURL string) (*SearchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	c.authenticateRequest(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		detail := strings.TrimSpace(string(body))
		switch {
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w (status %d)", ErrAuth, resp.StatusCode)
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
			return nil, &retryableError{err: fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, detail)}
		default:
			return nil, fmt.Errorf("%w: status=%d body=%s", ErrUnexpectedStatus, resp.StatusCode, detail)
		}
	}

	var result SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode Jira response: %w", err)
	}
	return &result, nil
}

// authenticateRequest uses basic auth when a user is configured and otherwise
// sends the token as the Authorization header ("Bearer ..." tokens verbatim).
func (c *HTTPClient) authenticateRequest(req *http.Request) {
	token := strings.TrimSpace(c.cfg.Token)
	switch {
	case token == "":
		return
	case c.cfg.User != "":
		req.SetBasicAuth(c.cfg.User, token)
	default:
		req.Header.Set("Authorization", token)
	}
}
