package jira

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// CachedSource keeps the raw issues of a query in a JSONL file and serves
// them while the file is younger than TTL.
type CachedSource struct {
	Source  Source
	Dir     string
	TTL     time.Duration
	Refresh bool

	now func() time.Time
}

// NewCachedSource wraps src with a cache under dir.
func NewCachedSource(src Source, dir string, ttl time.Duration, refresh bool) *CachedSource {
	return &CachedSource{Source: src, Dir: dir, TTL: ttl, Refresh: refresh, now: time.Now}
}

// FetchIssues serves a fresh cache entry or fetches and stores the result.
// Cache failures are logged and never fail the fetch.
func (c *CachedSource) FetchIssues(ctx context.Context, projectKey, jql string) ([]IssueDTO, error) {
	path := c.path(projectKey, jql)

	if !c.Refresh && c.TTL > 0 {
		issues, ok, err := c.load(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Ignoring unreadable cache")
		}
		if ok {
			log.Info().Str("project", projectKey).Int("count", len(issues)).Msg("Loaded issues from cache")
			return issues, nil
		}
	}

	issues, err := c.Source.FetchIssues(ctx, projectKey, jql)
	if err != nil {
		return nil, err
	}
	if c.TTL > 0 && len(issues) > 0 {
		if err := c.save(path, issues); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to write cache")
		}
	}
	return issues, nil
}

func (c *CachedSource) path(projectKey, jql string) string {
	sum := sha256.Sum256([]byte(projectKey + "\x00" + jql))
	return filepath.Join(c.Dir, fmt.Sprintf("%s-%s.jsonl", projectKey, hex.EncodeToString(sum[:6])))
}

// load returns ok=false when the file is missing or stale.
func (c *CachedSource) load(path string) ([]IssueDTO, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	if age := now().Sub(info.ModTime()); age > c.TTL {
		log.Debug().Str("path", path).Dur("age", age).Msg("Cache expired")
		return nil, false, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open cache: %w", err)
	}
	defer file.Close()

	var issues []IssueDTO
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var dto IssueDTO
		if err := json.Unmarshal(scanner.Bytes(), &dto); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping invalid JSON line in cache")
			continue
		}
		issues = append(issues, dto)
	}
	if err := scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("error reading cache: %w", err)
	}
	return issues, true, nil
}

func (c *CachedSource) save(path string, issues []IssueDTO) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	tmpPath := path + ".tmp"

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, dto := range issues {
		if err := encoder.Encode(dto); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to encode issue: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename cache file: %w", err)
	}

	log.Info().Str("path", path).Int("count", len(issues)).Msg("Issues saved to cache")
	return nil
}
