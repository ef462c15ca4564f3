package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// FileSource serves issues from an offline Jira JSON export.
type FileSource struct {
	Path string
}

// FetchIssues loads the export. projectKey and jql are not applied to offline data.
func (s *FileSource) FetchIssues(_ context.Context, projectKey, _ string) ([]IssueDTO, error) {
	issues, err := LoadIssuesFile(s.Path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", s.Path).Str("project", projectKey).Int("count", len(issues)).Msg("Loaded issues from file")
	return issues, nil
}

// LoadIssuesFile reads a JSON export holding a list of issues, an object with
// an "issues" list, or a single issue. Every issue must have "key" and an
// object "fields".
func LoadIssuesFile(path string) ([]IssueDTO, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("JSON file not found: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: path %s is not a regular file", ErrInvalidInput, path)
	}
	if info.Mode().Perm()&0o077 != 0 {
		log.Warn().
			Str("path", path).
			Str("mode", info.Mode().Perm().String()).
			Msg("JSON input file has loose permissions, consider chmod 600")
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseIssues(data)
}

// ParseIssues validates and decodes the JSON export formats accepted by LoadIssuesFile.
func ParseIssues(data []byte) ([]IssueDTO, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %v", ErrInvalidInput, err)
	}

	var raw []any
	switch v := root.(type) {
	case []any:
		raw = v
	case map[string]any:
		if list, ok := v["issues"]; ok {
			items, ok := list.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: invalid JSON format: \"issues\" must be a list", ErrInvalidInput)
			}
			raw = items
		} else if hasIssueFields(v) {
			raw = []any{v}
		} else {
			return nil, fmt.Errorf("%w: missing required fields", ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("%w: invalid JSON format: expected a list or an object with Jira issue structure", ErrInvalidInput)
	}

	issues := make([]IssueDTO, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: invalid JSON format: issue %d is not an object", ErrInvalidInput, i)
		}
		if !hasIssueFields(obj) {
			return nil, fmt.Errorf("%w: missing required fields", ErrInvalidInput)
		}
		if _, ok := obj["fields"].(map[string]any); !ok {
			return nil, fmt.Errorf("%w: issue fields must be an object", ErrInvalidInput)
		}

		// Re-decode the validated object into the typed DTO.
		buf, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("%w: issue %d: %v", ErrInvalidInput, i, err)
		}
		var dto IssueDTO
		dec := json.NewDecoder(bytes.NewReader(buf))
		if err := dec.Decode(&dto); err != nil {
			return nil, fmt.Errorf("%w: issue %d: %v", ErrInvalidInput, i, err)
		}
		issues = append(issues, dto)
	}
	return issues, nil
}

func hasIssueFields(obj map[string]any) bool {
	_, hasKey := obj["key"]
	_, hasFields := obj["fields"]
	return hasKey && hasFields
}
