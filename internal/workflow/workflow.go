package workflow

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrInvalidConfig is returned for workflow definitions that cannot be used.
var ErrInvalidConfig = errors.New("invalid workflow config")

const (
	markerFirst          = "<First>"
	markerLast           = "<Last>"
	markerImplementation = "<Implementation>"
)

// Group is a logical workflow state made up of one or more raw Jira statuses.
type Group struct {
	Name     string
	Statuses []string
}

// Config maps raw Jira statuses to workflow groups and names the
// initial, final and implementation groups.
type Config struct {
	groups         []Group
	index          map[string]string
	Initial        string
	Final          string
	Implementation string
}

// New builds a Config from ordered groups and marker names.
// All three markers must reference one of the groups.
func New(groups []Group, initial, final, implementation string) (*Config, error) {
	markers := []struct {
		tag   string
		group string
	}{
		{markerFirst, initial},
		{markerLast, final},
		{markerImplementation, implementation},
	}
	for _, m := range markers {
		if m.group == "" {
			return nil, fmt.Errorf("%w: missing %s marker", ErrInvalidConfig, m.tag)
		}
	}

	defined := make(map[string]bool, len(groups))
	for _, g := range groups {
		defined[g.Name] = true
	}
	for _, m := range markers {
		if !defined[m.group] {
			return nil, fmt.Errorf("%w: state marker %q references undefined state group", ErrInvalidConfig, m.group)
		}
	}

	cfg := &Config{
		groups:         make([]Group, len(groups)),
		index:          make(map[string]string),
		Initial:        initial,
		Final:          final,
		Implementation: implementation,
	}
	for i, g := range groups {
		cfg.groups[i] = Group{Name: g.Name, Statuses: slices.Clone(g.Statuses)}
		// First group listing a status wins.
		for _, s := range g.Statuses {
			if _, taken := cfg.index[s]; !taken {
				cfg.index[s] = g.Name
			}
		}
	}
	return cfg, nil
}

// Lookup returns the group for a raw status, or the status itself when no group lists it.
func (c *Config) Lookup(status string) string {
	if c == nil {
		return status
	}
	if group, ok := c.index[status]; ok {
		return group
	}
	return status
}

// Groups returns the groups in definition order.
func (c *Config) Groups() []Group {
	out := make([]Group, len(c.groups))
	for i, g := range c.groups {
		out[i] = Group{Name: g.Name, Statuses: slices.Clone(g.Statuses)}
	}
	return out
}

// GroupNames returns the group names in definition order.
func (c *Config) GroupNames() []string {
	names := make([]string, len(c.groups))
	for i, g := range c.groups {
		names[i] = g.Name
	}
	return names
}

// Statuses returns the sorted set of raw statuses known to the config.
func (c *Config) Statuses() []string {
	out := make([]string, 0, len(c.index))
	for s := range c.index {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Load parses the workflow definition stored at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workflow file: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("groups", len(cfg.groups)).Msg("Loaded workflow config")
	return cfg, nil
}

// Parse reads a workflow definition.
//
// Two line formats are accepted and may be mixed:
//
//	GroupName:Status1:Status2
//	<First>GroupName
//	<Last>GroupName
//	<Implementation>GroupName
//
// and the simple mapping form
//
//	Raw Status -> GroupName
//
// Simple mappings only apply when no marker line is present; a repeated raw status
// keeps the last group it was mapped to. The markers then fall back to the
// alphabetically first, last and middle group.
func Parse(r io.Reader) (*Config, error) {
	var (
		groups     []Group
		position   = make(map[string]int)
		mapped     []string // raw statuses in first-seen order
		mappings   = make(map[string]string)
		hasMarkers bool

		initial, final, implementation string
	)

	upsert := func(name string, statuses []string, appendMode bool) {
		if i, ok := position[name]; ok {
			if appendMode {
				groups[i].Statuses = append(groups[i].Statuses, statuses...)
			} else {
				groups[i].Statuses = statuses
			}
			return
		}
		position[name] = len(groups)
		groups = append(groups, Group{Name: name, Statuses: statuses})
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "<"):
			hasMarkers = true
			switch {
			case strings.HasPrefix(line, markerFirst):
				initial = strings.TrimSpace(line[len(markerFirst):])
			case strings.HasPrefix(line, markerLast):
				final = strings.TrimSpace(line[len(markerLast):])
			case strings.HasPrefix(line, markerImplementation):
				implementation = strings.TrimSpace(line[len(markerImplementation):])
			default:
				log.Debug().Int("line", lineNo).Str("content", line).Msg("Ignoring unknown workflow marker")
			}
		case strings.Contains(line, "->"):
			from, to, _ := strings.Cut(line, "->")
			raw := strings.TrimSpace(from)
			if _, seen := mappings[raw]; !seen {
				mapped = append(mapped, raw)
			}
			mappings[raw] = strings.TrimSpace(to)
		default:
			parts := strings.Split(line, ":")
			name := strings.TrimSpace(parts[0])
			var statuses []string
			for _, p := range parts[1:] {
				if p = strings.TrimSpace(p); p != "" {
					statuses = append(statuses, p)
				}
			}
			if len(statuses) == 0 {
				statuses = []string{name}
			}
			upsert(name, statuses, false)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read workflow definition: %w", err)
	}

	if len(mapped) > 0 && hasMarkers {
		log.Debug().Int("count", len(mapped)).Msg("Ignoring simple mappings in a workflow with markers")
	}
	if len(mapped) > 0 && !hasMarkers {
		for _, raw := range mapped {
			upsert(mappings[raw], []string{raw}, true)
		}

		names := make([]string, len(groups))
		for i, g := range groups {
			names[i] = g.Name
		}
		slices.Sort(names)
		initial = names[0]
		final = names[len(names)-1]
		implementation = names[len(names)/2]
		log.Debug().
			Str("initial", initial).
			Str("final", final).
			Str("implementation", implementation).
			Msg("Synthesized workflow markers from simple mappings")
	}

	return New(groups, initial, final, implementation)
}
