package engine

import (
	"path/filepath"
	"testing"
	"time"

	"jira-flow/internal/jira"
	"jira-flow/internal/timeline"
	"jira-flow/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 11, 5, 12, 0, 0, 0, time.UTC)

func TestGenerate_Deterministic(t *testing.T) {
	cfg := GeneratorConfig{Project: "SIM", Scenario: "chaos", Distribution: "weibull", Count: 30, Seed: 7, Now: fixedNow}

	a := Generate(cfg)
	b := Generate(cfg)
	require.Len(t, a, 30)
	assert.Equal(t, a, b, "same seed must give the same export")
	assert.Equal(t, "SIM-1", a[0].Key)
	assert.Equal(t, "SIM-30", a[29].Key)
}

func TestGenerate_ConsistentIssues(t *testing.T) {
	for _, scenario := range []string{"mild", "chaos", "drift"} {
		t.Run(scenario, func(t *testing.T) {
			issues := Generate(GeneratorConfig{Project: "SIM", Scenario: scenario, Count: 40, Seed: 1, Now: fixedNow})

			for _, issue := range issues {
				created, err := jira.ParseTime(issue.Fields.Created)
				require.NoError(t, err)
				assert.True(t, created.Before(fixedNow), issue.Key)

				from := "Open"
				prev := created
				for _, h := range issue.History() {
					at, err := jira.ParseTime(h.Created)
					require.NoError(t, err)
					assert.False(t, at.Before(prev), "%s: histories must be ordered", issue.Key)
					assert.True(t, at.Before(fixedNow), issue.Key)
					assert.Equal(t, from, h.Items[0].FromString, issue.Key)
					from, prev = h.Items[0].ToString, at
				}
				assert.Equal(t, from, issue.Fields.Status.Name, issue.Key)
				assert.Equal(t, from == "Done", issue.ResolutionName() == "Fixed", issue.Key)
			}
		})
	}
}

func TestGenerate_OldIssuesAreDone(t *testing.T) {
	issues := Generate(GeneratorConfig{Count: 100, Seed: 3, Now: fixedNow})
	// Uniform mild cycle times stay below 11 days.
	for _, issue := range issues[:80] {
		assert.Equal(t, "Done", issue.Fields.Status.Name, issue.Key)
	}
	assert.Equal(t, "MOCK-100", issues[99].Key)
	assert.NotEqual(t, "Done", issues[99].Fields.Status.Name, "arrived a day ago")
}

func TestSave_ReadableByJiraFlow(t *testing.T) {
	dir := t.TempDir()
	issues := Generate(GeneratorConfig{Project: "sim", Count: 25, Seed: 11, Now: fixedNow})

	path, err := Save(dir, "sim", issues)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "SIM.json"), path)

	loaded, err := jira.LoadIssuesFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 25)

	wf, err := workflow.Load(filepath.Join(dir, "SIM_workflow.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Backlog", "Development", "Review", "Done"}, wf.GroupNames())
	assert.Equal(t, "Development", wf.Implementation)

	prepared := timeline.Prepare(loaded, wf)
	require.Len(t, prepared, 25)
	for _, issue := range prepared {
		require.NotEmpty(t, issue.Timeline)
		assert.Equal(t, "Backlog", issue.Timeline[0].Status)
		for _, e := range issue.Timeline {
			assert.Contains(t, wf.GroupNames(), e.Status)
		}
	}
}
