package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jira-flow/internal/jira"
)

const jiraLayout = "2006-01-02T15:04:05.000-0700"

type GeneratorConfig struct {
	Project      string
	Scenario     string // "mild", "chaos" or "drift"
	Distribution string // "uniform" or "weibull"
	Count        int
	Seed         uint64
	Now          time.Time
}

// stage is one raw status and the share of the total cycle time at which an issue enters it.
type stage struct {
	status string
	at     float64
}

var stages = []stage{
	{"Open", 0},
	{"Refinement", 0.15},
	{"In Progress", 0.40},
	{"In Review", 0.80},
	{"Done", 1},
}

var (
	issueTypes = []string{"Story", "Story", "Story", "Bug", "Task"}
	components = []string{"API", "Web", "Mobile", "Infra"}
)

// Workflow is the mapping file matching the generated statuses.
const Workflow = `# generated by mockgen
Backlog:Open:Refinement
Development:In Progress
Review:In Review
Done
<First>Backlog
<Last>Done
<Implementation>Development
`

// Generate builds a synthetic Jira export: one issue arriving per day, ending at cfg.Now,
// each walking the stages until its sampled cycle time elapses.
func Generate(cfg GeneratorConfig) []jira.IssueDTO {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.Project == "" {
		cfg.Project = "MOCK"
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	issues := make([]jira.IssueDTO, 0, cfg.Count)
	tArrival := cfg.Now.AddDate(0, 0, -cfg.Count)

	for i := 0; i < cfg.Count; i++ {
		arrival := tArrival.Add(time.Duration(i*24) * time.Hour)

		k, lambda := 2.5, 9.5 // mild: ~5 days in progress
		switch cfg.Scenario {
		case "chaos":
			k = 0.8
			if cfg.Distribution == "weibull" {
				lambda = 12.0
			}
		case "drift":
			ratio := float64(i) / float64(cfg.Count)
			k = 2.5 - (1.7 * ratio)
			lambda = 9.5 + (2.5 * ratio)
		}

		var totalDays float64
		if cfg.Distribution == "weibull" {
			totalDays = weibullSample(rng, k, lambda)
		} else {
			totalDays = 6.0 + rng.Float64()*5.0
			if cfg.Scenario == "chaos" && rng.Float64() < 0.2 {
				totalDays += 10 + rng.Float64()*15
			}
			if cfg.Scenario == "drift" && i > cfg.Count/2 {
				totalDays *= 2.0
			}
		}

		issue := jira.IssueDTO{
			ID:  fmt.Sprintf("%d", 10000+i+1),
			Key: fmt.Sprintf("%s-%d", cfg.Project, i+1),
			Fields: jira.FieldsDTO{
				Summary:    fmt.Sprintf("Synthetic work item %d", i+1),
				IssueType:  jira.NamedDTO{Name: issueTypes[rng.IntN(len(issueTypes))]},
				Components: []jira.NamedDTO{{Name: components[rng.IntN(len(components))]}},
				Created:    arrival.Format(jiraLayout),
			},
			Changelog: &jira.ChangelogDTO{},
		}

		current := stages[0].status
		for _, s := range stages[1:] {
			at := arrival.Add(time.Duration(totalDays * s.at * 24 * float64(time.Hour)))
			if !at.Before(cfg.Now) {
				break
			}
			issue.Changelog.Histories = append(issue.Changelog.Histories, jira.HistoryDTO{
				Created: at.Format(jiraLayout),
				Items:   []jira.ItemDTO{{Field: "status", FromString: current, ToString: s.status}},
			})
			current = s.status
			if s.status == "Done" {
				issue.Fields.Resolution = &jira.NamedDTO{Name: "Fixed"}
				issue.Fields.ResolutionDate = at.Format(jiraLayout)
			}
		}
		issue.Fields.Status = jira.NamedDTO{Name: current}
		if last := len(issue.Changelog.Histories); last > 0 {
			issue.Fields.Updated = issue.Changelog.Histories[last-1].Created
		} else {
			issue.Fields.Updated = issue.Fields.Created
		}

		issues = append(issues, issue)
	}
	return issues
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

// Save writes <project>.json in the search response shape and <project>_workflow.txt.
func Save(outDir, project string, issues []jira.IssueDTO) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}

	name := strings.ToUpper(project)
	exportPath := filepath.Join(outDir, name+".json")
	workflowPath := filepath.Join(outDir, name+"_workflow.txt")

	f, err := os.Create(exportPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	resp := jira.SearchResponse{MaxResults: len(issues), Total: len(issues), Issues: issues}
	if err := enc.Encode(resp); err != nil {
		return "", err
	}

	if err := os.WriteFile(workflowPath, []byte(Workflow), 0644); err != nil {
		return "", err
	}
	return exportPath, nil
}
