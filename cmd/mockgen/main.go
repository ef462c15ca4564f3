package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"jira-flow/cmd/mockgen/engine"
)

func main() {
	project := flag.String("project", "MOCK", "Project key of the generated issues")
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, chaos, drift")
	distribution := flag.String("distribution", "uniform", "Distribution to use: uniform, weibull")
	outDir := flag.String("out", "./testdata", "Output directory for the export and workflow files")
	count := flag.Int("count", 200, "Number of issues to generate")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Project:      *project,
		Scenario:     *scenario,
		Distribution: *distribution,
		Count:        *count,
		Seed:         *seed,
		Now:          time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (Distribution: %s, Count: %d) to %s...\n", cfg.Scenario, cfg.Distribution, cfg.Count, *outDir)

	issues := engine.Generate(cfg)

	path, err := engine.Save(*outDir, cfg.Project, issues)
	if err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	workflowPath := strings.TrimSuffix(path, ".json") + "_workflow.txt"
	fmt.Printf("Done. Run: jira-flow %s --input %s --workflow %s\n", cfg.Project, path, workflowPath)
}
