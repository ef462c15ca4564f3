package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"time"

	"jira-flow/internal/config"
	"jira-flow/internal/export"
	"jira-flow/internal/jira"
	"jira-flow/internal/report"
	"jira-flow/internal/stats"
	"jira-flow/internal/timeline"
	"jira-flow/internal/workflow"

	"github.com/rs/zerolog/log"
)

const dateFlagLayout = "2006-01-02"

type runner struct {
	cfg          *config.AppConfig
	opts         *options
	project      string
	out          io.Writer
	now          time.Time
	businessDays bool
}

// target is one requested export.
type target struct {
	label string
	path  string
	build func() report.Table
	comma rune
}

func (r *runner) run(ctx context.Context) error {
	format, err := export.ParseFormat(r.opts.format)
	if err != nil {
		return err
	}
	holidays, err := stats.ParseHolidays(slices.Concat(r.cfg.Holidays, r.opts.holidays))
	if err != nil {
		return err
	}
	wf, err := r.loadWorkflow()
	if err != nil {
		return err
	}
	window, err := r.cfdWindow()
	if err != nil {
		return err
	}

	dtos, err := r.source().FetchIssues(ctx, r.project, r.opts.jql)
	if err != nil {
		return fmt.Errorf("failed to fetch issues: %w", err)
	}
	issues := timeline.Prepare(dtos, wf)

	timing := stats.TimingOptions{
		Workflow:     wf,
		BusinessDays: r.businessDays,
		Holidays:     holidays,
		Now:          r.now,
	}

	// computed lazily, shared by the CFD table and chart
	var cfd *stats.CFDResult
	cfdResult := func() stats.CFDResult {
		if cfd == nil {
			res := stats.CalculateCFD(timeline.Timelines(issues), window)
			cfd = &res
		}
		return *cfd
	}
	cfdTable := func() report.Table {
		res := cfdResult()
		return report.CFDTable(res, cfdStatuses(res, wf))
	}
	issueTimes := func() report.Table { return report.IssueTimesTable(issues, timing) }
	transitions := func() report.Table { return report.TransitionsTable(issues) }
	cycleTimes := func() report.Table { return report.CycleTimeTable(issues, timing) }

	var targets []target
	if dir := r.opts.outputDir; dir != "" {
		name := func(kind string) string {
			return filepath.Join(dir, r.project+"_"+kind+format.Extension())
		}
		targets = append(targets,
			target{"CFD data", name("CFD"), cfdTable, ','},
			target{"issue times", name("IssueTimes"), issueTimes, ','},
			target{"transitions", name("Transitions"), transitions, ';'},
			target{"cycle times", name("CycleTimes"), cycleTimes, ','},
		)
	}
	for _, t := range []target{
		{"CFD data", r.opts.cfdFile, cfdTable, ','},
		{"issue times", r.opts.issueTimesFile, issueTimes, ','},
		{"transitions", r.opts.transitionsFile, transitions, ';'},
		{"cycle times", r.opts.cycleTimesFile, cycleTimes, ','},
	} {
		if t.path != "" {
			targets = append(targets, t)
		}
	}

	if len(targets) == 0 && r.opts.chartFile == "" {
		return r.list(issues)
	}

	for _, t := range targets {
		if err := export.Write(t.build(), t.path, format, t.comma); err != nil {
			return fmt.Errorf("failed to export %s: %w", t.label, err)
		}
		fmt.Fprintf(r.out, "Exported %s to %s\n", t.label, t.path)
	}
	if r.opts.chartFile != "" {
		res := cfdResult()
		if err := export.WriteCFDChart(res, cfdStatuses(res, wf), r.opts.chartFile); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Exported CFD chart to %s\n", r.opts.chartFile)
	}
	return nil
}

func (r *runner) source() jira.Source {
	if r.opts.input != "" {
		return &jira.FileSource{Path: r.opts.input}
	}
	return jira.NewCachedSource(jira.NewHTTPClient(r.cfg.Jira), r.cfg.CacheDir, r.cfg.CacheTTL, r.opts.refresh)
}

func (r *runner) loadWorkflow() (*workflow.Config, error) {
	path := r.opts.workflowFile
	if path == "" {
		path = r.cfg.WorkflowFile
	}
	if path == "" {
		return nil, nil
	}
	wf, err := workflow.Load(path)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("path", path).
		Strs("groups", wf.GroupNames()).
		Int("statuses", len(wf.Statuses())).
		Msg("Using workflow")
	for _, g := range wf.Groups() {
		log.Debug().Str("group", g.Name).Strs("statuses", g.Statuses).Msg("Workflow group")
	}
	return wf, nil
}

func (r *runner) cfdWindow() (stats.CFDWindow, error) {
	var w stats.CFDWindow
	switch {
	case r.opts.cfdStart != "":
		start, err := time.Parse(dateFlagLayout, r.opts.cfdStart)
		if err != nil {
			return w, fmt.Errorf("invalid --cfd-start %q: expected YYYY-MM-DD", r.opts.cfdStart)
		}
		w.Start = &start
	case r.opts.cfdDays > 0:
		start := r.now.AddDate(0, 0, -r.opts.cfdDays)
		w.Start = &start
	}
	if r.opts.cfdEnd != "" {
		end, err := time.Parse(dateFlagLayout, r.opts.cfdEnd)
		if err != nil {
			return w, fmt.Errorf("invalid --cfd-end %q: expected YYYY-MM-DD", r.opts.cfdEnd)
		}
		w.End = &end
	}
	return w, nil
}

// cfdStatuses orders CFD columns by workflow group definition, followed by
// any statuses outside the workflow in sorted order.
func cfdStatuses(res stats.CFDResult, wf *workflow.Config) []string {
	present := res.Statuses()
	if wf == nil {
		return present
	}
	var ordered []string
	for _, g := range wf.GroupNames() {
		if slices.Contains(present, g) {
			ordered = append(ordered, g)
		}
	}
	for _, s := range present {
		if !slices.Contains(ordered, s) {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

func (r *runner) list(issues []timeline.Issue) error {
	timeline.SortByKey(issues)
	table := report.ListTable(issues)

	fmt.Fprintf(r.out, "%-16s %s\n", table.Fields[0], table.Fields[1])
	fmt.Fprintf(r.out, "%-16s %s\n", "----------------", "----------------------------------------")
	for _, row := range table.Rows {
		vals := table.Strings(row)
		fmt.Fprintf(r.out, "%-16s %s\n", vals[0], vals[1])
	}
	return nil
}
