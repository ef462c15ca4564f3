package commands

import (
	"time"

	"jira-flow/internal/config"
	"jira-flow/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	// now is read once per run.
	now = time.Now
)

type options struct {
	verbose bool

	jql          string
	input        string
	workflowFile string

	cfdFile         string
	issueTimesFile  string
	transitionsFile string
	cycleTimesFile  string
	chartFile       string
	outputDir       string
	format          string

	businessDays bool
	holidays     []string

	cfdStart string
	cfdEnd   string
	cfdDays  int

	refresh bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	var cfg *config.AppConfig

	cmd := &cobra.Command{
		Use:   "jira-flow PROJECT",
		Short: "Flow metrics exports for Jira projects",
		Long: `jira-flow fetches issues with their changelog from Jira (or an offline JSON export)
and exports a Cumulative Flow Diagram, per-status dwell times, status transitions and
cycle times as CSV or Excel files. Without an export flag it lists the issues.`,
		Version:       Version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Init(opts.verbose); err != nil {
				return err
			}

			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}

			log.Debug().
				Str("version", Version).
				Str("commit", Commit).
				Str("buildDate", BuildDate).
				Msg("jira-flow starting")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			r := &runner{
				cfg:     cfg,
				opts:    opts,
				project: args[0],
				out:     cmd.OutOrStdout(),
				now:     now(),
				// --business-days only ever switches business days on
				businessDays: opts.businessDays || (!cmd.Flags().Changed("business-days") && cfg.UseBusinessDays),
			}
			return r.run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.jql, "jql", "", "custom JQL query (default: project=PROJECT AND status!=Done)")
	f.StringVar(&opts.input, "input", "", "JSON export file to read instead of querying Jira")
	f.StringVar(&opts.workflowFile, "workflow", "", "workflow mapping file (default: $JIRA_WORKFLOW_FILE)")
	f.StringVar(&opts.cfdFile, "cfd", "", "export the CFD (daily issue count per status) to `FILE`")
	f.StringVar(&opts.issueTimesFile, "issue-times", "", "export time spent per status and issue to `FILE`")
	f.StringVar(&opts.transitionsFile, "transitions", "", "export the status transition log to `FILE`")
	f.StringVar(&opts.cycleTimesFile, "cycle-times", "", "export created-to-resolved cycle times to `FILE`")
	f.StringVar(&opts.chartFile, "chart", "", "write a Mermaid CFD chart to `FILE`")
	f.StringVar(&opts.outputDir, "output", "", "write all exports into `DIR` with a PROJECT_ prefix")
	f.StringVar(&opts.format, "format", "csv", "output format: csv or excel")
	f.BoolVar(&opts.businessDays, "business-days", false, "count business days (weekdays without holidays)")
	f.StringArrayVar(&opts.holidays, "holiday", nil, "holiday `YYYY-MM-DD` excluded from business days (repeatable)")
	f.StringVar(&opts.cfdStart, "cfd-start", "", "first CFD day `YYYY-MM-DD`")
	f.StringVar(&opts.cfdEnd, "cfd-end", "", "last CFD day `YYYY-MM-DD` (default: last transition)")
	f.IntVar(&opts.cfdDays, "cfd-days", 5*365, "CFD history in days when --cfd-start is not set (0: from first transition)")
	f.BoolVar(&opts.refresh, "refresh", false, "bypass the issue cache")

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
