package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/autofund/internal/engine"
	"github.com/roach88/autofund/internal/fund"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit      int
	Trigger    string
	FailedOnly bool
}

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "Show recent executions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "maximum records to show (0 = all retained)")
	cmd.Flags().StringVar(&opts.Trigger, "trigger", "", "filter by trigger")
	cmd.Flags().BoolVar(&opts.FailedOnly, "failed", false, "only executions with failed rules")

	cmd.AddCommand(newHistoryStatsCommand(rootOpts))
	cmd.AddCommand(newHistoryExportCommand(rootOpts))
	return cmd
}

func showHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.close()

	filter := engine.HistoryFilter{Trigger: fund.TriggerType(opts.Trigger)}
	if opts.FailedOnly {
		failed := false
		filter.Success = &failed
	}
	records := a.engine.History().Get(opts.Limit, filter)

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(records)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No executions recorded.")
		return nil
	}
	for _, r := range records {
		status := "ok"
		if !r.Success {
			status = "FAILED"
		}
		fmt.Fprintf(out, "%s  %s  %-16s rules=%-3d funded=%10s  %s\n",
			r.ID,
			r.ExecutedAt.Format("2006-01-02 15:04"),
			r.Trigger,
			r.RulesExecuted,
			r.TotalFunded.StringFixed(2),
			status)
	}
	return nil
}

func newHistoryStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Show aggregate execution statistics",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			stats := a.engine.History().Statistics()
			if rootOpts.Format == "json" {
				formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Success(stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Executions: %d (%d ok, %d failed), %d in last 30 days\n",
				stats.TotalExecutions, stats.Successful, stats.Failed, stats.Last30Days)
			fmt.Fprintf(out, "Total funded:   %s\n", stats.TotalFunded.StringFixed(2))
			fmt.Fprintf(out, "Total reversed: %s\n", stats.TotalReversed.StringFixed(2))
			fmt.Fprintf(out, "Net funded:     %s\n", stats.NetFunded.StringFixed(2))
			fmt.Fprintf(out, "Average funded: %s\n", stats.AverageFunded.StringFixed(2))
			for trigger, count := range stats.ByTrigger {
				fmt.Fprintf(out, "  %-16s %d\n", trigger, count)
			}
			return nil
		},
	}
}

// ExportOptions holds flags for the history export command.
type ExportOptions struct {
	*RootOptions
	ExportFormat string
	OutDir       string
	From         string
	To           string
	IncludeUndo  bool
}

// exportFilter builds the record filter from the --from/--to flags.
// Dates are inclusive at both ends.
func (o *ExportOptions) exportFilter() (engine.HistoryFilter, error) {
	var filter engine.HistoryFilter
	if o.From != "" {
		since, err := time.Parse("2006-01-02", o.From)
		if err != nil {
			return filter, NewExitError(ExitCommandError, fmt.Sprintf("invalid --from date %q, want YYYY-MM-DD", o.From))
		}
		filter.Since = since
	}
	if o.To != "" {
		until, err := time.Parse("2006-01-02", o.To)
		if err != nil {
			return filter, NewExitError(ExitCommandError, fmt.Sprintf("invalid --to date %q, want YYYY-MM-DD", o.To))
		}
		filter.Until = until.Add(24*time.Hour - time.Nanosecond)
	}
	return filter, nil
}

func newHistoryExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export retained history to a file",
		Long: `Export the retained execution history as JSON or CSV.

The file is written to --out (default: current directory) with a
date-stamped name, e.g. auto-funding-history-2026-08-31.csv.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.close()

			filter, err := opts.exportFilter()
			if err != nil {
				return err
			}
			exportOpts := engine.ExportOptions{Filter: filter}
			if opts.IncludeUndo {
				exportOpts.UndoStack = a.engine.Undo().Stack()
			}

			filename, data, err := a.engine.History().Export(opts.ExportFormat, exportOpts)
			if err != nil {
				return WrapExitError(ExitCommandError, "export failed", err)
			}

			path := filepath.Join(opts.OutDir, filename)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return WrapExitError(ExitCommandError, "failed to write export file", err)
			}

			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if opts.Format == "json" {
				return formatter.Success(map[string]any{"path": path, "bytes": len(data)})
			}
			return formatter.Success(fmt.Sprintf("Wrote %s", path))
		},
	}

	cmd.Flags().StringVar(&opts.ExportFormat, "format-out", engine.ExportCSV, "export format (csv|json)")
	cmd.Flags().StringVar(&opts.OutDir, "out", ".", "output directory")
	cmd.Flags().StringVar(&opts.From, "from", "", "only records on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "only records on or before this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&opts.IncludeUndo, "include-undo", false, "embed the undo stack in JSON exports")
	return cmd
}
