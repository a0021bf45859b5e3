package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/autofund/internal/engine"
	"github.com/roach88/autofund/internal/fund"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Trigger string
	Income  string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute auto-funding rules now",
		Long: `Execute all eligible auto-funding rules against the current budget.

Transfers are applied to the database, the execution is recorded in
history, and (if anything was funded) pushed onto the undo stack.

Example:
  autofund run --db ./budget.db
  autofund run --trigger payday
  autofund run --trigger income_detected --income 2500`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Trigger, "trigger", string(fund.TriggerManual), "trigger type for this run")
	cmd.Flags().StringVar(&opts.Income, "income", "", "detected income amount (income_detected runs)")
	return cmd
}

func runRules(opts *RunOptions, cmd *cobra.Command) error {
	trigger, income, err := parseRunInputs(opts.Trigger, opts.Income)
	if err != nil {
		return err
	}

	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	snap, err := a.store.Snapshot(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read budget", err)
	}
	snap.NewIncomeAmount = income

	record, err := a.engine.Execute(ctx, trigger, snap)
	if err != nil {
		if engine.IsBusyError(err) {
			return WrapExitError(ExitFailure, "engine busy", err)
		}
		return WrapExitError(ExitCommandError, "execution failed", err)
	}

	if err := a.saveExecutionState(ctx); err != nil {
		return err
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(record)
	}
	writeRecordText(cmd.OutOrStdout(), record)
	return nil
}

func parseRunInputs(trigger, income string) (fund.TriggerType, *decimal.Decimal, error) {
	t := fund.TriggerType(trigger)
	if !fund.ValidTriggerTypes[t] {
		return "", nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid trigger %q", trigger))
	}

	if income == "" {
		return t, nil, nil
	}
	amount, err := decimal.NewFromString(income)
	if err != nil {
		return "", nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --income %q", income), err)
	}
	return t, &amount, nil
}

func writeRecordText(out io.Writer, record fund.ExecutionRecord) {
	status := "ok"
	if !record.Success {
		status = "with failures"
	}
	fmt.Fprintf(out, "Execution %s (%s) completed %s\n", record.ID, record.Trigger, status)
	fmt.Fprintf(out, "  Rules executed: %d\n", record.RulesExecuted)
	fmt.Fprintf(out, "  Total funded:   %s\n", record.TotalFunded.StringFixed(2))
	fmt.Fprintf(out, "  Remaining cash: %s\n", record.RemainingCash.StringFixed(2))
	for _, res := range record.Results {
		if res.Success {
			fmt.Fprintf(out, "  + %-24s %s\n", res.RuleName, res.Amount.StringFixed(2))
		} else {
			fmt.Fprintf(out, "  - %-24s skipped: %s\n", res.RuleName, res.Error)
		}
	}
}
